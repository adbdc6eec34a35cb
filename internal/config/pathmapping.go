package config

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"
)

// LoadPathMappingFile reads a JSON array of {"from":...,"to":...} objects
// (spec §6's "--path-mapping FROM:TO (repeatable or file-driven)") using
// gjson rather than encoding/json, since every other JSON touch point in
// this repo (the JSON emitter writer) already builds on the tidwall
// gjson/sjson/pretty family pulled in by the teacher's gcovr-json-util dep.
func LoadPathMappingFile(path string) ([]PathMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("path-mapping file: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("path-mapping file %s: not valid JSON", path)
	}

	result := gjson.ParseBytes(data)
	if !result.IsArray() {
		return nil, fmt.Errorf("path-mapping file %s: expected a JSON array", path)
	}

	var mappings []PathMapping
	for _, entry := range result.Array() {
		from := entry.Get("from").String()
		to := entry.Get("to").String()
		if from == "" {
			return nil, fmt.Errorf("path-mapping file %s: entry missing \"from\"", path)
		}
		mappings = append(mappings, PathMapping{From: from, To: to})
	}
	return mappings, nil
}
