// Package gocover parses `go test -coverprofile` output (spec §4.2).
package gocover

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/grcov-go/grcov/internal/coverage"
	"github.com/grcov-go/grcov/internal/producer"
)

func init() {
	producer.Register(coverage.KindGoCover, func() producer.Producer { return &Producer{} })
}

// Producer implements producer.Producer for Go coverprofile files.
type Producer struct{}

// Produce parses the WorkItem's payload and emits one record per file
// referenced in the profile (spec §4.2).
func (p *Producer) Produce(item coverage.WorkItem, _ producer.Config, emit producer.Emit) error {
	return Parse(item.Payload.Content, emit)
}

// Parse runs the coverprofile grammar: a `mode:` header followed by
// `file:startL.startC,endL.endC numStmts count` lines. Every line in
// [startL, endL] gets count added to its total; the same line hit by
// multiple spans accumulates (spec §4.2). Records are emitted only once
// the whole profile has been read, since a file's spans can appear in any
// order and out of file-grouping entirely.
func Parse(content []byte, emit producer.Emit) error {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	records := make(map[string]*coverage.Record)
	order := make([]string, 0, 16)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "mode:") {
			continue
		}

		// file:startL.startC,endL.endC numStmts count
		fileAndSpan := strings.SplitN(line, " ", 3)
		if len(fileAndSpan) != 3 {
			continue
		}
		fileSpan := fileAndSpan[0]
		numStmts := fileAndSpan[1]
		countStr := fileAndSpan[2]
		_ = numStmts

		sep := strings.LastIndex(fileSpan, ":")
		if sep < 0 {
			continue
		}
		file := fileSpan[:sep]
		span := fileSpan[sep+1:]

		startEnd := strings.SplitN(span, ",", 2)
		if len(startEnd) != 2 {
			continue
		}
		startLine, err := parseLineCol(startEnd[0])
		if err != nil {
			continue
		}
		endLine, err := parseLineCol(startEnd[1])
		if err != nil {
			continue
		}
		count, err := strconv.ParseUint(strings.TrimSpace(countStr), 10, 64)
		if err != nil {
			continue
		}

		rec, ok := records[file]
		if !ok {
			rec = coverage.NewRecord(file)
			records[file] = rec
			order = append(order, file)
		}
		for l := startLine; l <= endLine; l++ {
			rec.AddLine(l, count)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("go coverprofile: %w", err)
	}

	for _, file := range order {
		rec := records[file]
		if !rec.IsEmpty() {
			emit(rec)
		}
	}
	return nil
}

// parseLineCol parses a "line.col" span endpoint and returns the line.
func parseLineCol(s string) (uint32, error) {
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return 0, fmt.Errorf("malformed line.col: %q", s)
	}
	line, err := strconv.ParseUint(s[:dot], 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(line), nil
}
