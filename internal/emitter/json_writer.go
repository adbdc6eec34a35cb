package emitter

import (
	"fmt"
	"os"
	"strconv"

	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// JSONWriter builds a single JSON document across every WriteFile call using
// sjson (set-path writes into a growing byte slice, no struct marshaling),
// then pretty-prints it on Close with tidwall/pretty (spec §B: these two
// libraries are pulled in indirectly by the teacher's gcovr-json-util dep,
// repurposed here as the JSON emitter's actual document builder).
type JSONWriter struct {
	outputPath string
	doc        []byte
	index      int
	precision  int
}

// NewJSONWriter returns a Writer that accumulates a JSON array of per-file
// views and writes it, pretty-printed, to outputPath on Close.
func NewJSONWriter(outputPath string, precision int) *JSONWriter {
	return &JSONWriter{outputPath: outputPath, doc: []byte("{}"), precision: precision}
}

// WriteFile appends one file's view under files[N].
func (j *JSONWriter) WriteFile(view FileView) error {
	base := fmt.Sprintf("files.%d", j.index)
	j.index++

	var err error
	if j.doc, err = sjson.SetBytes(j.doc, base+".path", view.Path); err != nil {
		return err
	}
	if j.doc, err = sjson.SetBytes(j.doc, base+".coverage_percent", j.percent(view.Summary.CoveredLines, view.Summary.TotalLines)); err != nil {
		return err
	}
	for _, lc := range view.Lines {
		key := fmt.Sprintf("%s.lines.%d", base, lc.Line)
		if j.doc, err = sjson.SetBytes(j.doc, key, lc.Count); err != nil {
			return err
		}
	}
	for _, fn := range view.Functions {
		key := fmt.Sprintf("%s.functions.%s", base, fn.Name)
		if j.doc, err = sjson.SetBytes(j.doc, key+".start_line", fn.StartLine); err != nil {
			return err
		}
		if j.doc, err = sjson.SetBytes(j.doc, key+".executed", fn.Executed); err != nil {
			return err
		}
	}
	return nil
}

// WriteSummary sets the document-level "summary" object.
func (j *JSONWriter) WriteSummary(total Summary) error {
	var err error
	if j.doc, err = sjson.SetBytes(j.doc, "summary.covered_lines", total.CoveredLines); err != nil {
		return err
	}
	if j.doc, err = sjson.SetBytes(j.doc, "summary.total_lines", total.TotalLines); err != nil {
		return err
	}
	if j.doc, err = sjson.SetBytes(j.doc, "summary.coverage_percent", j.percent(total.CoveredLines, total.TotalLines)); err != nil {
		return err
	}
	return nil
}

// Close pretty-prints the accumulated document and writes it to disk.
func (j *JSONWriter) Close() error {
	return os.WriteFile(j.outputPath, pretty.Pretty(j.doc), 0o644)
}

func (j *JSONWriter) percent(covered, total int) float64 {
	if total == 0 {
		return 0
	}
	scale := j.precision
	if scale <= 0 {
		scale = 2
	}
	raw := float64(covered) / float64(total) * 100
	rounded, _ := strconv.ParseFloat(strconv.FormatFloat(raw, 'f', scale, 64), 64)
	return rounded
}
