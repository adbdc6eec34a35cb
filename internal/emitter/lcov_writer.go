package emitter

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// LcovWriter renders FileViews back out as an lcov .info document, adapted
// from the teacher's MarkdownReporter (internal/report/markdown.go): build
// the document incrementally, but stream per-record text straight to a
// buffered writer that is flushed after every file instead of holding the
// whole document as a string, since a full coverage run can cover many
// thousands of files.
type LcovWriter struct {
	w   *bufio.Writer
	f   *os.File
	own bool
}

// NewLcovWriter opens outputPath for writing (truncating it) and returns a
// Writer that emits lcov INFO text to it.
func NewLcovWriter(outputPath string) (*LcovWriter, error) {
	f, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("lcov writer: %w", err)
	}
	return &LcovWriter{w: bufio.NewWriter(f), f: f, own: true}, nil
}

// NewLcovWriterTo wraps an already-open io.Writer (mainly for tests).
func NewLcovWriterTo(w io.Writer) *LcovWriter {
	return &LcovWriter{w: bufio.NewWriter(w)}
}

// WriteFile emits one SF:/end_of_record section.
func (l *LcovWriter) WriteFile(view FileView) error {
	fmt.Fprintf(l.w, "SF:%s\n", view.Path)
	for _, fn := range view.Functions {
		fmt.Fprintf(l.w, "FN:%d,%s\n", fn.StartLine, fn.Name)
	}
	for _, fn := range view.Functions {
		hit := 0
		if fn.Executed {
			hit = 1
		}
		fmt.Fprintf(l.w, "FNDA:%d,%s\n", hit, fn.Name)
	}
	fmt.Fprintf(l.w, "FNF:%d\n", view.Summary.TotalFunctions)
	fmt.Fprintf(l.w, "FNH:%d\n", view.Summary.CoveredFunctions)

	for _, b := range view.Branches {
		taken := "-"
		if b.Executed {
			taken = "0"
			if b.Taken {
				taken = "1"
			}
		}
		fmt.Fprintf(l.w, "BRDA:%d,0,%d,%s\n", b.Line, b.Index, taken)
	}
	if len(view.Branches) > 0 {
		fmt.Fprintf(l.w, "BRF:%d\n", view.Summary.TotalBranches)
		fmt.Fprintf(l.w, "BRH:%d\n", view.Summary.CoveredBranches)
	}

	for _, lc := range view.Lines {
		fmt.Fprintf(l.w, "DA:%d,%d\n", lc.Line, lc.Count)
	}
	fmt.Fprintf(l.w, "LF:%d\n", view.Summary.TotalLines)
	fmt.Fprintf(l.w, "LH:%d\n", view.Summary.CoveredLines)
	fmt.Fprintln(l.w, "end_of_record")
	return l.w.Flush()
}

// WriteSummary is a no-op for lcov: lcov readers recompute totals themselves
// from the per-file FNF/FNH/LF/LH/BRF/BRH lines already written.
func (l *LcovWriter) WriteSummary(Summary) error { return nil }

// Close flushes and, if this writer opened its own file, closes it.
func (l *LcovWriter) Close() error {
	if err := l.w.Flush(); err != nil {
		return err
	}
	if l.own {
		return l.f.Close()
	}
	return nil
}
