// Package emitter walks a finalized coverage.Map in stable order and hands
// each file's neutral view to one or more Writers (spec §4.5).
package emitter

import (
	"sort"

	"github.com/grcov-go/grcov/internal/coverage"
)

// LineCount pairs a line number with its execution count, in sorted order.
type LineCount struct {
	Line  uint32
	Count uint64
}

// BranchView pairs a branch's (line, index) identity with its state.
type BranchView struct {
	Line     uint32
	Index    int
	Taken    bool
	Executed bool
}

// FunctionView pairs a function's name with its state.
type FunctionView struct {
	Name      string
	StartLine uint32
	Executed  bool
}

// Summary holds the totals writers render percentages from (spec §4.5).
type Summary struct {
	CoveredLines     int
	TotalLines       int
	CoveredBranches  int
	TotalBranches    int
	CoveredFunctions int
	TotalFunctions   int
}

// FileView is the neutral, writer-agnostic rendering of one CoverageRecord.
type FileView struct {
	Path      string
	Lines     []LineCount
	Branches  []BranchView
	Functions []FunctionView
	Summary   Summary
}

// Options carries emitter-wide settings through to every writer (spec §9:
// "carry an immutable Config value through the pipeline").
type Options struct {
	IncludeBranches bool
	Precision       int // decimal places for writer-rendered percentages (spec §C.2)
}

// Writer consumes the emitted view. Concrete writers (lcov, JSON, ...) are
// external per spec §1; this package only defines the contract and a couple
// of reference implementations.
type Writer interface {
	WriteFile(view FileView) error
	WriteSummary(total Summary) error
	Close() error
}

// Emit walks m in sorted path order, builds a FileView per entry, and feeds
// every configured writer, accumulating the grand-total Summary along the
// way (spec §4.5).
func Emit(m *coverage.Map, opts Options, writers ...Writer) error {
	var total Summary

	for _, path := range m.Paths() {
		rec, ok := m.Get(path)
		if !ok {
			continue
		}
		view := buildFileView(path, rec, opts)
		total.CoveredLines += view.Summary.CoveredLines
		total.TotalLines += view.Summary.TotalLines
		total.CoveredBranches += view.Summary.CoveredBranches
		total.TotalBranches += view.Summary.TotalBranches
		total.CoveredFunctions += view.Summary.CoveredFunctions
		total.TotalFunctions += view.Summary.TotalFunctions

		for _, w := range writers {
			if err := w.WriteFile(view); err != nil {
				return err
			}
		}
	}

	for _, w := range writers {
		if err := w.WriteSummary(total); err != nil {
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
	}
	return nil
}

func buildFileView(path string, rec *coverage.Record, opts Options) FileView {
	view := FileView{Path: path}

	lines := rec.Lines()
	view.Lines = make([]LineCount, 0, len(lines))
	for line, count := range lines {
		view.Lines = append(view.Lines, LineCount{Line: line, Count: count})
		view.Summary.TotalLines++
		if count > 0 {
			view.Summary.CoveredLines++
		}
	}
	sort.Slice(view.Lines, func(i, j int) bool { return view.Lines[i].Line < view.Lines[j].Line })

	if opts.IncludeBranches {
		for _, lc := range view.Lines {
			n := rec.BranchCount(lc.Line)
			for i := 0; i < n; i++ {
				b, ok := rec.Branch(lc.Line, i)
				if !ok {
					continue
				}
				view.Branches = append(view.Branches, BranchView{Line: lc.Line, Index: i, Taken: b.Taken, Executed: b.Executed})
				view.Summary.TotalBranches++
				if b.Taken {
					view.Summary.CoveredBranches++
				}
			}
		}
	}

	functions := rec.Functions()
	view.Functions = make([]FunctionView, 0, len(functions))
	for name, fn := range functions {
		view.Functions = append(view.Functions, FunctionView{Name: name, StartLine: fn.StartLine, Executed: fn.Executed})
		view.Summary.TotalFunctions++
		if fn.Executed {
			view.Summary.CoveredFunctions++
		}
	}
	sort.Slice(view.Functions, func(i, j int) bool { return view.Functions[i].Name < view.Functions[j].Name })

	return view
}
