package emitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grcov-go/grcov/internal/coverage"
)

type recordingWriter struct {
	files   []FileView
	summary Summary
	closed  bool
}

func (r *recordingWriter) WriteFile(v FileView) error { r.files = append(r.files, v); return nil }
func (r *recordingWriter) WriteSummary(s Summary) error {
	r.summary = s
	return nil
}
func (r *recordingWriter) Close() error { r.closed = true; return nil }

func buildMap() *coverage.Map {
	m := coverage.NewMap()

	a := coverage.NewRecord("a.go")
	a.AddLine(1, 1)
	a.AddLine(2, 0)
	a.AppendBranch(1, coverage.Branch{Taken: true, Executed: true})
	a.AddFunction("f", 1, true)
	m.Merge(a)

	b := coverage.NewRecord("b.go")
	b.AddLine(1, 0)
	m.Merge(b)

	return m
}

func TestEmit_WalksInSortedPathOrderAndAccumulatesTotals(t *testing.T) {
	m := buildMap()
	w := &recordingWriter{}
	err := Emit(m, Options{IncludeBranches: true}, w)
	require.NoError(t, err)

	require.Len(t, w.files, 2)
	assert.Equal(t, "a.go", w.files[0].Path)
	assert.Equal(t, "b.go", w.files[1].Path)

	assert.Equal(t, 1, w.summary.CoveredLines)
	assert.Equal(t, 3, w.summary.TotalLines)
	assert.Equal(t, 1, w.summary.CoveredFunctions)
	assert.Equal(t, 1, w.summary.TotalFunctions)
	assert.True(t, w.closed)
}

func TestEmit_BranchesOmittedUnlessRequested(t *testing.T) {
	m := buildMap()
	w := &recordingWriter{}
	err := Emit(m, Options{IncludeBranches: false}, w)
	require.NoError(t, err)
	assert.Empty(t, w.files[0].Branches)
}

func TestEmit_LinesAreSortedByNumber(t *testing.T) {
	m := coverage.NewMap()
	rec := coverage.NewRecord("a.go")
	rec.AddLine(10, 1)
	rec.AddLine(2, 1)
	rec.AddLine(5, 1)
	m.Merge(rec)

	w := &recordingWriter{}
	require.NoError(t, Emit(m, Options{}, w))

	lines := w.files[0].Lines
	require.Len(t, lines, 3)
	assert.Equal(t, uint32(2), lines[0].Line)
	assert.Equal(t, uint32(5), lines[1].Line)
	assert.Equal(t, uint32(10), lines[2].Line)
}

func TestEmit_FeedsMultipleWriters(t *testing.T) {
	m := buildMap()
	w1, w2 := &recordingWriter{}, &recordingWriter{}
	require.NoError(t, Emit(m, Options{}, w1, w2))
	assert.Len(t, w1.files, 2)
	assert.Len(t, w2.files, 2)
}
