package coverage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempSource(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.go")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestExclusionScanner_SingleLineMarkers(t *testing.T) {
	path := writeTempSource(t, "package a\nfunc f() {} // grcov-excl-line\nfunc g() {}\n")

	s, err := NewExclusionScanner(ExclusionPatterns{Line: "grcov-excl-line"})
	require.NoError(t, err)
	ctx, err := s.Scan(path)
	require.NoError(t, err)

	assert.True(t, ctx.Excluded(2))
	assert.False(t, ctx.Excluded(3))
}

func TestExclusionScanner_RangesAreBothEndpointsInclusive(t *testing.T) {
	content := "1\n// grcov-excl-start\n3\n4\n// grcov-excl-stop\n6\n"
	path := writeTempSource(t, content)

	s, err := NewExclusionScanner(ExclusionPatterns{Start: "grcov-excl-start", Stop: "grcov-excl-stop"})
	require.NoError(t, err)
	ctx, err := s.Scan(path)
	require.NoError(t, err)

	assert.True(t, ctx.Excluded(2), "the start marker line itself is included")
	assert.True(t, ctx.Excluded(3))
	assert.True(t, ctx.Excluded(4))
	assert.True(t, ctx.Excluded(5), "the stop marker line itself is included")
	assert.False(t, ctx.Excluded(1))
	assert.False(t, ctx.Excluded(6))
}

func TestExclusionScanner_UnmatchedStartExtendsToEOF(t *testing.T) {
	content := "1\n// grcov-excl-start\n3\n4\n"
	path := writeTempSource(t, content)

	s, err := NewExclusionScanner(ExclusionPatterns{Start: "grcov-excl-start", Stop: "grcov-excl-stop"})
	require.NoError(t, err)
	ctx, err := s.Scan(path)
	require.NoError(t, err)

	assert.True(t, ctx.Excluded(3))
	assert.True(t, ctx.Excluded(4))
}

func TestExclusionScanner_BranchMarkersDoNotExcludeTheLine(t *testing.T) {
	path := writeTempSource(t, "1\nif x { // grcov-excl-br-line\n}\n")

	s, err := NewExclusionScanner(ExclusionPatterns{BrLine: "grcov-excl-br-line"})
	require.NoError(t, err)
	ctx, err := s.Scan(path)
	require.NoError(t, err)

	assert.True(t, ctx.BranchExcluded(2))
	assert.False(t, ctx.Excluded(2))
}

func TestExclusionScanner_Enabled(t *testing.T) {
	empty, err := NewExclusionScanner(ExclusionPatterns{})
	require.NoError(t, err)
	assert.False(t, empty.Enabled())

	configured, err := NewExclusionScanner(ExclusionPatterns{Line: "x"})
	require.NoError(t, err)
	assert.True(t, configured.Enabled())
}

func TestApply_RemovesExcludedLinesAndBranches(t *testing.T) {
	rec := NewRecord("a.go")
	rec.AddLine(1, 5)
	rec.AddLine(2, 0)
	rec.AppendBranch(2, Branch{Taken: true, Executed: true})

	path := writeTempSource(t, "x\ny // grcov-excl-line\n")
	s, err := NewExclusionScanner(ExclusionPatterns{Line: "grcov-excl-line"})
	require.NoError(t, err)
	ctx, err := s.Scan(path)
	require.NoError(t, err)

	Apply(rec, ctx)

	assert.True(t, rec.HasLine(1))
	assert.False(t, rec.HasLine(2))
	assert.Equal(t, 0, rec.BranchCount(2))
}

func TestApply_IsIdempotent(t *testing.T) {
	rec := NewRecord("a.go")
	rec.AddLine(1, 5)
	rec.AddLine(2, 0)

	path := writeTempSource(t, "x\ny // grcov-excl-line\n")
	s, err := NewExclusionScanner(ExclusionPatterns{Line: "grcov-excl-line"})
	require.NoError(t, err)
	ctx, err := s.Scan(path)
	require.NoError(t, err)

	Apply(rec, ctx)
	linesAfterFirst := rec.Lines()
	Apply(rec, ctx)
	assert.Equal(t, linesAfterFirst, rec.Lines())
}

func TestApply_EmptyContextIsNoOp(t *testing.T) {
	rec := NewRecord("a.go")
	rec.AddLine(1, 5)
	Apply(rec, &ExclusionContext{})
	assert.True(t, rec.HasLine(1))
}
