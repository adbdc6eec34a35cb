package gocover

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grcov-go/grcov/internal/coverage"
)

func collect(t *testing.T, content string) []*coverage.Record {
	t.Helper()
	var recs []*coverage.Record
	err := Parse([]byte(content), func(rec *coverage.Record) { recs = append(recs, rec) })
	require.NoError(t, err)
	return recs
}

func TestParse_SpanExpandsToEveryLineInclusive(t *testing.T) {
	content := "mode: set\n" +
		"example.com/mod/a.go:3.10,5.2 2 1\n"

	recs := collect(t, content)
	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Equal(t, "example.com/mod/a.go", rec.SourcePath)
	assert.Equal(t, uint64(1), rec.LineCount(3))
	assert.Equal(t, uint64(1), rec.LineCount(4))
	assert.Equal(t, uint64(1), rec.LineCount(5))
	assert.False(t, rec.HasLine(6))
}

func TestParse_OverlappingSpansAccumulate(t *testing.T) {
	content := "mode: count\n" +
		"a.go:1.1,3.1 1 2\n" +
		"a.go:2.1,2.1 1 5\n"

	recs := collect(t, content)
	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Equal(t, uint64(2), rec.LineCount(1))
	assert.Equal(t, uint64(7), rec.LineCount(2))
	assert.Equal(t, uint64(2), rec.LineCount(3))
}

func TestParse_MultipleFilesEachGetOneRecord(t *testing.T) {
	content := "mode: set\n" +
		"a.go:1.1,1.5 1 1\n" +
		"b.go:1.1,1.5 1 0\n"

	recs := collect(t, content)
	require.Len(t, recs, 2)
	assert.Equal(t, "a.go", recs[0].SourcePath)
	assert.Equal(t, "b.go", recs[1].SourcePath)
}

func TestParse_MalformedSpansAreSkipped(t *testing.T) {
	content := "mode: set\nnot a valid line\na.go:1.1,2.1 1 1\n"
	recs := collect(t, content)
	require.Len(t, recs, 1)
	assert.Equal(t, uint64(1), recs[0].LineCount(1))
}
