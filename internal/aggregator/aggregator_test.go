package aggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grcov-go/grcov/internal/coverage"
)

func TestAggregator_Run_MergesRecordsByPath(t *testing.T) {
	a := New()
	ch := make(chan *coverage.Record, 4)

	r1 := coverage.NewRecord("a.go")
	r1.AddLine(1, 2)
	r2 := coverage.NewRecord("a.go")
	r2.AddLine(1, 3)
	r3 := coverage.NewRecord("b.go")
	r3.AddLine(5, 1)

	ch <- r1
	ch <- r2
	ch <- r3
	close(ch)

	err := a.Run(ch)
	require.NoError(t, err)

	rec, ok := a.Map.Get("a.go")
	require.True(t, ok)
	assert.Equal(t, uint64(5), rec.LineCount(1))
	assert.Equal(t, int64(3), a.MergedCount())
}

func TestAggregator_Run_SkipsNilAndEmptyRecords(t *testing.T) {
	a := New()
	ch := make(chan *coverage.Record, 2)
	ch <- nil
	ch <- coverage.NewRecord("empty.go")
	close(ch)

	err := a.Run(ch)
	require.NoError(t, err)
	assert.Equal(t, int64(0), a.MergedCount())
	assert.Equal(t, 0, a.Map.Len())
}

func TestAggregator_Run_MergesManyRecordsToTheSamePath(t *testing.T) {
	a := New()
	ch := make(chan *coverage.Record, 8)

	for i := 0; i < 8; i++ {
		rec := coverage.NewRecord("f.go")
		rec.AddLine(1, 1)
		ch <- rec
	}
	close(ch)

	err := a.Run(ch)
	require.NoError(t, err)
	assert.Equal(t, int64(8), a.MergedCount())
	rec, ok := a.Map.Get("f.go")
	require.True(t, ok)
	assert.Equal(t, uint64(8), rec.LineCount(1))
}
