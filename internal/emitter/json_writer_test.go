package emitter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestJSONWriter_WritesPrettyPrintedDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	w := NewJSONWriter(path, 2)

	require.NoError(t, w.WriteFile(FileView{
		Path:      "a.go",
		Lines:     []LineCount{{Line: 1, Count: 4}},
		Functions: []FunctionView{{Name: "f", StartLine: 1, Executed: true}},
		Summary:   Summary{CoveredLines: 1, TotalLines: 1},
	}))
	require.NoError(t, w.WriteSummary(Summary{CoveredLines: 1, TotalLines: 2}))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, gjson.ValidBytes(data))

	doc := gjson.ParseBytes(data)
	assert.Equal(t, "a.go", doc.Get("files.0.path").String())
	assert.Equal(t, int64(4), doc.Get("files.0.lines.1").Int())
	assert.True(t, doc.Get("files.0.functions.f.executed").Bool())
	assert.Equal(t, 50.0, doc.Get("summary.coverage_percent").Float())
	assert.Contains(t, string(data), "\n  ")
}

func TestJSONWriter_PercentRoundsToConfiguredPrecision(t *testing.T) {
	w := NewJSONWriter("", 1)
	assert.InDelta(t, 33.3, w.percent(1, 3), 0.001)
}

func TestJSONWriter_PercentOfZeroTotalIsZero(t *testing.T) {
	w := NewJSONWriter("", 2)
	assert.Equal(t, 0.0, w.percent(0, 0))
}
