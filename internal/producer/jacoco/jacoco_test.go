package jacoco

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grcov-go/grcov/internal/coverage"
)

const sample = `<?xml version="1.0" encoding="UTF-8"?>
<report name="demo">
  <package name="com/example">
    <class name="com/example/Foo">
      <method name="bar" desc="()V" line="10">
        <counter type="INSTRUCTION" missed="0" covered="3"/>
        <counter type="METHOD" missed="0" covered="1"/>
      </method>
      <method name="baz" desc="()V" line="20">
        <counter type="INSTRUCTION" missed="2" covered="0"/>
        <counter type="METHOD" missed="1" covered="0"/>
      </method>
    </class>
    <sourcefile name="Foo.java">
      <line nr="10" mi="0" ci="1" mb="1" cb="1"/>
      <line nr="11" mi="1" ci="0" mb="0" cb="0"/>
      <line nr="20" mi="3" ci="0" mb="0" cb="0"/>
    </sourcefile>
  </package>
</report>`

func collect(t *testing.T, content string) []*coverage.Record {
	t.Helper()
	var recs []*coverage.Record
	err := Parse([]byte(content), func(rec *coverage.Record) { recs = append(recs, rec) })
	require.NoError(t, err)
	return recs
}

func TestParse_SourcefilePathIncludesPackage(t *testing.T) {
	recs := collect(t, sample)
	require.Len(t, recs, 1)
	assert.Equal(t, "com/example/Foo.java", recs[0].SourcePath)
}

func TestParse_LinesAndBranches(t *testing.T) {
	recs := collect(t, sample)
	require.Len(t, recs, 1)
	rec := recs[0]

	assert.Equal(t, uint64(1), rec.LineCount(10))
	assert.Equal(t, uint64(0), rec.LineCount(11))

	b0, ok := rec.Branch(10, 0)
	require.True(t, ok)
	assert.True(t, b0.Taken)
}

func TestParse_ClassMethodsAttachToTheirSourcefile(t *testing.T) {
	recs := collect(t, sample)
	require.Len(t, recs, 1)

	bar, ok := recs[0].Functions()["bar()V"]
	require.True(t, ok)
	assert.Equal(t, uint32(10), bar.StartLine)
	assert.True(t, bar.Executed)

	baz, ok := recs[0].Functions()["baz()V"]
	require.True(t, ok)
	assert.Equal(t, uint32(20), baz.StartLine)
	assert.False(t, baz.Executed)
}

func TestParse_EmptyDocumentProducesNoRecords(t *testing.T) {
	recs := collect(t, `<?xml version="1.0"?><report name="empty"></report>`)
	assert.Empty(t, recs)
}
