package emitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCovDir_RollsUpNestedDirectories(t *testing.T) {
	views := []FileView{
		{Path: "src/a.go", Summary: Summary{CoveredLines: 2, TotalLines: 4}},
		{Path: "src/pkg/b.go", Summary: Summary{CoveredLines: 1, TotalLines: 1}},
		{Path: "root.go", Summary: Summary{CoveredLines: 0, TotalLines: 2}},
	}

	tree := BuildCovDir(views)

	root, ok := tree.Files["root.go"]
	require.True(t, ok)
	assert.Equal(t, 2, root.Summary.TotalLines)

	src, ok := tree.Children["src"]
	require.True(t, ok)
	assert.Equal(t, 5, src.Summary.TotalLines)
	assert.Equal(t, 3, src.Summary.CoveredLines)

	pkg, ok := src.Children["pkg"]
	require.True(t, ok)
	assert.Equal(t, "src/pkg", pkg.Path)
	assert.Equal(t, 1, pkg.Summary.TotalLines)

	assert.Equal(t, 7, tree.Summary.TotalLines)
	assert.Equal(t, 3, tree.Summary.CoveredLines)
}

func TestBuildCovDir_EmptyInput(t *testing.T) {
	tree := BuildCovDir(nil)
	assert.Empty(t, tree.Files)
	assert.Empty(t, tree.Children)
	assert.Equal(t, Summary{}, tree.Summary)
}
