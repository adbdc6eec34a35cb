package emitter

import "strings"

// DirStats is one directory's rolled-up totals in a covdir-shaped tree
// (spec §C.3, grounded on original_source/src/defs.rs's CDDirStats/CDStats
// and src/covdir.rs's rollup). No covdir JSON writer is required by spec
// §1's scope line ("report formats... are external collaborators"); this is
// the data contract a future writer would consume.
type DirStats struct {
	Name     string
	Path     string
	Children map[string]*DirStats
	Files    map[string]FileView
	Summary  Summary
}

// newDirStats returns an empty node for the directory at path ("" for root).
func newDirStats(name, path string) *DirStats {
	return &DirStats{
		Name:     name,
		Path:     path,
		Children: make(map[string]*DirStats),
		Files:    make(map[string]FileView),
	}
}

// BuildCovDir rolls every FileView's summary up along its path components
// into a directory tree, mirroring how the original's covdir.rs folds
// per-file CDFileStats into parent CDDirStats nodes.
func BuildCovDir(views []FileView) *DirStats {
	root := newDirStats("", "")
	for _, v := range views {
		insert(root, v)
	}
	rollup(root)
	return root
}

func insert(root *DirStats, v FileView) {
	parts := strings.Split(strings.Trim(v.Path, "/"), "/")
	node := root
	pathSoFar := ""
	for i, part := range parts {
		last := i == len(parts)-1
		if last {
			node.Files[part] = v
			return
		}
		if pathSoFar == "" {
			pathSoFar = part
		} else {
			pathSoFar = pathSoFar + "/" + part
		}
		child, ok := node.Children[part]
		if !ok {
			child = newDirStats(part, pathSoFar)
			node.Children[part] = child
		}
		node = child
	}
}

// rollup computes each node's Summary as the sum of its children and direct
// files, recursing depth-first.
func rollup(node *DirStats) Summary {
	var total Summary
	for _, child := range node.Children {
		s := rollup(child)
		total = add(total, s)
	}
	for _, f := range node.Files {
		total = add(total, f.Summary)
	}
	node.Summary = total
	return total
}

func add(a, b Summary) Summary {
	return Summary{
		CoveredLines:     a.CoveredLines + b.CoveredLines,
		TotalLines:       a.TotalLines + b.TotalLines,
		CoveredBranches:  a.CoveredBranches + b.CoveredBranches,
		TotalBranches:    a.TotalBranches + b.TotalBranches,
		CoveredFunctions: a.CoveredFunctions + b.CoveredFunctions,
		TotalFunctions:   a.TotalFunctions + b.TotalFunctions,
	}
}
