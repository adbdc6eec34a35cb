// Package discovery walks input paths, classifies each artifact it finds,
// and emits coverage.WorkItem values onto a bounded channel (spec §4.1).
package discovery

import (
	"archive/zip"
	"bufio"
	"bytes"
	"compress/flate"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/grcov-go/grcov/internal/coverage"
	"github.com/grcov-go/grcov/internal/logger"
)

// inode identifies a file for symlink-cycle detection (spec §4.1, §C.1).
type inode struct {
	dev, ino uint64
}

// defaultSymlinkDepth bounds how many symlinked directories deep Discover
// will follow before giving up on a branch, so a symlink cycle the
// device+inode visited-set somehow misses still can't run forever
// (spec §4.1, SPEC_FULL.md §C.1).
const defaultSymlinkDepth = 40

// Walker discovers artifacts under a set of roots and emits WorkItems.
type Walker struct {
	// ChannelCapacity bounds the WorkItem channel (spec §5).
	ChannelCapacity int
	// SymlinkDepth bounds how many symlinked directories deep a walk will
	// follow (spec §C.1, --symlink-depth). 0 means defaultSymlinkDepth.
	SymlinkDepth int
}

// NewWalker returns a Walker with the default channel capacity and symlink
// depth.
func NewWalker() *Walker {
	return &Walker{ChannelCapacity: 64, SymlinkDepth: defaultSymlinkDepth}
}

// Discover walks roots (files, directories, or .zip archives) and returns a
// channel of WorkItems, closed once every root has been fully walked (or the
// context is cancelled). Unreadable entries are logged and skipped; the
// walk never aborts on a single bad entry (spec §4.1, §7).
func (w *Walker) Discover(ctx context.Context, roots []string) <-chan coverage.WorkItem {
	capacity := w.ChannelCapacity
	if capacity <= 0 {
		capacity = 64
	}
	depth := w.SymlinkDepth
	if depth <= 0 {
		depth = defaultSymlinkDepth
	}

	out := make(chan coverage.WorkItem, capacity)

	go func() {
		defer close(out)
		visited := make(map[inode]struct{})

		g, gctx := errgroup.WithContext(ctx)
		for _, root := range roots {
			root := root
			g.Go(func() error {
				return walkRoot(gctx, root, visited, depth, out)
			})
		}
		if err := g.Wait(); err != nil {
			logger.Warn("discovery: %v", err)
		}
	}()

	return out
}

// walkRoot classifies path and, for a directory, recurses into it. Unlike
// filepath.Walk, it resolves directory symlinks and descends into them
// itself (filepath.Walk Lstats every entry and never recurses into one),
// so spec §4.1's "symlinks followed, with cycle break by device+inode" is
// actually reachable rather than silently skipping symlinked subtrees.
// depth is the number of further symlinked directories still allowed to be
// followed on this branch; it is consumed only by symlinks, since plain
// directories cannot form a cycle.
func walkRoot(ctx context.Context, path string, visited map[inode]struct{}, depth int, out chan<- coverage.WorkItem) error {
	lst, err := os.Lstat(path)
	if err != nil {
		logger.Warn("discovery: cannot stat %s: %v", path, err)
		return nil
	}

	if lst.Mode()&os.ModeSymlink != 0 {
		target, err := os.Stat(path)
		if err != nil {
			logger.Warn("discovery: broken symlink %s: %v", path, err)
			return nil
		}
		if depth <= 0 {
			logger.Warn("discovery: %s: symlink depth exceeded, not following", path)
			return nil
		}
		if !target.IsDir() {
			// Only directory symlinks can form a cycle; visitFile does its
			// own (dev, ino) dedup for the plain-file case.
			return visitFile(ctx, path, target, visited, out)
		}
		if key, ok := inodeOf(target); ok {
			if _, seen := visited[key]; seen {
				return nil
			}
			visited[key] = struct{}{}
		}
		return walkDir(ctx, path, visited, depth-1, out)
	}

	if lst.IsDir() {
		return walkDir(ctx, path, visited, depth, out)
	}
	return visitFile(ctx, path, lst, visited, out)
}

// walkDir reads dir's entries in sorted order and walks each one in turn.
func walkDir(ctx context.Context, dir string, visited map[inode]struct{}, depth int, out chan<- coverage.WorkItem) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn("discovery: cannot read dir %s: %v", dir, err)
		return nil
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		if err := walkRoot(ctx, filepath.Join(dir, name), visited, depth, out); err != nil {
			return err
		}
	}
	return nil
}

func visitFile(ctx context.Context, path string, fi os.FileInfo, visited map[inode]struct{}, out chan<- coverage.WorkItem) error {
	if key, ok := inodeOf(fi); ok {
		if _, seen := visited[key]; seen {
			return nil
		}
		visited[key] = struct{}{}
	}

	if strings.EqualFold(filepath.Ext(path), ".zip") {
		return walkArchive(ctx, path, out)
	}

	if strings.EqualFold(filepath.Ext(path), ".gcda") {
		// .gcda is only ever emitted paired with its .gcno sibling; a bare
		// .gcda with no .gcno is not independently useful (spec §4.1).
		return nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("discovery: cannot read %s: %v", path, err)
		return nil
	}

	kind := classify(path, content)
	if kind == coverage.KindUnknown {
		return nil
	}

	item := coverage.WorkItem{Kind: kind, Payload: coverage.Payload{Path: path, Content: content}}
	if kind == coverage.KindGcnoGcdaPair {
		gcdaPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".gcda"
		if gcdaContent, err := os.ReadFile(gcdaPath); err == nil {
			item.Payload.GcdaContent = gcdaContent
		}
	}

	select {
	case out <- item:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// walkArchive enumerates a .zip's members as virtual work items. Malformed
// members are skipped with a warning; the archive walk never aborts the
// pipeline (spec §4.1, §7).
func walkArchive(ctx context.Context, path string, out chan<- coverage.WorkItem) error {
	r, err := zip.OpenReader(path)
	if err != nil {
		logger.Warn("discovery: cannot open archive %s: %v", path, err)
		return nil
	}
	defer r.Close()
	// The DEFLATE decoder is registered on this reader only: archive/zip
	// already registers one package-wide, and registering a second there
	// panics.
	r.RegisterDecompressor(zip.Deflate, func(rd io.Reader) io.ReadCloser {
		return flate.NewReader(rd)
	})

	// Pair gcno/gcda members within the archive by shared stem, same as on
	// a real filesystem (spec §4.1).
	gcdaByStem := make(map[string]*zip.File)
	for _, f := range r.File {
		if strings.EqualFold(filepath.Ext(f.Name), ".gcda") {
			stem := strings.TrimSuffix(f.Name, filepath.Ext(f.Name))
			gcdaByStem[stem] = f
		}
	}

	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	byName := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		byName[f.Name] = f
	}

	for _, name := range names {
		f := byName[name]
		if f.FileInfo().IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(f.Name), ".gcda") {
			continue
		}

		content, err := readZipMember(f)
		if err != nil {
			logger.Warn("discovery: malformed archive member %s in %s: %v", f.Name, path, err)
			continue
		}

		kind := classify(f.Name, content)
		if kind == coverage.KindUnknown {
			continue
		}

		item := coverage.WorkItem{
			Kind: kind,
			Payload: coverage.Payload{
				ArchivePath:   path,
				ArchiveMember: f.Name,
				Content:       content,
			},
		}
		if kind == coverage.KindGcnoGcdaPair {
			stem := strings.TrimSuffix(f.Name, filepath.Ext(f.Name))
			if gcda, ok := gcdaByStem[stem]; ok {
				if gcdaContent, err := readZipMember(gcda); err == nil {
					item.Payload.GcdaContent = gcdaContent
				}
			}
		}

		select {
		case out <- item:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func readZipMember(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// sniffSize is how much of a file's head classify reads before falling back
// to magic-signature sniffing (spec §4.1: "first 4 KiB").
const sniffSize = 4096

// classify determines a WorkItem's Kind by extension first, falling back to
// content sniffing on an extension miss (spec §4.1).
func classify(name string, content []byte) coverage.Kind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gcno":
		return coverage.KindGcnoGcdaPair
	case ".info":
		return coverage.KindLcovInfo
	case ".xml":
		return coverage.KindJacocoXML
	case ".json":
		return coverage.KindUnknown // path-mapping files, not coverage artifacts
	case ".out":
		return coverage.KindGoCover
	case ".profraw", ".profdata":
		return coverage.KindProfrawDirectoryHint
	}

	head := content
	if len(head) > sniffSize {
		head = head[:sniffSize]
	}
	return sniff(head)
}

var gcnoMagic = []byte("gcno")

func sniff(head []byte) coverage.Kind {
	switch {
	case bytes.HasPrefix(head, gcnoMagic) || bytes.HasPrefix(head, []byte{'o', 'n', 'c', 'g'}):
		return coverage.KindGcnoGcdaPair
	case bytes.HasPrefix(head, []byte("PK\x03\x04")):
		// A zip signature reaching classify means an extensionless archive;
		// Discover's caller is responsible for re-dispatching it through
		// walkArchive if desired. Treated as unknown here: archives are
		// handled by extension in visitFile, not via content sniffing.
		return coverage.KindUnknown
	case bytes.HasPrefix(head, []byte("TN:")) || bytes.HasPrefix(head, []byte("SF:")):
		return coverage.KindLcovInfo
	case looksLikeJacoco(head):
		return coverage.KindJacocoXML
	case bytes.HasPrefix(head, []byte("file:")):
		return coverage.KindGcovIntermediateText
	case bytes.HasPrefix(head, []byte("mode:")):
		return coverage.KindGoCover
	default:
		return coverage.KindUnknown
	}
}

func looksLikeJacoco(head []byte) bool {
	if !bytes.HasPrefix(bytes.TrimLeft(head, " \t\r\n"), []byte("<?xml")) {
		return false
	}
	scanner := bufio.NewScanner(bytes.NewReader(head))
	scanner.Buffer(make([]byte, 0, sniffSize), sniffSize)
	for scanner.Scan() {
		if strings.Contains(scanner.Text(), "<report") {
			return true
		}
	}
	return false
}
