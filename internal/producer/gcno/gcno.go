// Package gcno produces coverage from GCC/LLVM .gcno/.gcda note/data file
// pairs by shelling out to an installed gcov binary rather than parsing the
// versioned binary format directly (spec §4.2, §9): gcov's own "-i"
// intermediate output is fed straight through the gcovintermediate parser.
package gcno

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/grcov-go/grcov/internal/coverage"
	executor "github.com/grcov-go/grcov/internal/exec"
	"github.com/grcov-go/grcov/internal/producer"
	"github.com/grcov-go/grcov/internal/producer/gcovintermediate"
)

func init() {
	producer.Register(coverage.KindGcnoGcdaPair, func() producer.Producer {
		return &Producer{Exec: executor.NewCommandExecutor()}
	})
}

// Producer implements producer.Producer for .gcno/.gcda pairs. Exec is
// exported so tests can substitute a fake executor.Executor.
type Producer struct {
	Exec executor.Executor
}

// Produce materializes the .gcno (and, if present, .gcda) pair on disk,
// invokes gcov in intermediate-text mode against it, and parses every *.gcov
// file gcov emits through gcovintermediate.Parse.
func (p *Producer) Produce(item coverage.WorkItem, cfg producer.Config, emit producer.Emit) error {
	exec := p.Exec
	if exec == nil {
		exec = executor.NewCommandExecutor()
	}

	workDir, stem, cleanup, err := materialize(item)
	if err != nil {
		return fmt.Errorf("gcno: %w", err)
	}
	defer cleanup()

	binary, prefix := gcovCommand(cfg)
	args := append(prefix, "-i", "-b", "-m", stem)

	if _, err := exec.RunDir(workDir, binary, args...); err != nil {
		return fmt.Errorf("gcno: running %s: %w", binary, err)
	}
	// A non-zero exit from gcov itself (e.g. a stale .gcda from a different
	// compiler version) is ignored without logging: whatever .gcov files gcov
	// still wrote are parsed below.

	entries, err := os.ReadDir(workDir)
	if err != nil {
		return fmt.Errorf("gcno: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".gcov") {
			continue
		}
		content, err := os.ReadFile(filepath.Join(workDir, entry.Name()))
		if err != nil {
			continue
		}
		if err := gcovintermediate.Parse(content, emit); err != nil {
			return fmt.Errorf("gcno: parsing %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// gcovCommand resolves which gcov-compatible binary to invoke (an explicit
// path wins, then the --llvm switch picks llvm-cov's gcov-compatible mode,
// falling back to plain "gcov", spec §4.2) and any argument that must
// precede the usual "-i -b -m stem" invocation. llvm-cov has no top-level
// gcov-compatible mode of its own; it is reached through its "gcov"
// subcommand (llvm-cov gcov ...), so whenever the resolved binary is
// llvm-cov that subcommand name is prepended to the argument list.
func gcovCommand(cfg producer.Config) (binary string, prefixArgs []string) {
	switch {
	case cfg.BinaryPath != "":
		binary = cfg.BinaryPath
	case cfg.GcovPath != "":
		binary = cfg.GcovPath
	case cfg.LLVMOnly:
		binary = "llvm-cov"
	default:
		binary = "gcov"
	}
	if filepath.Base(binary) == "llvm-cov" {
		prefixArgs = []string{"gcov"}
	}
	return binary, prefixArgs
}

// materialize ensures the .gcno (and optional .gcda) pair exists as real
// files on disk, returning the directory to run gcov in and the bare stem
// (without extension) to pass as its argument. When the WorkItem names an
// on-disk .gcno file and carries no bytes, that file's directory is used
// and no copy is made. When the payload carries raw bytes, both files are
// written into a temp directory that cleanup removes; this covers archive
// members and every .gcno that Discovery emits, since Discovery always
// fills Content (and GcdaContent when the sibling exists).
func materialize(item coverage.WorkItem) (workDir, stem string, cleanup func(), err error) {
	noop := func() {}

	if item.Payload.Path != "" && item.Payload.Content == nil {
		dir := filepath.Dir(item.Payload.Path)
		base := filepath.Base(item.Payload.Path)
		return dir, strings.TrimSuffix(base, filepath.Ext(base)), noop, nil
	}

	dir, err := os.MkdirTemp("", "grcov-gcno-*")
	if err != nil {
		return "", "", noop, err
	}
	cleanup = func() { os.RemoveAll(dir) }

	name := item.Payload.ArchiveMember
	if name == "" {
		name = item.Payload.Path
	}
	if name == "" {
		name = "coverage"
	}
	base := filepath.Base(name)
	stem = strings.TrimSuffix(base, filepath.Ext(base))

	if err := os.WriteFile(filepath.Join(dir, stem+".gcno"), item.Payload.Content, 0o644); err != nil {
		cleanup()
		return "", "", noop, err
	}
	if len(item.Payload.GcdaContent) > 0 {
		if err := os.WriteFile(filepath.Join(dir, stem+".gcda"), item.Payload.GcdaContent, 0o644); err != nil {
			cleanup()
			return "", "", noop, err
		}
	}
	return dir, stem, cleanup, nil
}
