// Package profraw produces coverage from LLVM source-based coverage's
// .profraw/.profdata directory hints by shelling out to llvm-profdata and
// llvm-cov, the same "reuse an existing engine" design spec §9 sanctions for
// gcno/gcda, applied here to the other binary-coverage format named by
// spec.md's WorkItem kinds (§3) and by the --binary-path flag (§6).
package profraw

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/grcov-go/grcov/internal/coverage"
	executor "github.com/grcov-go/grcov/internal/exec"
	"github.com/grcov-go/grcov/internal/producer"
	"github.com/grcov-go/grcov/internal/producer/lcov"
)

func init() {
	producer.Register(coverage.KindProfrawDirectoryHint, func() producer.Producer {
		return &Producer{Exec: executor.NewCommandExecutor()}
	})
}

// Producer implements producer.Producer for a directory hint pointing at one
// or more .profraw files. It requires cfg.BinaryPath (the instrumented
// binary the profiles were collected against) to resolve symbols; without
// it the work item is skipped with a warning rather than guessed at, since
// grcov never computes coverage itself (spec §1 Non-goals).
type Producer struct {
	Exec executor.Executor
}

// Produce merges the .profraw file named by the work item into an indexed
// profile, then exports it as lcov text via llvm-cov and parses that text
// with the lcov producer.
func (p *Producer) Produce(item coverage.WorkItem, cfg producer.Config, emit producer.Emit) error {
	if cfg.BinaryPath == "" {
		return fmt.Errorf("profraw: no --binary-path configured, skipping %s", item.Payload.Path)
	}

	exec := p.Exec
	if exec == nil {
		exec = executor.NewCommandExecutor()
	}

	dir, err := os.MkdirTemp("", "grcov-profraw-*")
	if err != nil {
		return fmt.Errorf("profraw: %w", err)
	}
	defer os.RemoveAll(dir)

	indexed := filepath.Join(dir, "merged.profdata")
	if _, err := exec.Run("llvm-profdata", "merge", "-sparse", item.Payload.Path, "-o", indexed); err != nil {
		return fmt.Errorf("profraw: llvm-profdata merge: %w", err)
	}

	result, err := exec.Run("llvm-cov", "export", "-format=lcov", "-instr-profile="+indexed, cfg.BinaryPath)
	if err != nil {
		return fmt.Errorf("profraw: llvm-cov export: %w", err)
	}

	return lcov.Parse([]byte(result.Stdout), emit)
}
