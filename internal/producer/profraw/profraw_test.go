package profraw

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grcov-go/grcov/internal/coverage"
	executor "github.com/grcov-go/grcov/internal/exec"
	"github.com/grcov-go/grcov/internal/producer"
)

// fakeExecutor stubs llvm-profdata/llvm-cov: it records every invocation and
// returns a canned lcov document from the llvm-cov export step, mirroring
// the gcno package's own fakeExecutor.
type fakeExecutor struct {
	lcovOutput string
	calls      [][]string
}

func (f *fakeExecutor) Run(command string, args ...string) (*executor.ExecutionResult, error) {
	call := append([]string{command}, args...)
	f.calls = append(f.calls, call)
	if command == "llvm-cov" {
		return &executor.ExecutionResult{Stdout: f.lcovOutput}, nil
	}
	return &executor.ExecutionResult{}, nil
}

func (f *fakeExecutor) RunDir(dir, command string, args ...string) (*executor.ExecutionResult, error) {
	return f.Run(command, args...)
}

func TestProducer_Produce_MergesAndExportsThroughLcov(t *testing.T) {
	fe := &fakeExecutor{lcovOutput: "SF:a.c\nDA:1,1\nend_of_record\n"}
	p := &Producer{Exec: fe}

	item := coverage.WorkItem{
		Kind:    coverage.KindProfrawDirectoryHint,
		Payload: coverage.Payload{Path: "/tmp/default.profraw"},
	}

	var got []*coverage.Record
	err := p.Produce(item, producer.Config{BinaryPath: "/usr/bin/app"}, func(r *coverage.Record) { got = append(got, r) })
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a.c", got[0].SourcePath)
	assert.Equal(t, uint64(1), got[0].LineCount(1))

	require.Len(t, fe.calls, 2)
	assert.Equal(t, "llvm-profdata", fe.calls[0][0])
	assert.Equal(t, "merge", fe.calls[0][1])
	assert.Equal(t, "llvm-cov", fe.calls[1][0])
	assert.Equal(t, "export", fe.calls[1][1])
}

func TestProducer_Produce_RequiresBinaryPath(t *testing.T) {
	p := &Producer{Exec: &fakeExecutor{}}
	item := coverage.WorkItem{
		Kind:    coverage.KindProfrawDirectoryHint,
		Payload: coverage.Payload{Path: "/tmp/default.profraw"},
	}
	err := p.Produce(item, producer.Config{}, func(r *coverage.Record) {})
	assert.Error(t, err)
}
