// Package producer defines the Producer contract (spec §4.2) and the
// registry that maps a coverage.Kind to the producer that handles it,
// directly adapted from the teacher's oracle plugin registry
// (internal/oracle/registry.go: a name->factory map plus Register/New).
package producer

import (
	"fmt"

	"github.com/grcov-go/grcov/internal/coverage"
)

// Config carries the producer-independent settings a Producer may need.
// It is built once from CLI flags/config and never mutated afterward (spec
// §9: "carry an immutable Config value through the pipeline").
type Config struct {
	// BinaryPath hints at where to find binaries for LLVM source-based
	// coverage (--binary-path).
	BinaryPath string

	// LLVMOnly restricts gcno/gcda parsing to the LLVM variant (--llvm).
	LLVMOnly bool

	// GcovPath is the gcov-compatible binary to shell out to when the
	// gcno/gcda producer chooses to reuse an existing gcov engine instead
	// of parsing the binary format directly (spec §9).
	GcovPath string
}

// Emit is how a Producer hands a finished record to its caller. Producers
// never call the aggregator directly (kept decoupled so they're testable in
// isolation); the pipeline wires Emit to the aggregator's channel send.
type Emit func(rec *coverage.Record)

// Producer is a pure function from (WorkItem, Config) to a stream of
// records, emitted through Emit as they complete. One source file is one
// record; cross-file aggregation is never a producer's job (spec §4.2's
// central invariant).
//
// A non-nil error return is always a producer-parse-error in the sense of
// spec §7: non-fatal, logged by the caller, and every record already passed
// to emit before the error remains valid.
type Producer interface {
	Produce(item coverage.WorkItem, cfg Config, emit Emit) error
}

// Factory builds a Producer. Kept distinct from Producer itself so
// registration can be cheap (no Producer needs to be constructed until its
// Kind is actually seen), mirroring the teacher's OracleFactory indirection.
type Factory func() Producer

var registry = make(map[coverage.Kind]Factory)

// Register adds a producer factory for a WorkItem kind. Called from each
// producer subpackage's init(), so importing the subpackage for its side
// effect is what wires it in (see cmd/grcov/main.go's blank imports).
func Register(kind coverage.Kind, factory Factory) {
	registry[kind] = factory
}

// New builds the producer registered for a given kind.
func New(kind coverage.Kind) (Producer, error) {
	factory, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("no producer registered for work item kind %q", kind)
	}
	return factory(), nil
}

// Registered reports whether a kind has a registered producer.
func Registered(kind coverage.Kind) bool {
	_, ok := registry[kind]
	return ok
}
