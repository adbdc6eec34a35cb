// Package pipeline wires Discovery, the producer worker pool, the
// Aggregator, the post-processor, and the Emitter into the five-stage flow
// spec §2 and §5 describe.
package pipeline

import (
	"context"
	"fmt"
	"runtime"

	"github.com/sourcegraph/conc/pool"

	"github.com/grcov-go/grcov/internal/aggregator"
	"github.com/grcov-go/grcov/internal/config"
	"github.com/grcov-go/grcov/internal/coverage"
	"github.com/grcov-go/grcov/internal/discovery"
	"github.com/grcov-go/grcov/internal/emitter"
	"github.com/grcov-go/grcov/internal/logger"
	"github.com/grcov-go/grcov/internal/postprocess"
	"github.com/grcov-go/grcov/internal/producer"
)

// Result is what Run hands back once the pipeline has fully drained.
type Result struct {
	Map         *coverage.Map
	FilesMerged int64
}

// Run executes the full pipeline for cfg against writers, blocking until
// every stage has finished (spec §5: post-processing and emission are
// single-threaded and run only after every producer has drained).
func Run(ctx context.Context, cfg config.Config, writers ...emitter.Writer) (*Result, error) {
	// Post-processor configuration is validated before anything else runs:
	// spec §7 requires a bad glob/regex/path-mapping to be fatal at startup,
	// not after the full discovery+parse+merge pass has already paid for
	// the I/O.
	proc, err := postprocess.New(postprocess.Options{
		SourceDir:         cfg.SourceDir,
		PrefixDir:         cfg.PrefixDir,
		PathMappings:      toPathMappings(cfg.PathMappings),
		IgnoreNotExisting: cfg.IgnoreNotExisting,
		IgnoreGlobs:       cfg.IgnoreGlobs,
		KeepOnlyGlobs:     cfg.KeepOnlyGlobs,
		Exclusion: coverage.ExclusionPatterns{
			Line:    cfg.ExclLine,
			Start:   cfg.ExclStart,
			Stop:    cfg.ExclStop,
			BrLine:  cfg.ExclBrLine,
			BrStart: cfg.ExclBrStart,
			BrStop:  cfg.ExclBrStop,
		},
		Filter: cfg.Filter,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: invalid configuration: %w", err)
	}

	workers := cfg.Threads
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	walker := discovery.NewWalker()
	walker.ChannelCapacity = workers * 4 // spec §5: "bounded capacity (default 4x worker count)"
	walker.SymlinkDepth = cfg.SymlinkDepth
	items := walker.Discover(ctx, cfg.Inputs)

	records := make(chan *coverage.Record, workers*4)
	agg := aggregator.New()

	aggDone := make(chan error, 1)
	go func() {
		aggDone <- agg.Run(records)
	}()

	prodCfg := producer.Config{
		BinaryPath: cfg.BinaryPath,
		LLVMOnly:   cfg.LLVM,
		GcovPath:   cfg.GcovPath,
	}

	p := pool.New().WithMaxGoroutines(workers)
	for item := range items {
		item := item
		p.Go(func() {
			runProducer(item, prodCfg, records)
		})
	}
	p.Wait()
	close(records)

	if err := <-aggDone; err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	if err := proc.Run(agg.Map); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	if len(writers) > 0 {
		if err := emitter.Emit(agg.Map, emitter.Options{IncludeBranches: cfg.Branch, Precision: cfg.Precision}, writers...); err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
	}

	return &Result{Map: agg.Map, FilesMerged: agg.MergedCount()}, nil
}

// runProducer looks up the registered producer for item.Kind and emits
// whatever records it manages to produce; a missing producer or a parse
// error is logged and the work item is dropped - never fatal to the
// pipeline (spec §7).
func runProducer(item coverage.WorkItem, cfg producer.Config, out chan<- *coverage.Record) {
	prod, err := producer.New(item.Kind)
	if err != nil {
		logger.Warn("pipeline: %s: %v", identify(item), err)
		return
	}
	emit := func(rec *coverage.Record) { out <- rec }
	if err := prod.Produce(item, cfg, emit); err != nil {
		logger.Warn("pipeline: producer %s: %v", identify(item), err)
	}
}

func identify(item coverage.WorkItem) string {
	if item.Payload.Path != "" {
		return item.Payload.Path
	}
	if item.Payload.ArchiveMember != "" {
		return item.Payload.ArchivePath + "!" + item.Payload.ArchiveMember
	}
	return item.Kind.String()
}

func toPathMappings(in []config.PathMapping) []postprocess.PathMapping {
	out := make([]postprocess.PathMapping, len(in))
	for i, m := range in {
		out[i] = postprocess.PathMapping{From: m.From, To: m.To}
	}
	return out
}
