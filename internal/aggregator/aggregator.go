// Package aggregator merges CoverageRecords produced by the producer pool
// into the shared coverage.Map by canonical path (spec §4.3).
package aggregator

import (
	"fmt"

	"go.uber.org/atomic"

	"github.com/grcov-go/grcov/internal/coverage"
	"github.com/grcov-go/grcov/internal/logger"
)

// Aggregator owns the coverage.Map and the counters that track pipeline
// progress (spec §5's "progress counters" carried via go.uber.org/atomic).
type Aggregator struct {
	Map *coverage.Map

	merged   atomic.Int64
	fatalErr atomic.Error
}

// New returns an Aggregator backed by a fresh, default-sharded coverage.Map.
func New() *Aggregator {
	return &Aggregator{Map: coverage.NewMap()}
}

// Run consumes records until in is closed or a fatal error occurs. A fatal
// error (spec §7: "bounded only by memory") drains and discards the rest of
// in so producer goroutines blocked on send can still exit, then returns the
// error. Run is meant to be called from a single goroutine; producers send
// concurrently but the map itself shards its own locking.
func (a *Aggregator) Run(in <-chan *coverage.Record) error {
	for rec := range in {
		if a.fatalErr.Load() != nil {
			continue // draining: discard, let producers unblock
		}
		if rec == nil || rec.IsEmpty() {
			continue
		}
		if err := a.merge(rec); err != nil {
			a.fatalErr.Store(err)
			logger.Error("aggregator: %v", err)
			continue
		}
		a.merged.Inc()
	}
	return a.fatalErr.Load()
}

func (a *Aggregator) merge(rec *coverage.Record) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("aggregator: panic merging %s: %v", rec.SourcePath, r)
		}
	}()
	a.Map.Merge(rec)
	return nil
}

// MergedCount returns how many records have been merged so far.
func (a *Aggregator) MergedCount() int64 {
	return a.merged.Load()
}
