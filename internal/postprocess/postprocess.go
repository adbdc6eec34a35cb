// Package postprocess applies path rewriting, existence checks, glob
// filtering, exclusion-marker scanning, and the covered/uncovered filter to
// a frozen coverage.Map (spec §4.4).
package postprocess

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/multierr"

	"github.com/grcov-go/grcov/internal/coverage"
	"github.com/grcov-go/grcov/internal/logger"
)

// PathMapping is one `from -> to` rewrite entry (spec §4.4 step 2).
type PathMapping struct {
	From string
	To   string
}

// Options configures the post-processing pass; every field is optional
// (zero value means "do not apply this step").
type Options struct {
	SourceDir         string
	PrefixDir         string
	PathMappings      []PathMapping
	IgnoreNotExisting bool
	IgnoreGlobs       []string
	KeepOnlyGlobs     []string
	Exclusion         coverage.ExclusionPatterns
	Filter            string // "", "covered", or "uncovered"
}

// Processor runs the validated steps in spec §4.4's fixed order.
type Processor struct {
	opts     Options
	scanner  *coverage.ExclusionScanner
	ignore   []string
	keepOnly []string
}

// New validates opts and compiles every regex/glob once up front. Invalid
// globs, regexes, or path-mapping entries are fatal at startup (spec §4.4,
// §7); every problem found is collected via multierr rather than stopping
// at the first one, so a user sees every misconfiguration in one run (§A.4).
func New(opts Options) (*Processor, error) {
	var errs error

	for _, g := range opts.IgnoreGlobs {
		if !doublestar.ValidatePattern(g) {
			errs = multierr.Append(errs, fmt.Errorf("invalid --ignore glob %q", g))
			continue
		}
	}
	for _, g := range opts.KeepOnlyGlobs {
		if !doublestar.ValidatePattern(g) {
			errs = multierr.Append(errs, fmt.Errorf("invalid --keep-only glob %q", g))
			continue
		}
	}
	for _, m := range opts.PathMappings {
		if m.From == "" {
			errs = multierr.Append(errs, fmt.Errorf("empty --path-mapping source"))
		}
	}

	scanner, err := coverage.NewExclusionScanner(opts.Exclusion)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("invalid exclusion regex: %w", err))
	}

	switch opts.Filter {
	case "", "covered", "uncovered":
	default:
		errs = multierr.Append(errs, fmt.Errorf("invalid --filter %q", opts.Filter))
	}

	if errs != nil {
		return nil, errs
	}

	return &Processor{
		opts:     opts,
		scanner:  scanner,
		ignore:   opts.IgnoreGlobs,
		keepOnly: opts.KeepOnlyGlobs,
	}, nil
}

// Run applies every step of spec §4.4 to m in order, mutating it in place.
func (p *Processor) Run(m *coverage.Map) error {
	p.stripPrefix(m)
	p.applyPathMapping(m)
	if p.opts.IgnoreNotExisting {
		p.filterExistence(m)
	}
	p.filterGlobs(m)
	if err := p.scanExclusions(m); err != nil {
		return fmt.Errorf("postprocess: %w", err)
	}
	if p.opts.Filter != "" {
		p.filterCoverage(m)
	}
	return nil
}

// stripPrefix removes opts.PrefixDir from every key, at component
// boundaries only (spec §4.4 step 1).
func (p *Processor) stripPrefix(m *coverage.Map) {
	prefix := normalize(p.opts.PrefixDir)
	if prefix == "" {
		return
	}
	prefix = strings.TrimSuffix(prefix, "/") + "/"

	for _, old := range m.Paths() {
		key := normalize(old)
		if strings.HasPrefix(key, prefix) {
			m.Rename(old, strings.TrimPrefix(key, prefix))
		}
	}
}

// applyPathMapping rewrites keys by the longest matching `from` prefix,
// ties broken by insertion order (spec §4.4 step 2).
func (p *Processor) applyPathMapping(m *coverage.Map) {
	if len(p.opts.PathMappings) == 0 {
		return
	}
	for _, old := range m.Paths() {
		key := normalize(old)
		best := -1
		bestLen := -1
		for i, mapping := range p.opts.PathMappings {
			from := normalize(mapping.From)
			if strings.HasPrefix(key, from) && len(from) > bestLen {
				best = i
				bestLen = len(from)
			}
		}
		if best < 0 {
			continue
		}
		mapping := p.opts.PathMappings[best]
		newKey := normalize(mapping.To) + strings.TrimPrefix(key, normalize(mapping.From))
		m.Rename(old, newKey)
	}
}

// filterExistence drops entries whose source no longer resolves to a
// readable file under SourceDir (spec §4.4 step 3).
func (p *Processor) filterExistence(m *coverage.Map) {
	for _, key := range m.Paths() {
		full := key
		if p.opts.SourceDir != "" && !filepath.IsAbs(key) {
			full = filepath.Join(p.opts.SourceDir, key)
		}
		if _, err := os.Stat(full); err != nil {
			m.Delete(key)
		}
	}
}

// filterGlobs applies --ignore then --keep-only against the canonicalized
// key (spec §4.4 step 4).
func (p *Processor) filterGlobs(m *coverage.Map) {
	if len(p.ignore) == 0 && len(p.keepOnly) == 0 {
		return
	}
	for _, key := range m.Paths() {
		clean := normalize(key)
		for _, g := range p.ignore {
			if ok, _ := doublestar.Match(g, clean); ok {
				m.Delete(key)
				goto next
			}
		}
		if len(p.keepOnly) > 0 {
			keep := false
			for _, g := range p.keepOnly {
				if ok, _ := doublestar.Match(g, clean); ok {
					keep = true
					break
				}
			}
			if !keep {
				m.Delete(key)
			}
		}
	next:
	}
}

// scanExclusions reads each surviving file once and removes excluded lines
// and branches (spec §4.4 step 5). Scanning is idempotent: a line or branch
// already deleted is simply absent on a repeat pass (spec §8).
func (p *Processor) scanExclusions(m *coverage.Map) error {
	if p.scanner == nil || !p.scanner.Enabled() {
		return nil
	}
	for _, key := range m.Paths() {
		rec, ok := m.Get(key)
		if !ok {
			continue
		}
		full := key
		if p.opts.SourceDir != "" && !filepath.IsAbs(key) {
			full = filepath.Join(p.opts.SourceDir, key)
		}
		if _, err := os.Stat(full); err != nil {
			continue // only scan files that still exist, per step 5's wording
		}
		ctx, err := p.scanner.Scan(full)
		if err != nil {
			logger.Warn("postprocess: scanning %s: %v", full, err)
			continue
		}
		coverage.Apply(rec, ctx)
	}
	return nil
}

// filterCoverage retains only files with at least one executed line
// ("covered") or at least one non-executed executable line ("uncovered"),
// per spec §4.4 step 6.
func (p *Processor) filterCoverage(m *coverage.Map) {
	for _, key := range m.Paths() {
		rec, ok := m.Get(key)
		if !ok {
			continue
		}
		hasExecuted := false
		hasUnexecuted := false
		for _, count := range rec.Lines() {
			if count > 0 {
				hasExecuted = true
			} else {
				hasUnexecuted = true
			}
		}
		switch p.opts.Filter {
		case "covered":
			if !hasExecuted {
				m.Delete(key)
			}
		case "uncovered":
			if !hasUnexecuted {
				m.Delete(key)
			}
		}
	}
}

// normalize forward-slashes a path key, the platform-neutral canonical form
// required by spec §9.
func normalize(p string) string {
	return path.Clean(filepath.ToSlash(p))
}
