// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries the biomedical and general-academic paper APIs
// concurrently and normalizes their records into types.PaperRecord.
// Source-specific field names never leave the adapters in this package.
package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-search/pkg/types"
)

// Source searches a single upstream API. PubMedSource and
// SemanticScholarSource implement it.
type Source interface {
	Name() types.SourceTag
	Search(ctx context.Context, req Request) (types.SourceResult, error)
}

// Request is one page of one query as sent to every source.
type Request struct {
	// Text is the user's query as typed.
	Text string

	// Term is the enhancer's rewritten boolean query. Sources that understand
	// field-tagged syntax use it in place of Text.
	Term string

	Offset  int
	Limit   int
	Filters types.Filters

	// Sort is the resolved ordering for sources that sort client-side.
	Sort types.SortOrder

	// Since restricts results to publications on or after this time when set.
	Since *time.Time
}

// Outcome is one source's share of a Fanout.
type Outcome struct {
	Source  types.SourceTag
	Result  types.SourceResult
	Err     error
	Elapsed time.Duration
}

// Fanout holds one Outcome per configured source, in configuration order.
type Fanout struct {
	Outcomes []Outcome
}

// Result returns the result for tag, empty when the source failed or is absent.
// A failed source contributes no papers.
func (f Fanout) Result(tag types.SourceTag) types.SourceResult {
	for _, o := range f.Outcomes {
		if o.Source == tag && o.Err == nil {
			return o.Result
		}
	}
	return types.SourceResult{Source: tag}
}

// AllFailed reports whether every source errored. A Fanout with no
// outcomes counts as failed.
func (f Fanout) AllFailed() bool {
	for _, o := range f.Outcomes {
		if o.Err == nil {
			return false
		}
	}
	return true
}

// Err joins every source error, or returns nil.
func (f Fanout) Err() error {
	var errs []error
	for _, o := range f.Outcomes {
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.Source, o.Err))
		}
	}
	return errors.Join(errs...)
}

// DefaultTimeout bounds each source call when Connector.Timeout is zero.
const DefaultTimeout = 12 * time.Second

// Connector runs every source concurrently for each request.
type Connector struct {
	Sources []Source
	Timeout time.Duration
	Log     *zap.Logger
}

// NewConnector returns a Connector over sources.
func NewConnector(timeout time.Duration, log *zap.Logger, sources ...Source) *Connector {
	return &Connector{Sources: sources, Timeout: timeout, Log: log}
}

// Search issues req to every source in its own goroutine and waits for all
// of them. Failures are recorded per source and logged as warnings; they do
// not cancel the other sources.
func (c *Connector) Search(ctx context.Context, req Request) Fanout {
	log := c.Log
	if log == nil {
		log = zap.NewNop()
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	outcomes := make([]Outcome, len(c.Sources))
	var wg sync.WaitGroup
	for i, s := range c.Sources {
		wg.Add(1)
		go func(i int, s Source) {
			defer wg.Done()
			sctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			res, err := s.Search(sctx, req)
			res.Source = s.Name()
			outcomes[i] = Outcome{Source: s.Name(), Result: res, Err: err, Elapsed: time.Since(start)}
		}(i, s)
	}
	wg.Wait()

	for _, o := range outcomes {
		if o.Err != nil {
			log.Warn("source failed", zap.String("source", string(o.Source)), zap.Duration("elapsed", o.Elapsed), zap.Error(o.Err))
			continue
		}
		log.Debug("source returned",
			zap.String("source", string(o.Source)),
			zap.Int("papers", len(o.Result.Papers)),
			zap.Int("total", o.Result.Total),
			zap.Duration("elapsed", o.Elapsed))
	}
	return Fanout{Outcomes: outcomes}
}
