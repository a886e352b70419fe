// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-search/internal/merge"
	"github.com/pdiddy/paper-search/internal/search"
	"github.com/pdiddy/paper-search/pkg/types"
)

// ErrAllSourcesFailed is returned by Pipeline.Run when no source answered.
var ErrAllSourcesFailed = errors.New("all sources failed")

// Enhancer rewrites queries and proposes alternatives. *enhance.Enhancer
// implements it.
type Enhancer interface {
	Enhance(ctx context.Context, query string, qc types.QueryContext) types.EnhancedQueryParams
	Alternatives(ctx context.Context, query string) []types.Suggestion
}

// Searcher fans a request out to every source. *search.Connector implements it.
type Searcher interface {
	Search(ctx context.Context, req search.Request) search.Fanout
}

// Pipeline runs one page of one query: enhance, search every source, merge.
type Pipeline struct {
	Enhancer Enhancer
	Searcher Searcher
	Merger   merge.Merger
	Log      *zap.Logger

	now func() time.Time
}

// NewPipeline returns a Pipeline with a merger using threshold.
func NewPipeline(e Enhancer, s Searcher, threshold float64, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{Enhancer: e, Searcher: s, Merger: merge.New(threshold), Log: log, now: time.Now}
}

// Outcome is the result of one pipeline run.
type Outcome struct {
	Query   types.SearchQuery
	Params  types.EnhancedQueryParams
	Results types.MergedResultSet

	// TotalKnown is false when no source reported a match count.
	TotalKnown bool

	// Failed lists the sources that errored.
	Failed []types.SourceTag

	Elapsed time.Duration
}

// Run executes q. Sources that fail are skipped; only when every source
// fails is ErrAllSourcesFailed returned, alongside the partial Outcome.
func (p *Pipeline) Run(ctx context.Context, q types.SearchQuery) (Outcome, error) {
	now := time.Now
	if p.now != nil {
		now = p.now
	}
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	start := now()

	out := Outcome{Query: q}
	out.Params = p.Enhancer.Enhance(ctx, q.Text, types.QueryContext{
		Offset:    q.Offset,
		Limit:     q.Limit,
		Filters:   q.Filters,
		Timestamp: start,
	})
	log.Debug("query enhanced",
		zap.String("query", q.Text),
		zap.String("tier", string(out.Params.Tier)),
		zap.String("rewritten", out.Params.Query),
		zap.Float64("confidence", out.Params.Confidence))

	fan := p.Searcher.Search(ctx, search.Request{
		Text:    q.Text,
		Term:    out.Params.Query,
		Offset:  q.Offset,
		Limit:   q.Limit,
		Filters: q.Filters,
		Sort:    ResolveSort(q.Filters.Sort, out.Params.Sort),
		Since:   out.Params.DateFrom,
	})

	results := make([]types.SourceResult, 0, len(fan.Outcomes))
	for _, o := range fan.Outcomes {
		if o.Err != nil {
			out.Failed = append(out.Failed, o.Source)
			continue
		}
		if o.Result.Total > 0 {
			out.TotalKnown = true
		}
		results = append(results, o.Result)
	}

	if fan.AllFailed() {
		out.Elapsed = now().Sub(start)
		return out, fmt.Errorf("searching %q: %w", q.Text, ErrAllSourcesFailed)
	}

	out.Results = p.Merger.MergeAll(q.Limit, results...)
	out.Elapsed = now().Sub(start)
	return out, nil
}

// ResolveSort picks the ordering for a request: an explicit user choice
// wins, then the enhancer's recommendation, then relevance.
func ResolveSort(user, enhanced types.SortOrder) types.SortOrder {
	if user != "" && user != types.SortRelevance {
		return user
	}
	if enhanced != "" {
		return enhanced
	}
	return types.SortRelevance
}
