// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package enhance rewrites free-text queries into structured search
// parameters. A remote enhancement service is tried first; when it is absent
// or fails, local dictionary and pattern heuristics take over, and as a last
// resort the raw query is searched as an exact phrase.
package enhance

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-search/internal/fallback"
	"github.com/pdiddy/paper-search/internal/httputil"
	"github.com/pdiddy/paper-search/internal/kvstore"
	"github.com/pdiddy/paper-search/pkg/types"
)

// TrendingSource supplies recently popular search terms for suggestions.
type TrendingSource interface {
	Trending(ctx context.Context, limit int) ([]types.TrendingTerm, error)
}

// Enhancer is safe for concurrent use.
type Enhancer struct {
	remote   *remoteClient
	history  *History
	trending TrendingSource
	log      *zap.Logger
	now      func() time.Time
}

// Option configures an Enhancer.
type Option func(*Enhancer)

// WithTrending adds analytics trending terms to local suggestions.
func WithTrending(t TrendingSource) Option {
	return func(e *Enhancer) { e.trending = t }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Enhancer) { e.now = now }
}

// WithHTTPClient sets the client used for the remote tier.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Enhancer) {
		if e.remote != nil {
			e.remote.http.Client = c
		}
	}
}

// New builds an Enhancer. An empty cfg.Endpoint disables the remote tier.
// A nil store keeps the interaction history in memory.
func New(cfg types.EnhancerConfig, store *kvstore.Store, log *zap.Logger, opts ...Option) *Enhancer {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Enhancer{
		history: NewHistory(store, cfg.HistoryLimit, log),
		log:     log,
		now:     time.Now,
	}
	if ep := strings.TrimRight(cfg.Endpoint, "/"); ep != "" {
		e.remote = &remoteClient{
			endpoint: ep,
			http: &httputil.JSONClient{
				Client:     &http.Client{},
				UserAgent:  cfg.UserAgent,
				Timeout:    cfg.Timeout,
				MaxRetries: 1,
				Log:        log,
			},
		}
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// History exposes the interaction log.
func (e *Enhancer) History() *History { return e.history }

// Enhance never fails: it returns the first tier that produces parameters.
// The result always has a non-empty Query and a Confidence in [0,1].
func (e *Enhancer) Enhance(ctx context.Context, query string, qc types.QueryContext) types.EnhancedQueryParams {
	chain := fallback.New[types.EnhancedQueryParams]()
	if e.remote != nil {
		chain.Then(string(types.TierRemote), func(ctx context.Context) (types.EnhancedQueryParams, error) {
			return e.remote.process(ctx, query, qc)
		})
	}
	chain.Then(string(types.TierLocal), func(context.Context) (types.EnhancedQueryParams, error) {
		return enhanceLocal(query, e.now())
	})

	res, err := chain.Run(ctx)
	if err != nil {
		e.log.Debug("enhancement degraded to passthrough", zap.String("query", query), zap.Error(err))
		return passthrough(query)
	}
	for _, skipped := range res.Skipped {
		e.log.Debug("enhancement tier skipped", zap.Error(skipped))
	}

	p := res.Value
	if p.Tier == types.TierRemote {
		complexity := p.Complexity
		if a, err := analyze(query); err == nil {
			complexity = a.complexity
		}
		e.history.Add(ctx, Interaction{
			Query:      query,
			Timestamp:  e.now(),
			Context:    qc,
			Complexity: complexity,
		})
	}
	return p
}
