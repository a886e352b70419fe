// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package analytics records search events and derives the dashboard views.
//
// Events go to a remote analytics service when one is configured. The first
// failed remote write trips a breaker that keeps the Recorder on the local
// path for the rest of its life. Local events are kept in the kvstore as a
// capped newest-first history plus running aggregates that are never
// trimmed, and every change is announced on a Broker.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/paper-search/internal/fallback"
	"github.com/pdiddy/paper-search/internal/httputil"
	"github.com/pdiddy/paper-search/internal/kvstore"
	"github.com/pdiddy/paper-search/pkg/types"
)

// DefaultHistoryLimit caps the stored event history.
const DefaultHistoryLimit = 100

// SnapshotVersion is written into every export.
const SnapshotVersion = "2.0.0"

// DefaultTrendingLimit is the number of trending terms returned by Export.
const DefaultTrendingLimit = 10

// Recorder is safe for concurrent use.
type Recorder struct {
	remote  *remoteClient
	tripped atomic.Bool

	// mu serializes the local read-modify-write.
	mu    sync.Mutex
	store *kvstore.Store

	// Used only when store is nil.
	memHistory []types.SearchAnalyticsRecord
	memAgg     types.Aggregates

	limit       int
	broker      *Broker
	broadcaster Broadcaster
	log         *zap.Logger
	now         func() time.Time
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// WithHTTPClient sets the client used for the remote service.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Recorder) {
		if r.remote != nil {
			r.remote.http.Client = c
		}
	}
}

// WithBroker publishes changes on b instead of a private broker.
func WithBroker(b *Broker) Option {
	return func(r *Recorder) { r.broker = b }
}

// WithBroadcaster forwards every local change to other processes.
func WithBroadcaster(b Broadcaster) Option {
	return func(r *Recorder) { r.broadcaster = b }
}

// New builds a Recorder. An empty cfg.Endpoint means local-only. A nil store
// keeps events in memory.
func New(cfg types.AnalyticsConfig, store *kvstore.Store, log *zap.Logger, opts ...Option) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	limit := cfg.HistoryLimit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	r := &Recorder{
		store:  store,
		limit:  limit,
		broker: NewBroker(),
		log:    log,
		now:    time.Now,
	}
	if ep := strings.TrimRight(cfg.Endpoint, "/"); ep != "" {
		r.remote = &remoteClient{
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
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Broker returns the broker changes are published on.
func (r *Recorder) Broker() *Broker { return r.broker }

// Tripped reports whether the remote path has been disabled.
func (r *Recorder) Tripped() bool { return r.tripped.Load() }

// remoteOpen reports whether the remote path may be tried.
func (r *Recorder) remoteOpen() bool {
	return r.remote != nil && !r.tripped.Load()
}

func (r *Recorder) trip(err error) {
	if r.tripped.CompareAndSwap(false, true) {
		r.log.Warn("analytics service unavailable, recording locally from now on", zap.Error(err))
	}
}

// Record stores one search event and returns the stored record.
func (r *Recorder) Record(ctx context.Context, in types.RecordInput) (*types.SearchAnalyticsRecord, error) {
	chain := fallback.New[*types.SearchAnalyticsRecord]()
	if r.remoteOpen() {
		chain.Then("remote", func(ctx context.Context) (*types.SearchAnalyticsRecord, error) {
			rec, err := r.remote.record(ctx, in)
			if err != nil {
				r.trip(err)
				return nil, err
			}
			return rec, nil
		})
	}
	chain.Then("local", func(ctx context.Context) (*types.SearchAnalyticsRecord, error) {
		return r.recordLocal(ctx, in)
	})

	res, err := chain.Run(ctx)
	if err != nil {
		return nil, err
	}
	r.announce(ctx, Change{Kind: ChangeRecorded, RecordID: res.Value.ID, Remote: res.Tier == "remote"})
	return res.Value, nil
}

func (r *Recorder) recordLocal(ctx context.Context, in types.RecordInput) (*types.SearchAnalyticsRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	history, agg, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	now := r.now()
	rec := normalize(in, now)
	rec.ID = uniqueID(now, history)

	history = append([]types.SearchAnalyticsRecord{rec}, history...)
	if len(history) > r.limit {
		history = history[:r.limit]
	}

	agg.TotalSearches++
	agg.TotalResponseTime += rec.ResponseTime
	agg.TotalConfidence += rec.Confidence
	if rec.Enhanced {
		agg.EnhancedSearches++
	}
	if rec.Status == types.StatusSuccess {
		agg.SuccessfulSearches++
	}
	agg.LastUpdated = now

	if err := r.save(ctx, history, agg); err != nil {
		return nil, err
	}
	r.log.Debug("search recorded locally", zap.String("id", rec.ID), zap.Int("history", len(history)))
	return &rec, nil
}

// normalize clamps and defaults the numeric fields of in.
func normalize(in types.RecordInput, now time.Time) types.SearchAnalyticsRecord {
	rec := types.SearchAnalyticsRecord{
		Timestamp:   now,
		Query:       in.Query,
		Enhanced:    in.Enhanced,
		Confidence:  0.5,
		Status:      in.Status,
		Explanation: in.Explanation,
		QueryLength: len(strings.Fields(in.Query)),
		Filters:     in.Filters,
		SearchType:  in.SearchType,
	}
	if in.ResponseTime != nil {
		rec.ResponseTime = max(*in.ResponseTime, 0)
	}
	if in.Confidence != nil {
		rec.Confidence = types.Clamp01(*in.Confidence)
	}
	if in.ResultCount != nil {
		rec.ResultCount = max(*in.ResultCount, 0)
	}
	if rec.Status == "" {
		rec.Status = types.StatusSuccess
	}
	if rec.SearchType == "" {
		rec.SearchType = types.SearchTypeNew
	}
	if rec.Explanation == nil {
		rec.Explanation = []string{}
	}
	return rec
}

// NewRecordID returns "search_<unix-ms>_<9 hex chars>".
func NewRecordID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("search_%d_%s", now.UnixMilli(), suffix)
}

func uniqueID(now time.Time, history []types.SearchAnalyticsRecord) string {
	for {
		id := NewRecordID(now)
		clash := false
		for _, r := range history {
			if r.ID == id {
				clash = true
				break
			}
		}
		if !clash {
			return id
		}
	}
}

// load reads the current history and aggregates. Callers that modify them
// must hold mu.
func (r *Recorder) load(ctx context.Context) ([]types.SearchAnalyticsRecord, types.Aggregates, error) {
	if r.store == nil {
		return append([]types.SearchAnalyticsRecord(nil), r.memHistory...), r.memAgg, nil
	}

	var history []types.SearchAnalyticsRecord
	if err := r.store.Get(ctx, kvstore.KeySearchHistory, &history); err != nil && !errors.Is(err, kvstore.ErrNotFound) {
		return nil, types.Aggregates{}, err
	}
	var agg types.Aggregates
	if err := r.store.Get(ctx, kvstore.KeyAnalyticsData, &agg); err != nil && !errors.Is(err, kvstore.ErrNotFound) {
		return nil, types.Aggregates{}, err
	}
	return history, agg, nil
}

func (r *Recorder) save(ctx context.Context, history []types.SearchAnalyticsRecord, agg types.Aggregates) error {
	if r.store == nil {
		r.memHistory, r.memAgg = history, agg
		return nil
	}
	if err := r.store.PutAll(ctx, map[string]any{
		kvstore.KeySearchHistory: history,
		kvstore.KeyAnalyticsData: agg,
	}); err != nil {
		return fmt.Errorf("persisting analytics: %w", err)
	}
	return nil
}

// announce publishes c locally and forwards it to other processes.
func (r *Recorder) announce(ctx context.Context, c Change) {
	if c.At.IsZero() {
		c.At = r.now().UTC()
	}
	r.broker.Publish(c)
	if r.broadcaster != nil {
		if err := r.broadcaster.Broadcast(ctx, c); err != nil {
			r.log.Warn("broadcasting analytics change failed", zap.Error(err))
		}
	}
}

// snapshot reads history and aggregates under mu.
func (r *Recorder) snapshot(ctx context.Context) ([]types.SearchAnalyticsRecord, types.Aggregates, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

// Summary returns the analytics summary, from the remote service while the
// breaker is closed and from local data otherwise. Reads never trip the breaker.
func (r *Recorder) Summary(ctx context.Context) (types.AnalyticsSummary, error) {
	chain := fallback.New[types.AnalyticsSummary]()
	if r.remoteOpen() {
		chain.Then("remote", r.remote.summary)
	}
	chain.Then("local", r.LocalSummary)
	res, err := chain.Run(ctx)
	return res.Value, err
}

// LocalSummary recomputes the summary from local data.
func (r *Recorder) LocalSummary(ctx context.Context) (types.AnalyticsSummary, error) {
	history, agg, err := r.snapshot(ctx)
	if err != nil {
		return types.AnalyticsSummary{}, err
	}
	return summarize(agg, history, r.now()), nil
}

// History returns the stored events, newest first.
func (r *Recorder) History(ctx context.Context) ([]types.SearchAnalyticsRecord, error) {
	chain := fallback.New[[]types.SearchAnalyticsRecord]()
	if r.remoteOpen() {
		chain.Then("remote", r.remote.history)
	}
	chain.Then("local", func(ctx context.Context) ([]types.SearchAnalyticsRecord, error) {
		history, _, err := r.snapshot(ctx)
		if history == nil && err == nil {
			history = []types.SearchAnalyticsRecord{}
		}
		return history, err
	})
	res, err := chain.Run(ctx)
	return res.Value, err
}

// Hourly returns 24 buckets for the trailing 24 hours, oldest first.
func (r *Recorder) Hourly(ctx context.Context) ([]types.HourlyBucket, error) {
	chain := fallback.New[[]types.HourlyBucket]()
	if r.remoteOpen() {
		chain.Then("remote", r.remote.hourly)
	}
	chain.Then("local", func(ctx context.Context) ([]types.HourlyBucket, error) {
		history, _, err := r.snapshot(ctx)
		if err != nil {
			return nil, err
		}
		return hourly(history, r.now()), nil
	})
	res, err := chain.Run(ctx)
	return res.Value, err
}

// Trending returns up to limit frequent query words from the last week.
func (r *Recorder) Trending(ctx context.Context, limit int) ([]types.TrendingTerm, error) {
	history, _, err := r.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return trending(history, r.now(), limit), nil
}

// Performance returns response-time percentiles and effectiveness figures.
func (r *Recorder) Performance(ctx context.Context) (types.PerformanceMetrics, error) {
	history, _, err := r.snapshot(ctx)
	if err != nil {
		return types.PerformanceMetrics{}, err
	}
	return performance(history), nil
}

// Export bundles every local view into one snapshot.
func (r *Recorder) Export(ctx context.Context) (types.AnalyticsSnapshot, error) {
	history, agg, err := r.snapshot(ctx)
	if err != nil {
		return types.AnalyticsSnapshot{}, err
	}
	if history == nil {
		history = []types.SearchAnalyticsRecord{}
	}
	now := r.now()
	return types.AnalyticsSnapshot{
		Metadata: types.SnapshotMetadata{
			RecordCount: len(history),
			ExportedAt:  now,
			Version:     SnapshotVersion,
		},
		Summary:     summarize(agg, history, now),
		Aggregates:  agg,
		History:     history,
		Hourly:      hourly(history, now),
		Trending:    trending(history, now, DefaultTrendingLimit),
		Performance: performance(history),
	}, nil
}

// Clear empties the local history and aggregates.
func (r *Recorder) Clear(ctx context.Context) error {
	r.mu.Lock()
	err := r.save(ctx, []types.SearchAnalyticsRecord{}, types.Aggregates{LastUpdated: r.now()})
	r.mu.Unlock()
	if err != nil {
		return err
	}
	r.log.Info("analytics data cleared")
	r.announce(ctx, Change{Kind: ChangeCleared})
	return nil
}
