// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session drives one interactive search session: it runs the
// enhance, search and merge pipeline for new searches and further pages,
// keeps the session state, renders snapshots, and records analytics events
// without delaying the display.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-search/internal/merge"
	"github.com/pdiddy/paper-search/pkg/types"
)

// State is the controller's position in the session state machine.
type State int

const (
	Idle State = iota
	Searching
	Displaying
	Failed
	Blank
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Searching:
		return "searching"
	case Displaying:
		return "displaying"
	case Failed:
		return "failed"
	case Blank:
		return "blank"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var (
	// ErrBusy is returned by NewSearch while another search is in flight.
	ErrBusy = errors.New("a search is already in progress")

	// ErrCannotLoadMore is returned when there is no further page to load.
	ErrCannotLoadMore = errors.New("no further results can be loaded now")

	// ErrNothingToRetry is returned by Retry before any search ran.
	ErrNothingToRetry = errors.New("no previous search to retry")

	// ErrStale is returned when results arrive for a superseded request.
	// They are discarded.
	ErrStale = errors.New("results superseded by a newer request")
)

// DefaultPageSize is used when Config.PageSize is not positive.
const DefaultPageSize = 20

// Recorder stores analytics events. *analytics.Recorder implements it.
type Recorder interface {
	Record(ctx context.Context, in types.RecordInput) (*types.SearchAnalyticsRecord, error)
}

// Renderer displays snapshots. Render is called without the controller lock held.
type Renderer interface {
	Render(Snapshot)
}

// RenderFunc adapts a function to Renderer.
type RenderFunc func(Snapshot)

// Render calls f(s).
func (f RenderFunc) Render(s Snapshot) { f(s) }

// Snapshot is an immutable copy of the session state.
type Snapshot struct {
	State       State
	Query       types.SearchQuery
	Params      types.EnhancedQueryParams
	Papers      []types.PaperRecord
	TotalFound  int
	Quality     types.Quality
	Duplicates  int
	HasMore     bool
	LoadingMore bool

	// PageStart is the index of the first paper added by the latest page.
	PageStart int

	// Failure is a user-facing reason. It names the query and never
	// contains upstream response bodies.
	Failure string

	// FailedSources lists sources that errored on the latest page.
	FailedSources []types.SourceTag

	// Alternatives are offered when a search found nothing.
	Alternatives []types.Suggestion

	Generation uint64
}

// NoResults reports whether a finished search found nothing.
func (s Snapshot) NoResults() bool {
	return s.State == Displaying && len(s.Papers) == 0
}

// state is the mutable session state owned by the controller.
type state struct {
	status      State
	query       types.SearchQuery
	params      types.EnhancedQueryParams
	papers      []types.PaperRecord
	total       int
	quality     types.Quality
	duplicates  int
	hasMore     bool
	loadingMore bool
	pageStart   int
	failure     string
	failed      []types.SourceTag
	alts        []types.Suggestion
	sources     map[types.SourceTag]bool
	generation  uint64
}

// Config wires a Controller. Only Pipeline is required.
type Config struct {
	Pipeline *Pipeline
	Recorder Recorder
	History  *History
	Location *Location
	Renderer Renderer
	PageSize int
	Log      *zap.Logger
}

// Controller is safe for concurrent use.
type Controller struct {
	pipeline *Pipeline
	recorder Recorder
	history  *History
	location *Location
	renderer Renderer
	pageSize int
	log      *zap.Logger

	mu sync.Mutex
	st state

	// pending tracks analytics writes still in flight.
	pending sync.WaitGroup
}

// NewController returns an Idle controller.
func NewController(cfg Config) *Controller {
	c := &Controller{
		pipeline: cfg.Pipeline,
		recorder: cfg.Recorder,
		history:  cfg.History,
		location: cfg.Location,
		renderer: cfg.Renderer,
		pageSize: cfg.PageSize,
		log:      cfg.Log,
	}
	if c.pageSize <= 0 {
		c.pageSize = DefaultPageSize
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.history == nil {
		c.history = NewHistory(nil, c.log)
	}
	return c
}

// History returns the recent-query list.
func (c *Controller) History() *History { return c.history }

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	st := c.st
	return Snapshot{
		State:         st.status,
		Query:         st.query,
		Params:        st.params,
		Papers:        append([]types.PaperRecord(nil), st.papers...),
		TotalFound:    st.total,
		Quality:       st.quality,
		Duplicates:    st.duplicates,
		HasMore:       st.hasMore,
		LoadingMore:   st.loadingMore,
		PageStart:     st.pageStart,
		Failure:       st.failure,
		FailedSources: append([]types.SourceTag(nil), st.failed...),
		Alternatives:  append([]types.Suggestion(nil), st.alts...),
		Generation:    st.generation,
	}
}

func (c *Controller) render(s Snapshot) {
	if c.renderer != nil {
		c.renderer.Render(s)
	}
}

// NewSearch starts a fresh search for text. It returns ErrBusy without
// side effects while another search is running. A blank query moves the
// controller to Blank and is not an error. A search in which every source
// failed leaves the controller in Failed and returns a nil error; the
// snapshot carries the reason.
func (c *Controller) NewSearch(ctx context.Context, text string, filters types.Filters) (Snapshot, error) {
	text = strings.TrimSpace(text)

	c.mu.Lock()
	if c.st.status == Searching {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, ErrBusy
	}
	c.st = state{generation: c.st.generation + 1}
	if text == "" {
		c.st.status = Blank
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.render(snap)
		return snap, nil
	}
	q := types.SearchQuery{Text: text, Filters: filters, Offset: 0, Limit: c.pageSize}
	c.st.status = Searching
	c.st.query = q
	gen := c.st.generation
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.render(snap)
	c.history.Add(ctx, text)
	if c.location != nil {
		c.location.SetQuery(text)
	}

	out, err := c.pipeline.Run(ctx, q)
	var alts []types.Suggestion
	if err == nil && len(out.Results.Papers) == 0 {
		alts = c.pipeline.Enhancer.Alternatives(ctx, text)
	}

	c.mu.Lock()
	if c.st.generation != gen {
		c.mu.Unlock()
		return Snapshot{}, ErrStale
	}
	c.st.params = out.Params
	c.st.failed = out.Failed
	if err != nil {
		c.st.status = Failed
		c.st.failure = failureReason(text)
	} else {
		c.st.status = Displaying
		c.st.papers = out.Results.Papers
		c.st.total = out.Results.TotalFound
		c.st.quality = out.Results.Quality
		c.st.duplicates = out.Results.DuplicatesRemoved
		c.st.hasMore = hasMore(out, 0)
		c.st.sources = make(map[types.SourceTag]bool)
		for _, s := range out.Results.Sources {
			c.st.sources[s] = true
		}
		c.st.alts = alts
	}
	snap = c.snapshotLocked()
	c.mu.Unlock()

	c.render(snap)
	c.record(ctx, out, err, types.SearchTypeNew)
	if err != nil {
		c.log.Warn("search failed", zap.String("query", text), zap.Error(err))
	}
	return snap, nil
}

// LoadMore fetches the next page and appends its new papers. It is valid
// only while Displaying with more results and no page already loading.
func (c *Controller) LoadMore(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	if c.st.status != Displaying || !c.st.hasMore || c.st.loadingMore {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, ErrCannotLoadMore
	}
	c.st.loadingMore = true
	gen := c.st.generation
	offset := len(c.st.papers)
	q := c.st.query
	q.Offset = offset
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.render(snap)
	out, err := c.pipeline.Run(ctx, q)

	c.mu.Lock()
	if c.st.generation != gen || len(c.st.papers) != offset {
		c.mu.Unlock()
		c.log.Debug("discarding stale page", zap.String("query", q.Text), zap.Int("offset", offset))
		return Snapshot{}, ErrStale
	}
	c.st.loadingMore = false
	c.st.failed = out.Failed
	c.st.pageStart = offset
	if err != nil {
		c.st.failure = failureReason(q.Text)
	} else {
		c.st.failure = ""
		added, dups := c.pipeline.Merger.Append(c.st.papers, out.Results.Papers)
		papers := append(append([]types.PaperRecord(nil), c.st.papers...), added...)
		merge.Score(papers)
		c.st.papers = papers
		c.st.duplicates += out.Results.DuplicatesRemoved + dups
		if out.TotalKnown && out.Results.TotalFound > c.st.total {
			c.st.total = out.Results.TotalFound
		}
		for _, s := range out.Results.Sources {
			c.st.sources[s] = true
		}
		c.st.quality = merge.Quality(len(papers), len(c.st.sources))
		c.st.hasMore = len(added) > 0 && hasMore(out, offset)
	}
	snap = c.snapshotLocked()
	c.mu.Unlock()

	c.render(snap)
	c.record(ctx, out, err, types.SearchTypeLoadMore)
	return snap, nil
}

// Retry reruns the last query with its filters.
func (c *Controller) Retry(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	q := c.st.query
	c.mu.Unlock()
	if q.Text == "" {
		return c.Snapshot(), ErrNothingToRetry
	}
	return c.NewSearch(ctx, q.Text, q.Filters)
}

// Wait blocks until every analytics write started so far has finished.
func (c *Controller) Wait() {
	c.pending.Wait()
}

// hasMore reports whether another page likely exists after a page fetched
// at offset. Without a reported total, a full page means there may be more.
func hasMore(out Outcome, offset int) bool {
	shown := offset + len(out.Results.Papers)
	if out.TotalKnown {
		return out.Results.TotalFound > shown
	}
	return len(out.Results.Papers) >= out.Query.Limit && out.Query.Limit > 0
}

func failureReason(query string) string {
	return fmt.Sprintf("Search for %q failed: no paper source could be reached. Try again.", query)
}

// record sends the analytics event in the background. Rendering has
// already happened.
func (c *Controller) record(ctx context.Context, out Outcome, runErr error, typ types.SearchType) {
	if c.recorder == nil {
		return
	}
	rt := float64(out.Elapsed) / float64(time.Millisecond)
	in := types.RecordInput{
		Query:        out.Query.Text,
		Enhanced:     out.Params.Enhanced(),
		ResponseTime: &rt,
		Explanation:  out.Params.Explanation,
		Filters:      out.Query.Filters,
		SearchType:   typ,
	}
	if runErr != nil {
		zero, none := 0.0, 0
		in.Status = types.StatusError
		in.Confidence = &zero
		in.ResultCount = &none
	} else {
		conf, n := out.Params.Confidence, len(out.Results.Papers)
		in.Status = types.StatusSuccess
		in.Confidence = &conf
		in.ResultCount = &n
	}

	ctx = context.WithoutCancel(ctx)
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		rec, err := c.recorder.Record(ctx, in)
		if err != nil {
			c.log.Warn("recording analytics failed", zap.String("query", in.Query), zap.Error(err))
			return
		}
		c.log.Debug("analytics recorded", zap.String("id", rec.ID), zap.String("type", string(typ)))
	}()
}
