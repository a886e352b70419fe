// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enhance

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-search/internal/kvstore"
	"github.com/pdiddy/paper-search/pkg/types"
)

// Interaction is one remotely enhanced query kept for suggestions and preferences.
type Interaction struct {
	Query      string             `json:"query"`
	Timestamp  time.Time          `json:"timestamp"`
	Context    types.QueryContext `json:"context"`
	Complexity float64            `json:"complexity"`
}

// Preferences are advisory aggregates over recent interactions.
type Preferences struct {
	PreferredDomains     map[string]int `json:"preferred_domains,omitempty"`
	ComplexityPreference float64        `json:"complexity_preference"`
	LastUpdated          time.Time      `json:"last_updated"`
}

const (
	preferenceWindow  = 10
	preferenceMinimum = 5
)

// History is the bounded interaction log. With a nil store it lives in memory only.
type History struct {
	mu     sync.Mutex
	store  *kvstore.Store
	limit  int
	log    *zap.Logger
	loaded bool
	items  []Interaction
	prefs  Preferences
}

// NewHistory returns a History capped at limit entries.
func NewHistory(store *kvstore.Store, limit int, log *zap.Logger) *History {
	if limit <= 0 {
		limit = 100
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &History{store: store, limit: limit, log: log}
}

func (h *History) load(ctx context.Context) {
	if h.loaded {
		return
	}
	h.loaded = true
	if h.store == nil {
		return
	}
	if err := h.store.Get(ctx, kvstore.KeyQueryHistory, &h.items); err != nil && !errors.Is(err, kvstore.ErrNotFound) {
		h.log.Warn("discarding unreadable query history", zap.Error(err))
		h.items = nil
	}
	if err := h.store.Get(ctx, kvstore.KeyUserPreferences, &h.prefs); err != nil && !errors.Is(err, kvstore.ErrNotFound) {
		h.log.Warn("discarding unreadable preferences", zap.Error(err))
		h.prefs = Preferences{}
	}
}

// Add appends an interaction, trims to the limit, recomputes preferences,
// and persists both. Persistence failures are logged only.
func (h *History) Add(ctx context.Context, in Interaction) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.load(ctx)

	h.items = append(h.items, in)
	if len(h.items) > h.limit {
		h.items = append([]Interaction(nil), h.items[len(h.items)-h.limit:]...)
	}
	h.recompute(in.Timestamp)

	if h.store == nil {
		return
	}
	if err := h.store.PutAll(ctx, map[string]any{
		kvstore.KeyQueryHistory:    h.items,
		kvstore.KeyUserPreferences: h.prefs,
	}); err != nil {
		h.log.Warn("persisting query history", zap.Error(err))
	}
}

// recompute needs at least preferenceMinimum interactions and looks at the
// last preferenceWindow of them.
func (h *History) recompute(now time.Time) {
	if len(h.items) < preferenceMinimum {
		return
	}
	recent := h.items[max(0, len(h.items)-preferenceWindow):]

	domains := make(map[string]int)
	var total float64
	for _, it := range recent {
		q := strings.ToLower(it.Query)
		for domain, words := range preferenceDomains {
			for _, w := range words {
				if strings.Contains(q, w) {
					domains[domain]++
					break
				}
			}
		}
		total += it.Complexity
	}
	h.prefs = Preferences{
		PreferredDomains:     domains,
		ComplexityPreference: total / float64(len(recent)),
		LastUpdated:          now,
	}
}

// Items returns a copy of the interaction log, oldest first.
func (h *History) Items(ctx context.Context) []Interaction {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.load(ctx)
	return append([]Interaction(nil), h.items...)
}

// Preferences returns the current preference aggregates.
func (h *History) Preferences(ctx context.Context) Preferences {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.load(ctx)
	return h.prefs
}
