// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-search/internal/kvstore"
)

// HistoryLimit caps the recent-query list.
const HistoryLimit = 10

// History is the most-recent-first list of distinct queries. With a nil
// store it lives in memory only.
type History struct {
	mu     sync.Mutex
	store  *kvstore.Store
	log    *zap.Logger
	loaded bool
	items  []string
}

// NewHistory returns a History backed by store.
func NewHistory(store *kvstore.Store, log *zap.Logger) *History {
	if log == nil {
		log = zap.NewNop()
	}
	return &History{store: store, log: log}
}

func (h *History) load(ctx context.Context) {
	if h.loaded {
		return
	}
	h.loaded = true
	if h.store == nil {
		return
	}
	if err := h.store.Get(ctx, kvstore.KeySessionHistory, &h.items); err != nil && !errors.Is(err, kvstore.ErrNotFound) {
		h.log.Warn("loading session history", zap.Error(err))
	}
}

// Add moves q to the front, dropping an earlier copy and the oldest entry
// past HistoryLimit. Persistence failures are logged.
func (h *History) Add(ctx context.Context, q string) {
	if q == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.load(ctx)

	items := make([]string, 0, len(h.items)+1)
	items = append(items, q)
	for _, it := range h.items {
		if it != q {
			items = append(items, it)
		}
	}
	if len(items) > HistoryLimit {
		items = items[:HistoryLimit]
	}
	h.items = items

	if h.store != nil {
		if err := h.store.Put(ctx, kvstore.KeySessionHistory, items); err != nil {
			h.log.Warn("saving session history", zap.Error(err))
		}
	}
}

// Items returns a copy of the list, most recent first.
func (h *History) Items(ctx context.Context) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.load(ctx)
	return append([]string(nil), h.items...)
}
