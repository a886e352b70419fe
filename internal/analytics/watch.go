// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analytics

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-search/internal/kvstore"
)

// ErrNoStore is returned by Watch when the Recorder keeps events in memory.
var ErrNoStore = errors.New("analytics recorder has no durable store")

// DefaultWatchInterval is used when Watch is given a non-positive interval.
const DefaultWatchInterval = 2 * time.Second

// Watch polls the store every interval and publishes ChangeExternal when
// another process wrote the analytics keys. It returns when ctx is done.
func (r *Recorder) Watch(ctx context.Context, interval time.Duration) error {
	if r.store == nil {
		return ErrNoStore
	}
	if interval <= 0 {
		interval = DefaultWatchInterval
	}

	last, err := r.stamps(ctx)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		cur, err := r.stamps(ctx)
		if err != nil {
			r.log.Warn("polling analytics store failed", zap.Error(err))
			continue
		}
		for i := range cur {
			if cur[i].Version == last[i].Version && cur[i].Writer == last[i].Writer {
				continue
			}
			if cur[i].Writer != r.store.WriterID() {
				r.broker.Publish(Change{Kind: ChangeExternal, Origin: cur[i].Writer, At: cur[i].UpdatedAt})
				break
			}
		}
		last = cur
	}
}

var watchedKeys = [...]string{kvstore.KeySearchHistory, kvstore.KeyAnalyticsData}

func (r *Recorder) stamps(ctx context.Context) ([len(watchedKeys)]kvstore.Stamp, error) {
	var out [len(watchedKeys)]kvstore.Stamp
	for i, k := range watchedKeys {
		st, err := r.store.Stamp(ctx, k)
		if err != nil {
			return out, err
		}
		out[i] = st
	}
	return out, nil
}
