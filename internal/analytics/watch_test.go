// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analytics

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchSeesOtherProcessWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	watcher := New(defaultCfg(), openStore(t, path), nil)
	writer := New(defaultCfg(), openStore(t, path), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	changes := watcher.Broker().Subscribe(ctx)

	watchDone := make(chan error, 1)
	go func() { watchDone <- watcher.Watch(ctx, 20*time.Millisecond) }()

	// Let Watch take its baseline before the foreign write.
	time.Sleep(60 * time.Millisecond)
	_, err := writer.Record(ctx, event("foreign write", 10, false))
	require.NoError(t, err)

	select {
	case c := <-changes:
		assert.Equal(t, ChangeExternal, c.Kind)
	case <-ctx.Done():
		t.Fatal("external change not observed")
	}

	cancel()
	assert.NoError(t, <-watchDone)
}

func TestWatchIgnoresOwnWrites(t *testing.T) {
	r := New(defaultCfg(), openStore(t, filepath.Join(t.TempDir(), "own.db")), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := r.Broker().Subscribe(ctx)
	go r.Watch(ctx, 10*time.Millisecond) //nolint:errcheck

	time.Sleep(30 * time.Millisecond)
	_, err := r.Record(ctx, event("own write", 10, false))
	require.NoError(t, err)

	c := <-changes
	assert.Equal(t, ChangeRecorded, c.Kind)
	select {
	case c := <-changes:
		t.Fatalf("unexpected change %+v", c)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatchNeedsStore(t *testing.T) {
	err := New(defaultCfg(), nil, nil).Watch(context.Background(), time.Second)
	assert.ErrorIs(t, err, ErrNoStore)
}
