// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analytics

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRedisBroadcasterDecode(t *testing.T) {
	b := NewRedisBroadcaster("127.0.0.1:0", "", zaptest.NewLogger(t))
	defer b.Close()

	own, _ := json.Marshal(Change{Kind: ChangeRecorded, Origin: b.Origin()})
	_, relay := b.decode(string(own))
	assert.False(t, relay, "own messages are skipped")

	peer, _ := json.Marshal(Change{Kind: ChangeRecorded, RecordID: "search_9_bbbbbbbbb", Origin: "other"})
	c, relay := b.decode(string(peer))
	require.True(t, relay)
	assert.Equal(t, ChangeExternal, c.Kind)
	assert.Equal(t, "search_9_bbbbbbbbb", c.RecordID)

	_, relay = b.decode("{not json")
	assert.False(t, relay)
}

func TestRedisBroadcasterUnreachable(t *testing.T) {
	b := NewRedisBroadcaster("127.0.0.1:1", "test:analytics", nil)
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	assert.Error(t, b.Broadcast(ctx, Change{Kind: ChangeRecorded}))
	assert.Error(t, b.Relay(ctx, NewBroker()))
}

// TestRedisBroadcasterRoundTrip needs a live server; set PAPER_SEARCH_TEST_REDIS
// to its address to run it.
func TestRedisBroadcasterRoundTrip(t *testing.T) {
	addr := os.Getenv("PAPER_SEARCH_TEST_REDIS")
	if addr == "" {
		t.Skip("PAPER_SEARCH_TEST_REDIS not set")
	}
	channel := "paper-search:test:" + time.Now().Format("150405.000000")
	sender := NewRedisBroadcaster(addr, channel, nil)
	defer sender.Close()
	receiver := NewRedisBroadcaster(addr, channel, zaptest.NewLogger(t))
	defer receiver.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	broker := NewBroker()
	changes := broker.Subscribe(ctx)
	go receiver.Relay(ctx, broker) //nolint:errcheck

	assert.Eventually(t, func() bool {
		_ = sender.Broadcast(ctx, Change{Kind: ChangeRecorded, RecordID: "search_1_ccccccccc"})
		select {
		case c := <-changes:
			return c.Kind == ChangeExternal && c.RecordID == "search_1_ccccccccc"
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 4*time.Second, 50*time.Millisecond)
}
