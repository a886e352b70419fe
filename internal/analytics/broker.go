// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analytics

import (
	"context"
	"sync"
	"time"
)

// ChangeKind says what happened to the analytics data.
type ChangeKind string

const (
	// ChangeRecorded is a new event written by this process.
	ChangeRecorded ChangeKind = "recorded"

	// ChangeCleared means history and aggregates were emptied.
	ChangeCleared ChangeKind = "cleared"

	// ChangeExternal is a write made by another process sharing the store or channel.
	ChangeExternal ChangeKind = "external"
)

// Change is one analytics change notification.
type Change struct {
	Kind     ChangeKind `json:"kind"`
	RecordID string     `json:"record_id,omitempty"`

	// Remote is true when the event was stored by the remote analytics service.
	Remote bool `json:"remote,omitempty"`

	// Origin identifies the publishing process for cross-process relays.
	Origin string    `json:"origin,omitempty"`
	At     time.Time `json:"at"`
}

// subscriberBuffer is the per-subscriber channel capacity.
const subscriberBuffer = 10

// Broker fans change notifications out to in-process subscribers.
//
// Channels are buffered and publishing never blocks: a subscriber that
// falls more than subscriberBuffer changes behind misses the overflow.
type Broker struct {
	mu     sync.RWMutex
	subs   []chan Change
	closed bool
}

// NewBroker returns an empty Broker.
func NewBroker() *Broker {
	return &Broker{}
}

// Subscribe returns a channel of changes. The channel is closed when ctx is
// cancelled or the broker is closed.
func (b *Broker) Subscribe(ctx context.Context) <-chan Change {
	ch := make(chan Change, subscriberBuffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch
	}
	b.subs = append(b.subs, ch)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.unsubscribe(ch)
	}()
	return ch
}

// Publish delivers c to every subscriber that has room.
func (b *Broker) Publish(c Change) {
	if c.At.IsZero() {
		c.At = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- c:
		default:
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Broker) unsubscribe(ch chan Change) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub == ch {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			close(ch)
			return
		}
	}
}

// Close closes every subscription channel. Later Subscribe calls get a
// closed channel and Publish becomes a no-op.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
