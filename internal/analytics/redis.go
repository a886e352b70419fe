// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Broadcaster forwards local changes to other processes.
type Broadcaster interface {
	Broadcast(ctx context.Context, c Change) error
}

// DefaultChannel is the pub/sub channel used when none is configured.
const DefaultChannel = "paper-search:analytics"

// RedisBroadcaster publishes changes on a Redis pub/sub channel and relays
// changes published by peers into a local Broker.
type RedisBroadcaster struct {
	client  *redis.Client
	channel string
	origin  string
	log     *zap.Logger
}

// NewRedisBroadcaster connects lazily to the Redis server at addr.
func NewRedisBroadcaster(addr, channel string, log *zap.Logger) *RedisBroadcaster {
	if channel == "" {
		channel = DefaultChannel
	}
	if log == nil {
		log = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		DB:          0,
		DialTimeout: 2 * time.Second,
		MaxRetries:  1,
	})
	return &RedisBroadcaster{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		log:     log,
	}
}

// Origin identifies this broadcaster in published changes.
func (b *RedisBroadcaster) Origin() string { return b.origin }

// Broadcast publishes c stamped with this broadcaster's origin.
func (b *RedisBroadcaster) Broadcast(ctx context.Context, c Change) error {
	c.Origin = b.origin
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding change: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publishing to %s: %w", b.channel, err)
	}
	return nil
}

// Relay subscribes to the channel and republishes peers' changes on broker
// as ChangeExternal until ctx is cancelled. Messages from this broadcaster
// are skipped.
func (b *RedisBroadcaster) Relay(ctx context.Context, broker *Broker) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to %s: %w", b.channel, err)
	}
	b.log.Debug("relaying analytics changes", zap.String("channel", b.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			c, relay := b.decode(msg.Payload)
			if relay {
				broker.Publish(c)
			}
		}
	}
}

func (b *RedisBroadcaster) decode(payload string) (Change, bool) {
	var c Change
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		b.log.Warn("dropping malformed change message", zap.Error(err))
		return Change{}, false
	}
	if c.Origin == b.origin {
		return Change{}, false
	}
	c.Kind = ChangeExternal
	return c, true
}

// Close releases the Redis connection pool.
func (b *RedisBroadcaster) Close() error {
	return b.client.Close()
}
