// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fallback runs an ordered list of attempts and keeps the first one
// that succeeds. The enhancer, the suggestion lookup, and the analytics read
// path all degrade from a remote service to local computation this way.
package fallback

import (
	"context"
	"errors"
	"fmt"
)

// Attempt is one tier of a Chain.
type Attempt[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// Chain is an ordered list of attempts. The zero value has no tiers.
type Chain[T any] struct {
	attempts []Attempt[T]
}

// New returns a Chain over the given attempts, tried in order.
func New[T any](attempts ...Attempt[T]) *Chain[T] {
	return &Chain[T]{attempts: attempts}
}

// Then appends a tier and returns the chain for chaining.
func (c *Chain[T]) Then(name string, run func(ctx context.Context) (T, error)) *Chain[T] {
	c.attempts = append(c.attempts, Attempt[T]{Name: name, Run: run})
	return c
}

// Result reports which tier produced a value and why earlier tiers failed.
type Result[T any] struct {
	Value T
	Tier  string

	// Skipped holds one wrapped error per tier that failed before Tier.
	Skipped []error
}

// ErrExhausted is returned when every tier failed.
var ErrExhausted = errors.New("all fallback tiers failed")

// Run tries each tier in order and returns the first success. A cancelled
// context stops the chain between tiers. When every tier fails, the returned
// error wraps ErrExhausted and each tier's error.
func (c *Chain[T]) Run(ctx context.Context) (Result[T], error) {
	var res Result[T]
	for _, a := range c.attempts {
		if err := ctx.Err(); err != nil {
			res.Skipped = append(res.Skipped, err)
			break
		}
		v, err := a.Run(ctx)
		if err == nil {
			res.Value = v
			res.Tier = a.Name
			return res, nil
		}
		res.Skipped = append(res.Skipped, fmt.Errorf("%s: %w", a.Name, err))
	}
	return res, errors.Join(append([]error{ErrExhausted}, res.Skipped...)...)
}

// Len returns the number of tiers.
func (c *Chain[T]) Len() int { return len(c.attempts) }
