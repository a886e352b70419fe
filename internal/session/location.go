// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// QueryParam is the deep-link parameter that carries the query text.
const QueryParam = "q"

// DefaultLinkBase is used when no base URL is configured.
const DefaultLinkBase = "paper-search://search"

// ErrNoQuery is returned by QueryFromLink when the link carries no query.
var ErrNoQuery = errors.New("link has no query")

// Location mirrors the current query into a shareable URL so the same search
// can be reproduced later.
type Location struct {
	mu   sync.Mutex
	base url.URL
}

// NewLocation parses base. An empty base uses DefaultLinkBase.
func NewLocation(base string) (*Location, error) {
	if base == "" {
		base = DefaultLinkBase
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parsing link base: %w", err)
	}
	return &Location{base: *u}, nil
}

// SetQuery replaces the query parameter. Other parameters are kept.
func (l *Location) SetQuery(q string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v := l.base.Query()
	if q == "" {
		v.Del(QueryParam)
	} else {
		v.Set(QueryParam, q)
	}
	l.base.RawQuery = v.Encode()
}

// URL returns the current link.
func (l *Location) URL() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.base.String()
}

// Query returns the query currently in the link.
func (l *Location) Query() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.base.Query().Get(QueryParam)
}

// QueryFromLink extracts the query text from a deep link. A bare query
// string such as "?q=asthma" is accepted.
func QueryFromLink(link string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return "", fmt.Errorf("parsing link: %w", err)
	}
	q := strings.TrimSpace(u.Query().Get(QueryParam))
	if q == "" {
		return "", ErrNoQuery
	}
	return q, nil
}
