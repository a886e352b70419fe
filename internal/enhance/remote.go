// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enhance

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/paper-search/internal/httputil"
	"github.com/pdiddy/paper-search/pkg/types"
)

// remoteClient speaks the enhancement service's HTTP contract.
type remoteClient struct {
	endpoint string
	http     *httputil.JSONClient
}

type processRequest struct {
	Query   string             `json:"query"`
	Context types.QueryContext `json:"context"`
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error,omitempty"`
}

// remoteParams is the service's process-query payload.
type remoteParams struct {
	Query       string         `json:"query"`
	Entities    []types.Entity `json:"entities"`
	Intent      []types.Intent `json:"intent"`
	Confidence  float64        `json:"confidence"`
	Explanation []string       `json:"explanation"`
	Sort        string         `json:"sort"`
	Complexity  float64        `json:"complexity"`
	Filters     struct {
		PublicationType string `json:"publication_type"`
	} `json:"filters"`
	Advanced struct {
		DateRange *struct {
			Start string `json:"start"`
		} `json:"date_range"`
	} `json:"advanced"`
}

var errRemoteRejected = errors.New("enhancement service reported failure")

func (c *remoteClient) process(ctx context.Context, query string, qc types.QueryContext) (types.EnhancedQueryParams, error) {
	var env envelope[remoteParams]
	if err := c.http.PostJSON(ctx, c.endpoint+"/process-query", processRequest{Query: query, Context: qc}, &env); err != nil {
		return types.EnhancedQueryParams{}, fmt.Errorf("process-query: %w", err)
	}
	if !env.Success {
		return types.EnhancedQueryParams{}, fmt.Errorf("process-query: %w: %s", errRemoteRejected, env.Error)
	}
	d := env.Data
	if strings.TrimSpace(d.Query) == "" {
		return types.EnhancedQueryParams{}, errors.New("process-query: empty rewritten query")
	}

	p := types.EnhancedQueryParams{
		Query:       d.Query,
		Entities:    d.Entities,
		Intents:     d.Intent,
		Confidence:  types.Clamp01(d.Confidence),
		Explanation: d.Explanation,
		Tier:        types.TierRemote,
		Complexity:  types.Clamp01(d.Complexity),
		Sort:        types.ParseSortOrder(d.Sort),
	}
	if len(p.Intents) == 0 {
		p.Intents = []types.Intent{{Type: types.IntentGeneral, Confidence: 0.5}}
	}
	if len(p.Entities) > 0 {
		p.Focus = determineFocus(p.Entities)
	}
	for _, pt := range strings.Split(d.Filters.PublicationType, ",") {
		if pt = strings.TrimSpace(pt); pt != "" {
			p.PublicationTypes = append(p.PublicationTypes, pt)
		}
	}
	if dr := d.Advanced.DateRange; dr != nil && dr.Start != "" {
		if t, ok := parseLooseTime(dr.Start); ok {
			p.DateFrom = &t
		}
	}
	return p, nil
}

func (c *remoteClient) suggestions(ctx context.Context, partial string) ([]types.Suggestion, error) {
	var env envelope[[]types.Suggestion]
	u := c.endpoint + "/suggestions?q=" + url.QueryEscape(partial)
	if err := c.http.GetJSON(ctx, u, nil, &env); err != nil {
		return nil, fmt.Errorf("suggestions: %w", err)
	}
	if !env.Success {
		return nil, fmt.Errorf("suggestions: %w: %s", errRemoteRejected, env.Error)
	}
	var out []types.Suggestion
	for _, s := range env.Data {
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		if s.Type == "mesh" || s.Type == "" {
			s.Type = types.SuggestionDomainTerm
		}
		s.Confidence = types.Clamp01(s.Confidence)
		out = append(out, s)
	}
	return out, nil
}

// parseLooseTime accepts RFC 3339 and the service's naive ISO timestamps.
func parseLooseTime(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
