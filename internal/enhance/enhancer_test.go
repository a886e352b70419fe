// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enhance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pdiddy/paper-search/internal/kvstore"
	"github.com/pdiddy/paper-search/pkg/types"
)

func newTestEnhancer(t *testing.T, endpoint string, store *kvstore.Store, opts ...Option) *Enhancer {
	t.Helper()
	cfg := types.EnhancerConfig{Endpoint: endpoint, HistoryLimit: 100}
	cfg.Timeout = 2 * time.Second
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return New(cfg, store, zaptest.NewLogger(t), opts...)
}

func openStore(t *testing.T) *kvstore.Store {
	t.Helper()
	s, err := kvstore.Open(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEnhance_UnreachableRemoteFallsBackToLocal(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	e := newTestEnhancer(t, url, nil)
	for _, q := range []string{"diabetes treatment", "zzz qqq", "??", "MI"} {
		p := e.Enhance(context.Background(), q, types.QueryContext{})
		assert.NotEmpty(t, p.Query, q)
		assert.GreaterOrEqual(t, p.Confidence, 0.0, q)
		assert.LessOrEqual(t, p.Confidence, 1.0, q)
		assert.NotEqual(t, types.TierRemote, p.Tier, q)
	}
	assert.Empty(t, e.History().Items(context.Background()), "fallback tiers never record history")
}

func TestEnhance_NoEndpointUsesLocal(t *testing.T) {
	e := newTestEnhancer(t, "", nil)
	p := e.Enhance(context.Background(), "diabetes treatment", types.QueryContext{})
	assert.Equal(t, types.TierLocal, p.Tier)
	assert.GreaterOrEqual(t, p.Confidence, 0.8)
}

func TestEnhance_PassthroughWhenLocalFails(t *testing.T) {
	e := newTestEnhancer(t, "", nil)
	p := e.Enhance(context.Background(), "%%%", types.QueryContext{})
	assert.Equal(t, types.TierPassthrough, p.Tier)
	assert.InDelta(t, 0.3, p.Confidence, 1e-9)
}

func TestEnhance_RemoteSuccessRecordsHistory(t *testing.T) {
	var gotBody processRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ml/process-query", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{
			"success": true,
			"data": {
				"query": "\"Neoplasms\"[MeSH Terms]",
				"intent": [{"type": "treatment", "confidence": 0.8}],
				"confidence": 1.7,
				"explanation": ["Focusing on treatment studies"],
				"sort": "publication date",
				"filters": {"publication_type": "clinical trial, randomized controlled trial"},
				"advanced": {"date_range": {"start": "2025-03-14T10:00:00.123456"}}
			}
		}`))
	}))
	defer ts.Close()

	store := openStore(t)
	e := newTestEnhancer(t, ts.URL+"/api/ml/", store)
	qc := types.QueryContext{Offset: 0, Limit: 20}
	p := e.Enhance(context.Background(), "cancer treatment", qc)

	assert.Equal(t, "cancer treatment", gotBody.Query)
	assert.Equal(t, 20, gotBody.Context.Limit)

	assert.Equal(t, types.TierRemote, p.Tier)
	assert.Equal(t, `"Neoplasms"[MeSH Terms]`, p.Query)
	assert.InDelta(t, 1.0, p.Confidence, 1e-9, "remote confidence is clamped")
	assert.Equal(t, types.SortYear, p.Sort)
	assert.Equal(t, []string{"clinical trial", "randomized controlled trial"}, p.PublicationTypes)
	require.NotNil(t, p.DateFrom)
	assert.Equal(t, 2025, p.DateFrom.Year())
	assert.True(t, p.Enhanced())

	items := e.History().Items(context.Background())
	require.Len(t, items, 1)
	assert.Equal(t, "cancer treatment", items[0].Query)
	assert.InDelta(t, 0.35, items[0].Complexity, 1e-9)

	var persisted []Interaction
	require.NoError(t, store.Get(context.Background(), kvstore.KeyQueryHistory, &persisted))
	assert.Len(t, persisted, 1)
}

func TestEnhance_RemoteRejections(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"success": false, "error": "boom", "fallback": true}`},
		{"success false", http.StatusOK, `{"success": false, "error": "nope"}`},
		{"empty query", http.StatusOK, `{"success": true, "data": {"query": "  ", "confidence": 0.9}}`},
		{"malformed", http.StatusOK, `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			e := newTestEnhancer(t, ts.URL, nil)
			p := e.Enhance(context.Background(), "asthma", types.QueryContext{})
			assert.Equal(t, types.TierLocal, p.Tier)
			assert.Equal(t, "Asthma", p.Focus.Primary)
			assert.Empty(t, e.History().Items(context.Background()))
		})
	}
}

func TestHistory_CapAndPreferences(t *testing.T) {
	store := openStore(t)
	h := NewHistory(store, 12, zaptest.NewLogger(t))
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		h.Add(ctx, Interaction{Query: "breast cancer", Timestamp: fixedNow, Complexity: 0.4})
	}
	assert.Empty(t, h.Preferences(ctx).PreferredDomains, "needs five interactions")

	h.Add(ctx, Interaction{Query: "cardiac arrest", Timestamp: fixedNow, Complexity: 0.9})
	prefs := h.Preferences(ctx)
	assert.Equal(t, map[string]int{"oncology": 4, "cardiology": 1}, prefs.PreferredDomains)
	assert.InDelta(t, 0.5, prefs.ComplexityPreference, 1e-9)

	for i := 0; i < 10; i++ {
		h.Add(ctx, Interaction{Query: "asthma", Timestamp: fixedNow, Complexity: 0.2})
	}
	assert.Len(t, h.Items(ctx), 12)
	prefs = h.Preferences(ctx)
	assert.Empty(t, prefs.PreferredDomains["oncology"], "only the last ten count")

	reloaded := NewHistory(store, 12, nil)
	assert.Len(t, reloaded.Items(ctx), 12)
	assert.InDelta(t, 0.2, reloaded.Preferences(ctx).ComplexityPreference, 1e-9)
}

type stubTrending []types.TrendingTerm

func (s stubTrending) Trending(context.Context, int) ([]types.TrendingTerm, error) {
	return s, nil
}

func TestSuggest_Local(t *testing.T) {
	e := newTestEnhancer(t, "", nil, WithTrending(stubTrending{{Term: "diabetic", Count: 4, TrendScore: 0.4}}))
	e.History().Add(context.Background(), Interaction{Query: "Diabetes in pregnancy", Timestamp: fixedNow})

	got := e.Suggest(context.Background(), "DIAB")
	require.Len(t, got, 3)
	assert.Equal(t, types.Suggestion{Text: "diabetes", Type: types.SuggestionDomainTerm, Description: "Search for: Diabetes Mellitus", Confidence: 0.9}, got[0])
	assert.Equal(t, types.SuggestionHistory, got[1].Type)
	assert.Equal(t, "Diabetes in pregnancy", got[1].Text)
	assert.InDelta(t, 0.6, got[1].Confidence, 1e-9)
	assert.Equal(t, types.SuggestionTrending, got[2].Type)
}

func TestSuggest_CappedAndUnique(t *testing.T) {
	e := newTestEnhancer(t, "", nil)
	for i := 0; i < 3; i++ {
		e.History().Add(context.Background(), Interaction{Query: "cancer", Timestamp: fixedNow})
	}
	got := e.Suggest(context.Background(), "c")
	assert.Len(t, got, MaxSuggestions)

	seen := map[string]bool{}
	for _, s := range got {
		assert.False(t, seen[strings.ToLower(s.Text)], s.Text)
		seen[strings.ToLower(s.Text)] = true
	}
	assert.Empty(t, e.Suggest(context.Background(), "   "))
}

func TestSuggest_Remote(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/suggestions", r.URL.Path)
		assert.Equal(t, "heart att", r.URL.Query().Get("q"))
		w.Write([]byte(`{"success": true, "data": [
			{"text": "heart attack", "type": "mesh", "description": "Search for: Myocardial Infarction", "confidence": 0.9},
			{"text": "Heart Attack", "type": "history", "description": "dup", "confidence": 0.6},
			{"text": "", "type": "history", "confidence": 0.6}
		]}`))
	}))
	defer ts.Close()

	e := newTestEnhancer(t, ts.URL, nil)
	got := e.Suggest(context.Background(), "heart att")
	require.Len(t, got, 1)
	assert.Equal(t, types.SuggestionDomainTerm, got[0].Type)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestAlternatives(t *testing.T) {
	e := newTestEnhancer(t, "", nil)
	got := e.Alternatives(context.Background(), "diabetes xyzzy")
	require.NotEmpty(t, got)
	assert.Equal(t, "Insulin", got[0].Text)
	assert.LessOrEqual(t, len(got), MaxSuggestions)
}
