// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package kvstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "kv.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestPutGetRoundTrip(t *testing.T) {
	s, _ := openTemp(t)
	ctx := context.Background()

	type entry struct {
		Query string `json:"query"`
		Count int    `json:"count"`
	}
	require.NoError(t, s.Put(ctx, KeySessionHistory, []entry{{"asthma", 2}}))

	var got []entry
	require.NoError(t, s.Get(ctx, KeySessionHistory, &got))
	assert.Equal(t, []entry{{"asthma", 2}}, got)
}

func TestGetMissingKey(t *testing.T) {
	s, _ := openTemp(t)
	var v map[string]any
	err := s.Get(context.Background(), "nope", &v)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStampVersionsAndWriter(t *testing.T) {
	s, _ := openTemp(t)
	ctx := context.Background()

	st, err := s.Stamp(ctx, KeyAnalyticsData)
	require.NoError(t, err)
	assert.Zero(t, st)

	require.NoError(t, s.Put(ctx, KeyAnalyticsData, 1))
	require.NoError(t, s.Put(ctx, KeyAnalyticsData, 2))

	st, err = s.Stamp(ctx, KeyAnalyticsData)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Version)
	assert.Equal(t, s.WriterID(), st.Writer)
	assert.False(t, st.UpdatedAt.IsZero())
}

func TestPutAllWritesEveryKey(t *testing.T) {
	s, _ := openTemp(t)
	ctx := context.Background()

	require.NoError(t, s.PutAll(ctx, map[string]any{
		KeySearchHistory: []string{"a"},
		KeyAnalyticsData: map[string]int{"total": 1},
	}))

	var hist []string
	var agg map[string]int
	require.NoError(t, s.Get(ctx, KeySearchHistory, &hist))
	require.NoError(t, s.Get(ctx, KeyAnalyticsData, &agg))
	assert.Equal(t, []string{"a"}, hist)
	assert.Equal(t, 1, agg["total"])
}

func TestPutAllRejectsUnencodableValueAtomically(t *testing.T) {
	s, _ := openTemp(t)
	ctx := context.Background()

	err := s.PutAll(ctx, map[string]any{
		KeySearchHistory: []string{"a"},
		KeyAnalyticsData: make(chan int),
	})
	require.Error(t, err)

	var hist []string
	assert.ErrorIs(t, s.Get(ctx, KeySearchHistory, &hist), ErrNotFound)
}

func TestSecondInstanceSeesWrites(t *testing.T) {
	s1, path := openTemp(t)
	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	ctx := context.Background()
	require.NoError(t, s1.Put(ctx, KeySearchHistory, []string{"x"}))

	st, err := s2.Stamp(ctx, KeySearchHistory)
	require.NoError(t, err)
	assert.Equal(t, s1.WriterID(), st.Writer)
	assert.NotEqual(t, s2.WriterID(), st.Writer)
}

func TestDelete(t *testing.T) {
	s, _ := openTemp(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, KeyQueryHistory, []int{1}))
	require.NoError(t, s.Delete(ctx, KeyQueryHistory, "missing"))

	var v []int
	assert.ErrorIs(t, s.Get(ctx, KeyQueryHistory, &v), ErrNotFound)
}

func TestReopenSkipsAppliedMigrations(t *testing.T) {
	s, path := openTemp(t)
	require.NoError(t, s.Put(context.Background(), KeyUserPreferences, "x"))
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	var v string
	require.NoError(t, s2.Get(context.Background(), KeyUserPreferences, &v))
	assert.Equal(t, "x", v)
}
