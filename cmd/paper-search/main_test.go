// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/pdiddy/paper-search/internal/session"
	"github.com/pdiddy/paper-search/pkg/types"
)

func TestNewLogger(t *testing.T) {
	l, err := newLogger("warn", false)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	l, err = newLogger("bogus", false)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))

	l, err = newLogger("error", true)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestStateLines(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	r := stateLines(&buf)

	q := types.SearchQuery{Text: "asthma"}
	r.Render(session.Snapshot{State: session.Searching, Query: q})
	r.Render(session.Snapshot{State: session.Displaying, Query: q})
	r.Render(session.Snapshot{State: session.Failed, Query: q, Failure: "Search for \"asthma\" failed"})
	r.Render(session.Snapshot{State: session.Displaying, Query: q, Papers: []types.PaperRecord{{}}, FailedSources: []types.SourceTag{types.SourcePubMed}})

	assert.Equal(t, "Searching for \"asthma\"...\n"+
		"No papers found for \"asthma\".\n"+
		"Search for \"asthma\" failed\n"+
		"Some sources did not answer: pubmed\n", buf.String())
}

func TestResultSetSlicesFromPageStart(t *testing.T) {
	s := session.Snapshot{
		Papers:     []types.PaperRecord{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		TotalFound: 40,
		Duplicates: 2,
	}
	set := resultSet(s, 2)
	require.Len(t, set.Papers, 1)
	assert.Equal(t, "c", set.Papers[0].ID)
	assert.Equal(t, 40, set.TotalFound)
	assert.Equal(t, 2, set.DuplicatesRemoved)
}
