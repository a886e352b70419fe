// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package merge

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-search/pkg/types"
)

func papers(src types.SourceTag, titles ...string) []types.PaperRecord {
	out := make([]types.PaperRecord, len(titles))
	for i, t := range titles {
		out[i] = types.PaperRecord{ID: fmt.Sprintf("%s-%d", src, i), Title: t, Source: src}
	}
	return out
}

func pubmed(total int, titles ...string) types.SourceResult {
	return types.SourceResult{Source: types.SourcePubMed, Papers: papers(types.SourcePubMed, titles...), Total: total}
}

func semantic(total int, titles ...string) types.SourceResult {
	return types.SourceResult{Source: types.SourceSemanticScholar, Papers: papers(types.SourceSemanticScholar, titles...), Total: total}
}

func TestTitleOverlap(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"Metformin in Type 2 Diabetes", "metformin in type 2 diabetes.", 1},
		{"a b c d", "a b c e", 3.0 / 5.0},
		{"alpha", "beta", 0},
		{"", "", 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, TitleOverlap(tt.a, tt.b), 1e-9, "%q vs %q", tt.a, tt.b)
	}
}

func TestMergeFirstSeenWins(t *testing.T) {
	a := pubmed(40, "Metformin therapy in type 2 diabetes", "Insulin pumps in children")
	b := semantic(900, "Metformin Therapy in Type 2 Diabetes.", "Retinal screening with deep learning")

	set := Merge(a, b, 20)

	require.Len(t, set.Papers, 3)
	assert.Equal(t, types.SourcePubMed, set.Papers[0].Source, "source A copy kept")
	assert.Equal(t, "semantic_scholar-1", set.Papers[2].ID)
	assert.Equal(t, 1, set.DuplicatesRemoved)
	assert.Equal(t, 940, set.TotalFound)
	assert.Equal(t, map[types.SourceTag]int{types.SourcePubMed: 2, types.SourceSemanticScholar: 1}, set.PerSource)
	assert.Equal(t, []types.SourceTag{types.SourcePubMed, types.SourceSemanticScholar}, set.Sources)
}

func TestMergeThresholdIsStrict(t *testing.T) {
	// 4 of 5 tokens shared: overlap is exactly 0.8 and must be kept.
	a := pubmed(0, "one two three four")
	b := semantic(0, "one two three four five")
	set := Merge(a, b, 10)
	assert.Len(t, set.Papers, 2)

	set = New(0.5).Merge(a, b, 10)
	assert.Len(t, set.Papers, 1)
	assert.Equal(t, 1, set.DuplicatesRemoved)
}

func TestMergeInvariants(t *testing.T) {
	var at, bt []string
	for i := 0; i < 15; i++ {
		at = append(at, fmt.Sprintf("study of topic %d in adults", i))
		bt = append(bt, fmt.Sprintf("Study of topic %d in adults", i+7))
	}
	for _, limit := range []int{1, 5, 10, 20, 50} {
		set := Merge(pubmed(15, at...), semantic(15, bt...), limit)
		assert.LessOrEqual(t, len(set.Papers), limit)
		for i := range set.Papers {
			for j := i + 1; j < len(set.Papers); j++ {
				assert.LessOrEqual(t, TitleOverlap(set.Papers[i].Title, set.Papers[j].Title), DefaultThreshold,
					"limit %d: %q / %q", limit, set.Papers[i].Title, set.Papers[j].Title)
			}
		}
	}
}

func TestMergeOneSourceEmpty(t *testing.T) {
	b := semantic(3, "Retinal screening", "Glaucoma progression", "Retinal screening")
	set := Merge(types.SourceResult{Source: types.SourcePubMed}, b, 20)

	require.Len(t, set.Papers, 2)
	assert.Equal(t, "Retinal screening", set.Papers[0].Title)
	assert.Equal(t, "Glaucoma progression", set.Papers[1].Title)
	assert.Equal(t, []types.SourceTag{types.SourceSemanticScholar}, set.Sources)
	assert.InDelta(t, 0.8, set.Quality.Confidence, 1e-9)
	assert.InDelta(t, 0.2, set.Quality.Accuracy, 1e-9)
}

func TestMergeEmpty(t *testing.T) {
	set := Merge(types.SourceResult{}, types.SourceResult{}, 20)
	assert.Empty(t, set.Papers)
	assert.Zero(t, set.TotalFound)
	assert.InDelta(t, 0.5, set.Quality.Confidence, 1e-9)
	assert.Zero(t, set.Quality.Accuracy)
}

func TestQuality(t *testing.T) {
	tests := []struct {
		count, sources int
		conf, acc      float64
	}{
		{0, 0, 0.5, 0},
		{3, 1, 0.8, 0.3},
		{3, 2, 1.0, 0.3},
		{6, 2, 1.0, 0.6},
		{6, 1, 0.9, 0.6},
		{25, 2, 1.0, 1.0},
	}
	for _, tt := range tests {
		q := Quality(tt.count, tt.sources)
		assert.InDelta(t, tt.conf, q.Confidence, 1e-9, "count=%d sources=%d", tt.count, tt.sources)
		assert.InDelta(t, tt.acc, q.Accuracy, 1e-9, "count=%d sources=%d", tt.count, tt.sources)
	}
}

func TestScore(t *testing.T) {
	ps := papers(types.SourcePubMed, "a", "b", "c", "d")
	Score(ps)
	assert.InDelta(t, 1.0, ps[0].RelevanceScore, 1e-9)
	assert.InDelta(t, 0.7, ps[1].RelevanceScore, 1e-9)
	assert.InDelta(t, 0.1, ps[3].RelevanceScore, 1e-9)

	one := papers(types.SourcePubMed, "solo")
	Score(one)
	assert.Equal(t, 1.0, one[0].RelevanceScore)
}

func TestAppend(t *testing.T) {
	shown := papers(types.SourcePubMed, "Asthma in children", "Asthma biologics")
	page := papers(types.SourceSemanticScholar, "asthma in children", "Asthma and air pollution", "Asthma and Air Pollution")

	added, dups := Merger{}.Append(shown, page)
	require.Len(t, added, 1)
	assert.Equal(t, "Asthma and air pollution", added[0].Title)
	assert.Equal(t, 2, dups)

	assert.True(t, Merger{}.IsDuplicate("ASTHMA IN CHILDREN", shown))
	assert.False(t, Merger{}.IsDuplicate("Asthma", shown))
}
