// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package merge combines per-source result pages into one deduplicated,
// scored result set.
package merge

import (
	"strings"
	"unicode"

	"github.com/pdiddy/paper-search/pkg/types"
)

// DefaultThreshold is the title overlap above which a paper counts as a duplicate.
const DefaultThreshold = 0.8

// Merger deduplicates by title-token overlap. The zero value uses DefaultThreshold.
type Merger struct {
	// Threshold is compared with a strict greater-than.
	Threshold float64
}

// New returns a Merger with the given threshold. Values outside (0,1] fall
// back to DefaultThreshold.
func New(threshold float64) Merger {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return Merger{Threshold: threshold}
}

func (m Merger) threshold() float64 {
	if m.Threshold <= 0 || m.Threshold > 1 {
		return DefaultThreshold
	}
	return m.Threshold
}

// Merge combines a and b with the default threshold.
func Merge(a, b types.SourceResult, limit int) types.MergedResultSet {
	return Merger{}.Merge(a, b, limit)
}

// Merge concatenates a then b, drops duplicates (first seen wins), truncates
// to limit and scores the result. A limit <= 0 keeps everything.
func (m Merger) Merge(a, b types.SourceResult, limit int) types.MergedResultSet {
	return m.MergeAll(limit, a, b)
}

// MergeAll is Merge over any number of source results, in the given order.
func (m Merger) MergeAll(limit int, results ...types.SourceResult) types.MergedResultSet {
	set := types.MergedResultSet{PerSource: make(map[types.SourceTag]int)}

	var accepted []types.PaperRecord
	var acceptedTokens []map[string]struct{}
	for _, r := range results {
		set.TotalFound += r.Total
		for _, p := range r.Papers {
			if p.Source == "" {
				p.Source = r.Source
			}
			tokens := titleTokens(p.Title)
			if m.overlapsAny(tokens, acceptedTokens) {
				set.DuplicatesRemoved++
				continue
			}
			accepted = append(accepted, p)
			acceptedTokens = append(acceptedTokens, tokens)
		}
	}

	if limit > 0 && len(accepted) > limit {
		accepted = accepted[:limit]
	}
	if set.TotalFound < len(accepted) {
		set.TotalFound = len(accepted)
	}

	Score(accepted)
	for _, p := range accepted {
		if set.PerSource[p.Source] == 0 {
			set.Sources = append(set.Sources, p.Source)
		}
		set.PerSource[p.Source]++
	}
	set.Papers = accepted
	set.Quality = Quality(len(accepted), len(set.Sources))
	return set
}

// IsDuplicate reports whether title overlaps any paper in accepted by more
// than the threshold.
func (m Merger) IsDuplicate(title string, accepted []types.PaperRecord) bool {
	tokens := titleTokens(title)
	for _, p := range accepted {
		if Overlap(tokens, titleTokens(p.Title)) > m.threshold() {
			return true
		}
	}
	return false
}

// Append returns the papers of page that duplicate neither shown nor each
// other. Callers rescore the combined list with Score.
func (m Merger) Append(shown, page []types.PaperRecord) (added []types.PaperRecord, dups int) {
	acceptedTokens := make([]map[string]struct{}, 0, len(shown)+len(page))
	for _, p := range shown {
		acceptedTokens = append(acceptedTokens, titleTokens(p.Title))
	}
	for _, p := range page {
		tokens := titleTokens(p.Title)
		if m.overlapsAny(tokens, acceptedTokens) {
			dups++
			continue
		}
		added = append(added, p)
		acceptedTokens = append(acceptedTokens, tokens)
	}
	return added, dups
}

func (m Merger) overlapsAny(tokens map[string]struct{}, accepted []map[string]struct{}) bool {
	t := m.threshold()
	for _, other := range accepted {
		if Overlap(tokens, other) > t {
			return true
		}
	}
	return false
}

// Score assigns position-based relevance in place: 1.0 for the first paper
// down to 0.1 for the last.
func Score(papers []types.PaperRecord) {
	n := len(papers)
	for i := range papers {
		if n == 1 {
			papers[i].RelevanceScore = 1
			continue
		}
		papers[i].RelevanceScore = 1 - float64(i)/float64(n-1)*0.9
	}
}

// Quality scores a merged page of count papers drawn from sources sources.
func Quality(count, sources int) types.Quality {
	conf := 0.5
	if count > 0 {
		conf += 0.3
	}
	if sources >= 2 {
		conf += 0.2
	}
	if count > 5 {
		conf += 0.1
	}
	return types.Quality{
		Confidence: types.Clamp01(conf),
		Accuracy:   types.Clamp01(float64(count) / 10),
	}
}

// Overlap is the Jaccard index of two token sets. Two empty sets overlap 0.
func Overlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// TitleOverlap is Overlap over the tokens of two titles.
func TitleOverlap(a, b string) float64 {
	return Overlap(titleTokens(a), titleTokens(b))
}

// titleTokens lowercases title, splits on whitespace and trims surrounding
// punctuation from each word.
func titleTokens(title string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(title))
	tokens := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if f != "" {
			tokens[f] = struct{}{}
		}
	}
	return tokens
}
