// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enhance

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-search/internal/fallback"
	"github.com/pdiddy/paper-search/pkg/types"
)

// MaxSuggestions caps every suggestion list.
const MaxSuggestions = 8

// Suggest returns up to MaxSuggestions completions for partial, from the
// remote service when available and from local sources otherwise. Texts are
// unique case-insensitively.
func (e *Enhancer) Suggest(ctx context.Context, partial string) []types.Suggestion {
	partial = strings.TrimSpace(partial)
	if partial == "" {
		return nil
	}

	chain := fallback.New[[]types.Suggestion]()
	if e.remote != nil {
		chain.Then(string(types.TierRemote), func(ctx context.Context) ([]types.Suggestion, error) {
			return e.remote.suggestions(ctx, partial)
		})
	}
	chain.Then(string(types.TierLocal), func(ctx context.Context) ([]types.Suggestion, error) {
		return e.localSuggestions(ctx, partial), nil
	})

	res, err := chain.Run(ctx)
	if err != nil {
		return nil
	}
	for _, skipped := range res.Skipped {
		e.log.Debug("suggestion tier skipped", zap.Error(skipped))
	}
	return dedupe(res.Value)
}

func (e *Enhancer) localSuggestions(ctx context.Context, partial string) []types.Suggestion {
	p := strings.ToLower(partial)
	var out []types.Suggestion

	terms := make([]string, 0, len(domainTerms))
	for term := range domainTerms {
		if strings.HasPrefix(term, p) {
			terms = append(terms, term)
		}
	}
	sort.Strings(terms)
	for _, term := range terms {
		out = append(out, types.Suggestion{
			Text:        term,
			Type:        types.SuggestionDomainTerm,
			Description: fmt.Sprintf("Search for: %s", domainTerms[term]),
			Confidence:  0.9,
		})
	}

	items := e.history.Items(ctx)
	for i := len(items) - 1; i >= 0; i-- {
		if strings.Contains(strings.ToLower(items[i].Query), p) {
			out = append(out, types.Suggestion{
				Text:        items[i].Query,
				Type:        types.SuggestionHistory,
				Description: "From your search history",
				Confidence:  0.6,
			})
		}
	}

	if e.trending != nil {
		trending, err := e.trending.Trending(ctx, MaxSuggestions)
		if err != nil {
			e.log.Debug("trending terms unavailable", zap.Error(err))
		}
		for _, t := range trending {
			if strings.HasPrefix(t.Term, p) {
				out = append(out, types.Suggestion{
					Text:        t.Term,
					Type:        types.SuggestionTrending,
					Description: fmt.Sprintf("Trending: searched %d times this week", t.Count),
					Confidence:  0.5,
				})
			}
		}
	}
	return out
}

func dedupe(in []types.Suggestion) []types.Suggestion {
	seen := make(map[string]bool, len(in))
	var out []types.Suggestion
	for _, s := range in {
		key := strings.ToLower(strings.TrimSpace(s.Text))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
		if len(out) == MaxSuggestions {
			break
		}
	}
	return out
}

// Alternatives proposes replacement queries when a search found nothing:
// related canonical terms for recognized topics, then local suggestions for
// the first word.
func (e *Enhancer) Alternatives(ctx context.Context, query string) []types.Suggestion {
	var out []types.Suggestion
	if a, err := analyze(query); err == nil {
		for _, r := range a.related {
			for _, term := range r.Related {
				out = append(out, types.Suggestion{
					Text:        term,
					Type:        types.SuggestionDomainTerm,
					Description: fmt.Sprintf("Related to %s", r.Primary),
					Confidence:  0.6,
				})
			}
		}
		for _, en := range a.entities {
			out = append(out, types.Suggestion{
				Text:        en.Canonical,
				Type:        types.SuggestionDomainTerm,
				Description: "Canonical term for " + en.Surface,
				Confidence:  en.Confidence,
			})
		}
		if len(a.words) > 0 {
			out = append(out, e.localSuggestions(ctx, a.words[0])...)
		}
	}
	return dedupe(out)
}
