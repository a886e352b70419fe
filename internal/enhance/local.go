// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enhance

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/pdiddy/paper-search/pkg/types"
)

// errEmptyQuery fails the local tier when nothing survives normalization.
var errEmptyQuery = errors.New("query is empty after normalization")

// maxPhraseWords is the longest dictionary phrase, in words.
const maxPhraseWords = 3

// sentiment scores are fixed two-level values.
type sentiment struct {
	urgency     float64
	uncertainty float64
	specificity float64
}

// analysis is the local tier's intermediate view of a query.
type analysis struct {
	normalized   string
	words        []string
	entities     []types.Entity
	intents      []types.Intent
	sentiment    sentiment
	complexity   float64
	focus        types.Focus
	synonyms     []types.SynonymExpansion
	related      []types.RelatedTerms
	demographics []types.Demographic
	studyTypes   []string
}

// Normalize lowercases the query, replaces punctuation other than hyphens
// with spaces, and collapses whitespace.
func Normalize(q string) string {
	return strings.Join(strings.Fields(stripPunct(strings.ToLower(q))), " ")
}

func stripPunct(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, s)
}

// analyze runs every local heuristic over q.
func analyze(q string) (analysis, error) {
	raw := strings.Fields(stripPunct(q))
	if len(raw) == 0 {
		return analysis{}, errEmptyQuery
	}
	words := make([]string, len(raw))
	for i, w := range raw {
		words[i] = strings.ToLower(w)
	}

	a := analysis{
		normalized: strings.Join(words, " "),
		words:      words,
	}
	a.entities = matchEntities(raw, words)
	a.intents = classifyIntent(a.normalized)
	a.sentiment = analyzeSentiment(a.normalized)
	a.demographics = matchDemographics(a.normalized)
	a.studyTypes = matchStudyTypes(a.normalized)
	a.complexity = assessComplexity(a)
	a.focus = determineFocus(a.entities)
	a.synonyms = expandSynonyms(words)
	a.related = findRelated(a.entities)
	return a, nil
}

// matchEntities scans left to right. At each word the longest dictionary
// phrase wins and consumes its words, so nested shorter terms are dropped.
// Abbreviations match whole raw words with their exact case. Repeated
// canonicals keep the first occurrence.
func matchEntities(raw, words []string) []types.Entity {
	var out []types.Entity
	seen := make(map[string]bool)
	add := func(e types.Entity) {
		if seen[e.Canonical] {
			return
		}
		seen[e.Canonical] = true
		out = append(out, e)
	}

	for i := 0; i < len(words); {
		matched := 0
		for n := min(maxPhraseWords, len(words)-i); n >= 1; n-- {
			phrase := strings.Join(words[i:i+n], " ")
			canonical, ok := lookupTerm(phrase)
			if !ok {
				continue
			}
			add(types.Entity{
				Surface:    strings.Join(raw[i:i+n], " "),
				Canonical:  canonical,
				Kind:       types.EntityDomainTerm,
				Confidence: 0.9,
			})
			matched = n
			break
		}
		if matched > 0 {
			i += matched
			continue
		}
		if canonical, ok := abbreviations[raw[i]]; ok {
			add(types.Entity{
				Surface:    raw[i],
				Canonical:  canonical,
				Kind:       types.EntityAbbreviation,
				Confidence: 0.85,
			})
		}
		i++
	}
	return out
}

// lookupTerm finds phrase in the dictionary, also accepting a plural "s" on
// the last word.
func lookupTerm(phrase string) (string, bool) {
	if c, ok := domainTerms[phrase]; ok {
		return c, true
	}
	if strings.HasSuffix(phrase, "s") {
		if c, ok := domainTerms[strings.TrimSuffix(phrase, "s")]; ok {
			return c, true
		}
	}
	return "", false
}

func classifyIntent(q string) []types.Intent {
	var intents []types.Intent
	for _, p := range intentPatterns {
		if p.re.MatchString(q) {
			intents = append(intents, types.Intent{Type: p.name, Confidence: 0.8})
		}
	}
	if len(intents) == 0 {
		return []types.Intent{{Type: types.IntentGeneral, Confidence: 0.5}}
	}
	return intents
}

func analyzeSentiment(q string) sentiment {
	s := sentiment{urgency: 0.2, uncertainty: 0.3, specificity: 0.5}
	if urgencyPattern.MatchString(q) {
		s.urgency = 0.8
	}
	if uncertaintyPattern.MatchString(q) {
		s.uncertainty = 0.7
	}
	if specificityPattern.MatchString(q) {
		s.specificity = 0.9
	}
	return s
}

func matchDemographics(q string) []types.Demographic {
	var out []types.Demographic
	for _, p := range demographicPatterns {
		matches := p.re.FindAllString(q, -1)
		if len(matches) == 0 {
			continue
		}
		out = append(out, types.Demographic{Type: p.name, Values: uniqueSorted(matches)})
	}
	return out
}

func matchStudyTypes(q string) []string {
	var out []string
	for _, p := range studyTypePatterns {
		if p.re.MatchString(q) {
			out = append(out, p.name)
		}
	}
	return out
}

// assessComplexity is min(words*0.1,1) + min(entities*0.15,1) + 0.3 for a
// boolean operator, capped at 1. Demographics and study types count as entities.
func assessComplexity(a analysis) float64 {
	c := min(float64(len(a.words))*0.1, 1)
	n := len(a.entities) + len(a.demographics) + len(a.studyTypes)
	c += min(float64(n)*0.15, 1)
	if booleanPattern.MatchString(a.normalized) {
		c += 0.3
	}
	return min(c, 1)
}

func determineFocus(entities []types.Entity) types.Focus {
	if len(entities) == 0 {
		return types.Focus{}
	}
	f := types.Focus{Primary: entities[0].Canonical}
	for _, e := range entities[1:] {
		f.Secondary = append(f.Secondary, e.Canonical)
	}
	return f
}

// expandSynonyms returns expansions in query order, once per word.
func expandSynonyms(words []string) []types.SynonymExpansion {
	var out []types.SynonymExpansion
	seen := make(map[string]bool)
	for _, w := range words {
		key := w
		syns, ok := synonyms[key]
		if !ok && strings.HasSuffix(w, "s") {
			key = strings.TrimSuffix(w, "s")
			syns, ok = synonyms[key]
		}
		if !ok || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, types.SynonymExpansion{Original: key, Synonyms: append([]string(nil), syns...)})
	}
	return out
}

func findRelated(entities []types.Entity) []types.RelatedTerms {
	var out []types.RelatedTerms
	for _, e := range entities {
		if rel, ok := relatedTerms[e.Canonical]; ok {
			out = append(out, types.RelatedTerms{Primary: e.Canonical, Related: append([]string(nil), rel...)})
		}
	}
	return out
}

// rewrite assembles the boolean search string from the analysis.
func rewrite(a analysis) string {
	var parts []string
	if a.focus.Primary != "" {
		parts = append(parts, fmt.Sprintf("%q[MeSH Terms]", a.focus.Primary))
	}
	for _, term := range a.focus.Secondary {
		parts = append(parts, fmt.Sprintf("%q[MeSH Terms]", term))
	}
	for _, s := range a.synonyms {
		for _, syn := range s.Synonyms {
			parts = append(parts, fmt.Sprintf("%q[Title/Abstract]", syn))
		}
	}
	if len(parts) == 0 {
		return "(" + a.normalized + "[Title/Abstract])"
	}
	return strings.Join(parts, " OR ")
}

// confidence is 0.5 +0.3 for a primary focus +0.2 for a strong top intent
// -0.1 for uncertain language, clamped to [0,1].
func confidence(a analysis) float64 {
	c := 0.5
	if a.focus.Primary != "" {
		c += 0.3
	}
	if len(a.intents) > 0 && a.intents[0].Confidence > 0.7 {
		c += 0.2
	}
	if a.sentiment.uncertainty > 0.6 {
		c -= 0.1
	}
	return types.Clamp01(c)
}

// enhanceLocal is the heuristic tier.
func enhanceLocal(q string, now time.Time) (types.EnhancedQueryParams, error) {
	a, err := analyze(q)
	if err != nil {
		return types.EnhancedQueryParams{}, err
	}

	p := types.EnhancedQueryParams{
		Query:        rewrite(a),
		Entities:     a.entities,
		Intents:      a.intents,
		Confidence:   confidence(a),
		Tier:         types.TierLocal,
		Complexity:   a.complexity,
		Focus:        a.focus,
		Synonyms:     a.synonyms,
		Related:      a.related,
		StudyTypes:   a.studyTypes,
		Demographics: a.demographics,
	}

	if a.focus.Primary != "" {
		p.Explanation = append(p.Explanation, fmt.Sprintf("Recognized %s as the primary topic", a.focus.Primary))
	}
	if len(a.synonyms) > 0 {
		p.Explanation = append(p.Explanation, "Expanded general terms with synonyms")
	}
	if p.HasIntent(types.IntentTreatment) {
		p.PublicationTypes = append([]string(nil), treatmentPublicationTypes...)
		p.Explanation = append(p.Explanation, "Focusing on treatment studies")
	}
	if a.sentiment.urgency > 0.7 {
		from := now.AddDate(-1, 0, 0)
		p.DateFrom = &from
		p.Explanation = append(p.Explanation, "Prioritizing recent publications due to urgency indicators")
	}
	if p.HasIntent(types.IntentEpidemiology) {
		p.Sort = types.SortYear
		p.Explanation = append(p.Explanation, "Sorting by date for epidemiological trends")
	}
	return p, nil
}

// passthrough wraps the raw query as an exact phrase.
func passthrough(q string) types.EnhancedQueryParams {
	text := strings.TrimSpace(strings.ReplaceAll(q, `"`, ""))
	return types.EnhancedQueryParams{
		Query:       fmt.Sprintf("%q[Title/Abstract]", text),
		Intents:     []types.Intent{{Type: types.IntentGeneral, Confidence: 0.5}},
		Confidence:  0.3,
		Explanation: []string{"Using basic keyword search as fallback"},
		Tier:        types.TierPassthrough,
	}
}

func uniqueSorted(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
