// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the data structures shared by the paper-search pipeline:
// queries and their enhanced form, paper records and merged result sets,
// analytics records and the derived dashboard views, and configuration.
package types

import (
	"strings"
	"time"
)

// SortOrder selects the secondary ordering applied to general-academic results.
type SortOrder string

const (
	SortRelevance   SortOrder = "relevance"
	SortCitations   SortOrder = "citations"
	SortYear        SortOrder = "year"
	SortInfluential SortOrder = "influential"
)

// ParseSortOrder maps user input onto a SortOrder. Unknown or empty input is relevance.
func ParseSortOrder(s string) SortOrder {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case SortCitations, "citation", "citationcount":
		return SortCitations
	case SortYear, "date", "publication date":
		return SortYear
	case SortInfluential, "influentialcitationcount":
		return SortInfluential
	default:
		return SortRelevance
	}
}

// Filters are the structured filters a user may attach to a query.
type Filters struct {
	// Year is a single year ("2021") or an inclusive range ("2018-2021").
	Year         string    `json:"year,omitempty" yaml:"year,omitempty" mapstructure:"year"`
	FieldOfStudy string    `json:"field_of_study,omitempty" yaml:"field_of_study,omitempty" mapstructure:"field_of_study"`
	Sort         SortOrder `json:"sort,omitempty" yaml:"sort,omitempty" mapstructure:"sort"`
}

// IsZero reports whether no filter is set.
func (f Filters) IsZero() bool {
	return f.Year == "" && f.FieldOfStudy == "" && (f.Sort == "" || f.Sort == SortRelevance)
}

// SearchQuery is one dispatched search. It is passed by value and never mutated.
type SearchQuery struct {
	Text    string  `json:"text"`
	Filters Filters `json:"filters"`
	Offset  int     `json:"offset"`
	Limit   int     `json:"limit"`
}

// QueryContext is the context object sent alongside a query to the enhancer.
type QueryContext struct {
	Offset    int       `json:"offset"`
	Limit     int       `json:"limit"`
	Filters   Filters   `json:"filters"`
	Timestamp time.Time `json:"timestamp"`
}

// EnhancementTier names the enhancer tier that produced a result.
type EnhancementTier string

const (
	TierRemote      EnhancementTier = "remote"
	TierLocal       EnhancementTier = "local"
	TierPassthrough EnhancementTier = "passthrough"
)

// EntityKind distinguishes dictionary hits from abbreviation hits.
type EntityKind string

const (
	EntityDomainTerm   EntityKind = "domain-term"
	EntityAbbreviation EntityKind = "abbreviation"
)

// Entity is a recognized domain term in a query.
type Entity struct {
	Surface    string     `json:"surface" yaml:"surface"`
	Canonical  string     `json:"canonical" yaml:"canonical"`
	Kind       EntityKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	Confidence float64    `json:"confidence" yaml:"confidence"`
}

// Intent vocabulary.
const (
	IntentTreatment    = "treatment"
	IntentDiagnosis    = "diagnosis"
	IntentPrevention   = "prevention"
	IntentSymptoms     = "symptoms"
	IntentCauses       = "causes"
	IntentPrognosis    = "prognosis"
	IntentEpidemiology = "epidemiology"
	IntentMechanism    = "mechanism"
	IntentGeneral      = "general"
)

// Intent is one classified search intent. A query may carry several.
type Intent struct {
	Type       string  `json:"type" yaml:"type"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// Focus is the primary canonical term of a query plus the remaining ones.
type Focus struct {
	Primary   string   `json:"primary,omitempty" yaml:"primary,omitempty"`
	Secondary []string `json:"secondary,omitempty" yaml:"secondary,omitempty"`
}

// SynonymExpansion records the synonyms used for one general-vocabulary word.
type SynonymExpansion struct {
	Original string   `json:"original" yaml:"original"`
	Synonyms []string `json:"synonyms" yaml:"synonyms"`
}

// RelatedTerms lists canonical terms related to a recognized one.
type RelatedTerms struct {
	Primary string   `json:"primary" yaml:"primary"`
	Related []string `json:"related" yaml:"related"`
}

// Demographic is a population facet detected in a query.
type Demographic struct {
	Type   string   `json:"type" yaml:"type"`
	Values []string `json:"values" yaml:"values"`
}

// EnhancedQueryParams is the enhancer's structured view of a query.
// It is built fresh per query and never mutated after construction.
type EnhancedQueryParams struct {
	// Query is the rewritten search string. It is never empty.
	Query string `json:"query" yaml:"query"`

	Entities    []Entity `json:"entities,omitempty" yaml:"entities,omitempty"`
	Intents     []Intent `json:"intent,omitempty" yaml:"intent,omitempty"`
	Confidence  float64  `json:"confidence" yaml:"confidence"`
	Explanation []string `json:"explanation,omitempty" yaml:"explanation,omitempty"`

	Tier       EnhancementTier `json:"tier" yaml:"tier"`
	Complexity float64         `json:"complexity" yaml:"complexity"`
	Focus      Focus           `json:"focus" yaml:"focus"`

	Synonyms         []SynonymExpansion `json:"synonyms,omitempty" yaml:"synonyms,omitempty"`
	Related          []RelatedTerms     `json:"related_terms,omitempty" yaml:"related_terms,omitempty"`
	StudyTypes       []string           `json:"study_types,omitempty" yaml:"study_types,omitempty"`
	Demographics     []Demographic      `json:"demographics,omitempty" yaml:"demographics,omitempty"`
	PublicationTypes []string           `json:"publication_types,omitempty" yaml:"publication_types,omitempty"`

	// Sort is the ordering the enhancer recommends; empty means relevance.
	Sort SortOrder `json:"sort,omitempty" yaml:"sort,omitempty"`

	// DateFrom restricts results to recent publications when set.
	DateFrom *time.Time `json:"date_from,omitempty" yaml:"date_from,omitempty"`
}

// Enhanced reports whether any enhancement beyond a raw keyword search was applied.
func (p EnhancedQueryParams) Enhanced() bool {
	return p.Tier == TierRemote || p.Tier == TierLocal
}

// HasIntent reports whether the intent list contains typ.
func (p EnhancedQueryParams) HasIntent(typ string) bool {
	for _, in := range p.Intents {
		if in.Type == typ {
			return true
		}
	}
	return false
}

// SuggestionType classifies a search suggestion.
type SuggestionType string

const (
	SuggestionDomainTerm SuggestionType = "domain-term"
	SuggestionHistory    SuggestionType = "history"
	SuggestionTrending   SuggestionType = "trending"
)

// Suggestion is one query completion offered to the user.
type Suggestion struct {
	Text        string         `json:"text" yaml:"text"`
	Type        SuggestionType `json:"type" yaml:"type"`
	Description string         `json:"description" yaml:"description"`
	Confidence  float64        `json:"confidence" yaml:"confidence"`
}

// Clamp01 bounds v to [0,1].
func Clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
