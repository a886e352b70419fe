// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// SourceTag identifies the upstream API that produced a PaperRecord.
type SourceTag string

const (
	SourcePubMed          SourceTag = "pubmed"
	SourceSemanticScholar SourceTag = "semantic_scholar"
)

// KnownSources lists every SourceTag a PaperRecord may carry, in merge order.
var KnownSources = []SourceTag{SourcePubMed, SourceSemanticScholar}

// Valid reports whether s is one of KnownSources.
func (s SourceTag) Valid() bool {
	for _, k := range KnownSources {
		if s == k {
			return true
		}
	}
	return false
}

// NoAbstract is the sentinel abstract for papers whose source has no abstract text.
const NoAbstract = "No abstract available"

// MaxAuthors caps the author list kept on a PaperRecord.
const MaxAuthors = 10

// Author is one paper author. Affiliation is empty when the source omits it.
type Author struct {
	Name        string `json:"name" yaml:"name"`
	Affiliation string `json:"affiliation,omitempty" yaml:"affiliation,omitempty"`
}

// PaperRecord is the canonical paper shape every source adapter normalizes into.
// It is transient: built per search and never persisted beyond the result set.
type PaperRecord struct {
	// ID is the source-scoped identifier (e.g. "pubmed_31452104" or a Semantic Scholar paperId).
	ID string `json:"id" yaml:"id"`

	Title string `json:"title" yaml:"title"`

	// Abstract holds NoAbstract when the source had none.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Authors is capped at MaxAuthors.
	Authors []Author `json:"authors" yaml:"authors"`

	Year  *int   `json:"year,omitempty" yaml:"year,omitempty"`
	Venue string `json:"venue,omitempty" yaml:"venue,omitempty"`
	URL   string `json:"url,omitempty" yaml:"url,omitempty"`
	DOI   string `json:"doi,omitempty" yaml:"doi,omitempty"`

	CitationCount            *int `json:"citation_count,omitempty" yaml:"citation_count,omitempty"`
	InfluentialCitationCount *int `json:"influential_citation_count,omitempty" yaml:"influential_citation_count,omitempty"`

	FieldsOfStudy    []string `json:"fields_of_study,omitempty" yaml:"fields_of_study,omitempty"`
	PublicationTypes []string `json:"publication_types,omitempty" yaml:"publication_types,omitempty"`

	Source SourceTag `json:"source" yaml:"source"`

	// RelevanceScore is assigned by the merger from the paper's merged position.
	RelevanceScore float64 `json:"relevance_score" yaml:"relevance_score"`
}

// SourceResult is what one source returns for one page of one query.
type SourceResult struct {
	Source SourceTag     `json:"source" yaml:"source"`
	Papers []PaperRecord `json:"papers" yaml:"papers"`

	// Total is the upstream's reported match count, or 0 when unknown.
	Total int `json:"total" yaml:"total"`
}

// Quality summarizes how trustworthy a merged result set is.
type Quality struct {
	Confidence float64 `json:"confidence" yaml:"confidence"`
	Accuracy   float64 `json:"accuracy" yaml:"accuracy"`
}

// MergedResultSet is the deduplicated page handed to the session controller.
type MergedResultSet struct {
	Papers            []PaperRecord     `json:"papers" yaml:"papers"`
	TotalFound        int               `json:"total_found" yaml:"total_found"`
	PerSource         map[SourceTag]int `json:"per_source" yaml:"per_source"`
	Sources           []SourceTag       `json:"sources" yaml:"sources"`
	Quality           Quality           `json:"quality" yaml:"quality"`
	DuplicatesRemoved int               `json:"duplicates_removed" yaml:"duplicates_removed"`
}

// IntPtr returns a pointer to v. Adapters use it for nullable counts and years.
func IntPtr(v int) *int { return &v }
