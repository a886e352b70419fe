// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-search/internal/httputil"
	"github.com/pdiddy/paper-search/pkg/types"
)

// semanticAPIBase is the Semantic Scholar paper search endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const semanticFields = "paperId,title,abstract,authors,year,venue,url,citationCount,influentialCitationCount,fieldsOfStudy,publicationTypes,externalIds"

// SemanticScholarSource queries the Semantic Scholar graph API.
type SemanticScholarSource struct {
	Client    *http.Client
	APIKey    string
	UserAgent string
	Log       *zap.Logger
}

// Name returns the source tag.
func (s *SemanticScholarSource) Name() types.SourceTag { return types.SourceSemanticScholar }

// Search issues one paper-search call with the raw query text. When
// req.Sort is not relevance the page is reordered client-side.
func (s *SemanticScholarSource) Search(ctx context.Context, req Request) (types.SourceResult, error) {
	res := types.SourceResult{Source: types.SourceSemanticScholar}

	q := strings.TrimSpace(req.Text)
	if q == "" {
		return res, fmt.Errorf("empty Semantic Scholar query")
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}
	params := url.Values{
		"query":  {q},
		"offset": {strconv.Itoa(max(req.Offset, 0))},
		"limit":  {strconv.Itoa(limit)},
		"fields": {semanticFields},
	}
	if y := semanticYear(req); y != "" {
		params.Set("year", y)
	}
	if f := strings.TrimSpace(req.Filters.FieldOfStudy); f != "" {
		params.Set("fieldsOfStudy", f)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, semanticAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return res, fmt.Errorf("creating request: %w", err)
	}
	if s.UserAgent != "" {
		httpReq.Header.Set("User-Agent", s.UserAgent)
	}
	if s.APIKey != "" {
		httpReq.Header.Set("x-api-key", s.APIKey)
	}

	resp, err := httputil.DoWithRetryLog(ctx, s.Client, httpReq, 0, s.Log)
	if err != nil {
		return res, fmt.Errorf("Semantic Scholar API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return res, fmt.Errorf("Semantic Scholar API returned HTTP %d", resp.StatusCode)
	}

	var sr semanticResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return res, fmt.Errorf("parsing Semantic Scholar response: %w", err)
	}

	for _, paper := range sr.Data {
		res.Papers = append(res.Papers, paper.toPaper())
	}
	res.Total = sr.Total
	SortPapers(res.Papers, req.Sort)
	return res, nil
}

// semanticYear prefers the explicit year filter over the enhancer's date floor.
func semanticYear(req Request) string {
	if from, to, ok := ParseYearRange(req.Filters.Year); ok {
		if from == to {
			return strconv.Itoa(from)
		}
		return fmt.Sprintf("%d-%d", from, to)
	}
	if req.Since != nil {
		return fmt.Sprintf("%d-", req.Since.Year())
	}
	return ""
}

// SortPapers stably reorders papers by exactly one key, descending. Papers
// missing the key sort last. Relevance leaves the upstream order untouched.
func SortPapers(papers []types.PaperRecord, order types.SortOrder) {
	var key func(types.PaperRecord) *int
	switch order {
	case types.SortCitations:
		key = func(p types.PaperRecord) *int { return p.CitationCount }
	case types.SortYear:
		key = func(p types.PaperRecord) *int { return p.Year }
	case types.SortInfluential:
		key = func(p types.PaperRecord) *int { return p.InfluentialCitationCount }
	default:
		return
	}
	sort.SliceStable(papers, func(i, j int) bool {
		a, b := key(papers[i]), key(papers[j])
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a > *b
		}
	})
}

// ParseYearRange accepts "2021" or "2018-2021" and returns the inclusive bounds.
func ParseYearRange(s string) (from, to int, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, false
	}
	lo, hi, isRange := strings.Cut(s, "-")
	from, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return 0, 0, false
	}
	if !isRange {
		return from, from, true
	}
	to, err = strconv.Atoi(strings.TrimSpace(hi))
	if err != nil || to < from {
		return 0, 0, false
	}
	return from, to, true
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total  int             `json:"total"`
	Offset int             `json:"offset"`
	Data   []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID                  string              `json:"paperId"`
	Title                    string              `json:"title"`
	Abstract                 *string             `json:"abstract"`
	Year                     *int                `json:"year"`
	Venue                    string              `json:"venue"`
	URL                      string              `json:"url"`
	CitationCount            *int                `json:"citationCount"`
	InfluentialCitationCount *int                `json:"influentialCitationCount"`
	FieldsOfStudy            []string            `json:"fieldsOfStudy"`
	PublicationTypes         []string            `json:"publicationTypes"`
	Authors                  []semanticAuthor    `json:"authors"`
	ExternalIDs              semanticExternalIDs `json:"externalIds"`
}

type semanticAuthor struct {
	AuthorID     string   `json:"authorId"`
	Name         string   `json:"name"`
	Affiliations []string `json:"affiliations"`
}

type semanticExternalIDs struct {
	DOI    string `json:"DOI"`
	PubMed string `json:"PubMed"`
}

func (sp semanticPaper) toPaper() types.PaperRecord {
	p := types.PaperRecord{
		ID:                       sp.PaperID,
		Title:                    strings.TrimSpace(sp.Title),
		Abstract:                 types.NoAbstract,
		Year:                     sp.Year,
		Venue:                    sp.Venue,
		URL:                      sp.URL,
		DOI:                      sp.ExternalIDs.DOI,
		CitationCount:            sp.CitationCount,
		InfluentialCitationCount: sp.InfluentialCitationCount,
		FieldsOfStudy:            sp.FieldsOfStudy,
		PublicationTypes:         sp.PublicationTypes,
		Source:                   types.SourceSemanticScholar,
	}
	if sp.Abstract != nil && strings.TrimSpace(*sp.Abstract) != "" {
		p.Abstract = strings.TrimSpace(*sp.Abstract)
	}
	if p.URL == "" && sp.PaperID != "" {
		p.URL = "https://www.semanticscholar.org/paper/" + sp.PaperID
	}
	for _, a := range sp.Authors {
		if len(p.Authors) == types.MaxAuthors {
			break
		}
		author := types.Author{Name: a.Name}
		if len(a.Affiliations) > 0 {
			author.Affiliation = a.Affiliations[0]
		}
		p.Authors = append(p.Authors, author)
	}
	return p
}
