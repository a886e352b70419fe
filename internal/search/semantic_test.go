// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pdiddy/paper-search/pkg/types"
)

const sampleSemanticResponse = `{
  "total": 4812,
  "offset": 0,
  "data": [
    {
      "paperId": "abc123",
      "title": "Deep Learning for Retinal Imaging",
      "abstract": "We apply convolutional networks to fundus photographs.",
      "year": 2020,
      "venue": "Nature Medicine",
      "url": "https://www.semanticscholar.org/paper/abc123",
      "citationCount": 310,
      "influentialCitationCount": 25,
      "fieldsOfStudy": ["Medicine", "Computer Science"],
      "publicationTypes": ["JournalArticle"],
      "externalIds": {"DOI": "10.1038/nm.1", "PubMed": "32000001"},
      "authors": [
        {"authorId": "1", "name": "Alice Smith", "affiliations": ["Stanford University", "VA Palo Alto"]},
        {"authorId": "2", "name": "Bob Jones"}
      ]
    },
    {
      "paperId": "def456",
      "title": "  Screening Programs in Rural Clinics ",
      "abstract": null,
      "year": null,
      "venue": "",
      "url": "",
      "citationCount": null,
      "influentialCitationCount": null,
      "fieldsOfStudy": null,
      "publicationTypes": null,
      "externalIds": {},
      "authors": []
    }
  ]
}`

func withSemanticServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(h)
	old := semanticAPIBase
	semanticAPIBase = ts.URL
	t.Cleanup(func() {
		semanticAPIBase = old
		ts.Close()
	})
	return ts
}

func TestSemanticScholarSearch(t *testing.T) {
	var got *http.Request
	ts := withSemanticServer(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		fmt.Fprint(w, sampleSemanticResponse)
	})

	s := &SemanticScholarSource{Client: ts.Client(), APIKey: "s2-key", UserAgent: "paper-search-test"}
	res, err := s.Search(context.Background(), Request{
		Text:    "retinal imaging",
		Term:    `"Retina"[MeSH Terms]`,
		Offset:  20,
		Limit:   10,
		Filters: types.Filters{Year: "2019-2021", FieldOfStudy: "Medicine"},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	q := got.URL.Query()
	checks := map[string]string{
		"query":         "retinal imaging",
		"offset":        "20",
		"limit":         "10",
		"year":          "2019-2021",
		"fieldsOfStudy": "Medicine",
		"fields":        semanticFields,
	}
	for k, want := range checks {
		if q.Get(k) != want {
			t.Errorf("param %s = %q, want %q", k, q.Get(k), want)
		}
	}
	if h := got.Header.Get("x-api-key"); h != "s2-key" {
		t.Errorf("x-api-key = %q", h)
	}
	if h := got.Header.Get("User-Agent"); h != "paper-search-test" {
		t.Errorf("User-Agent = %q", h)
	}

	if res.Total != 4812 {
		t.Errorf("Total = %d, want 4812", res.Total)
	}
	if len(res.Papers) != 2 {
		t.Fatalf("got %d papers, want 2", len(res.Papers))
	}

	p := res.Papers[0]
	if p.ID != "abc123" || p.Source != types.SourceSemanticScholar {
		t.Errorf("ID/Source = %q/%q", p.ID, p.Source)
	}
	if p.DOI != "10.1038/nm.1" {
		t.Errorf("DOI = %q", p.DOI)
	}
	if p.Year == nil || *p.Year != 2020 {
		t.Errorf("Year = %v", p.Year)
	}
	if p.CitationCount == nil || *p.CitationCount != 310 {
		t.Errorf("CitationCount = %v", p.CitationCount)
	}
	if len(p.Authors) != 2 || p.Authors[0].Affiliation != "Stanford University" || p.Authors[1].Affiliation != "" {
		t.Errorf("Authors = %+v", p.Authors)
	}

	bare := res.Papers[1]
	if bare.Title != "Screening Programs in Rural Clinics" {
		t.Errorf("Title = %q", bare.Title)
	}
	if bare.Abstract != types.NoAbstract {
		t.Errorf("Abstract = %q, want sentinel", bare.Abstract)
	}
	if bare.URL != "https://www.semanticscholar.org/paper/def456" {
		t.Errorf("URL fallback = %q", bare.URL)
	}
	if bare.Year != nil || bare.CitationCount != nil {
		t.Errorf("null counts should stay nil: %+v", bare)
	}
}

func TestSemanticScholarSinceYear(t *testing.T) {
	var year string
	ts := withSemanticServer(t, func(w http.ResponseWriter, r *http.Request) {
		year = r.URL.Query().Get("year")
		fmt.Fprint(w, `{"total":0,"data":[]}`)
	})

	since := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	s := &SemanticScholarSource{Client: ts.Client()}
	if _, err := s.Search(context.Background(), Request{Text: "covid", Since: &since}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if year != "2025-" {
		t.Errorf("year = %q, want 2025-", year)
	}
}

func TestSemanticScholarErrors(t *testing.T) {
	ts := withSemanticServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	s := &SemanticScholarSource{Client: ts.Client()}
	if _, err := s.Search(context.Background(), Request{Text: "x"}); err == nil {
		t.Error("expected error on HTTP 500")
	}
	if _, err := s.Search(context.Background(), Request{Text: "  "}); err == nil {
		t.Error("expected error on empty query")
	}
}

func TestSemanticScholarSortsClientSide(t *testing.T) {
	ts := withSemanticServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, sampleSemanticResponse)
	})
	s := &SemanticScholarSource{Client: ts.Client()}
	res, err := s.Search(context.Background(), Request{Text: "x", Sort: types.SortCitations})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Papers[0].ID != "abc123" || res.Papers[1].ID != "def456" {
		t.Errorf("order = %s, %s", res.Papers[0].ID, res.Papers[1].ID)
	}
}

func TestSortPapers(t *testing.T) {
	mk := func(id string, cites, year *int) types.PaperRecord {
		return types.PaperRecord{ID: id, CitationCount: cites, Year: year}
	}
	papers := []types.PaperRecord{
		mk("a", nil, types.IntPtr(2019)),
		mk("b", types.IntPtr(5), types.IntPtr(2022)),
		mk("c", types.IntPtr(50), nil),
		mk("d", types.IntPtr(5), types.IntPtr(2020)),
	}

	ids := func(ps []types.PaperRecord) string {
		s := ""
		for _, p := range ps {
			s += p.ID
		}
		return s
	}

	byCites := append([]types.PaperRecord(nil), papers...)
	SortPapers(byCites, types.SortCitations)
	if got := ids(byCites); got != "cbda" {
		t.Errorf("by citations = %s, want cbda", got)
	}

	byYear := append([]types.PaperRecord(nil), papers...)
	SortPapers(byYear, types.SortYear)
	if got := ids(byYear); got != "bdac" {
		t.Errorf("by year = %s, want bdac", got)
	}

	unchanged := append([]types.PaperRecord(nil), papers...)
	SortPapers(unchanged, types.SortRelevance)
	if got := ids(unchanged); got != "abcd" {
		t.Errorf("relevance = %s, want abcd", got)
	}
}
