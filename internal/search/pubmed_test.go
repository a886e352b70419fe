// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-search/pkg/types"
)

const sampleESearch = `{"header":{"type":"esearch"},"esearchresult":{"count":"1342","retmax":"3","retstart":"0","idlist":["333","111","222"]}}`

const sampleESummary = `{"result":{
  "uids":["333","111","222"],
  "111":{"uid":"111","pubdate":"2019 Mar 5","source":"Lancet","title":"Metformin outcomes in type 2 diabetes.",
    "authors":[{"name":"Smith JA","authtype":"Author"},{"name":"Doe B","authtype":"Author"}],
    "articleids":[{"idtype":"pubmed","value":"111"},{"idtype":"doi","value":"10.1000/lancet.111"}],
    "pubtype":["Journal Article","Randomized Controlled Trial","Clinical Trial"]},
  "222":{"uid":"222","error":"cannot get document summary"},
  "333":{"uid":"333","pubdate":"Winter 2021","source":"BMJ","title":"Insulin therapy: a review.",
    "authors":[],"articleids":[],"pubtype":["Review"]}
}}`

const sampleEFetch = `<?xml version="1.0"?>
<PubmedArticleSet>
  <PubmedArticle><MedlineCitation><PMID Version="1">111</PMID><Article><Abstract>
    <AbstractText Label="BACKGROUND">Metformin is <i>first-line</i> therapy.</AbstractText>
    <AbstractText Label="RESULTS">HbA1c fell by 1.1% &amp; weight by 2 kg.</AbstractText>
  </Abstract></Article></MedlineCitation></PubmedArticle>
  <PubmedArticle><MedlineCitation><PMID Version="1">333</PMID><Article></Article></MedlineCitation></PubmedArticle>
</PubmedArticleSet>`

func withPubMedServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(h)
	old := pubmedAPIBase
	pubmedAPIBase = ts.URL + "/"
	t.Cleanup(func() {
		pubmedAPIBase = old
		ts.Close()
	})
	return ts
}

func TestPubMedSearch(t *testing.T) {
	var esearchQuery, efetchIDs string
	ts := withPubMedServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/esearch.fcgi":
			esearchQuery = r.URL.RawQuery
			fmt.Fprint(w, sampleESearch)
		case "/esummary.fcgi":
			assert.Equal(t, "333,111,222", r.URL.Query().Get("id"))
			fmt.Fprint(w, sampleESummary)
		case "/efetch.fcgi":
			efetchIDs = r.URL.Query().Get("id")
			assert.Equal(t, "xml", r.URL.Query().Get("retmode"))
			fmt.Fprint(w, sampleEFetch)
		default:
			http.NotFound(w, r)
		}
	})

	s := &PubMedSource{Client: ts.Client(), APIKey: "k1", Email: "me@example.org"}
	res, err := s.Search(context.Background(), Request{
		Text:    "diabetes treatment",
		Term:    `"Diabetes Mellitus"[MeSH Terms] OR "therapy"[Title/Abstract]`,
		Offset:  20,
		Limit:   3,
		Filters: types.Filters{Year: "2018-2021"},
	})
	require.NoError(t, err)

	assert.Equal(t, types.SourcePubMed, res.Source)
	assert.Equal(t, 1342, res.Total)
	require.Len(t, res.Papers, 2, "the errored summary is skipped")
	assert.Equal(t, "333,111", efetchIDs)

	first := res.Papers[0]
	assert.Equal(t, "pubmed_333", first.ID, "uids order is preserved")
	assert.Equal(t, types.NoAbstract, first.Abstract, "articles without abstract text keep the sentinel")
	assert.Equal(t, 2021, *first.Year)
	assert.Equal(t, []string{"Literature Review"}, first.FieldsOfStudy)
	assert.Empty(t, first.Authors)

	second := res.Papers[1]
	assert.Equal(t, "pubmed_111", second.ID)
	assert.Equal(t, "BACKGROUND: Metformin is first-line therapy.\n\nRESULTS: HbA1c fell by 1.1% & weight by 2 kg.", second.Abstract)
	assert.Equal(t, "10.1000/lancet.111", second.DOI)
	assert.Equal(t, "https://pubmed.ncbi.nlm.nih.gov/111/", second.URL)
	assert.Equal(t, "Lancet", second.Venue)
	assert.Equal(t, []types.Author{{Name: "Smith JA"}, {Name: "Doe B"}}, second.Authors)
	assert.Equal(t, []string{"Medicine"}, second.FieldsOfStudy)
	assert.Nil(t, second.CitationCount)

	for _, want := range []string{"retstart=20", "retmax=3", "retmode=json", "sort=relevance", "api_key=k1",
		"email=me%40example.org", "datetype=pdat", "mindate=2018", "maxdate=2021"} {
		assert.Contains(t, esearchQuery, want)
	}
}

func TestPubMedEmptyIDList(t *testing.T) {
	var calls []string
	ts := withPubMedServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.URL.Path)
		fmt.Fprint(w, `{"esearchresult":{"count":"0","idlist":[]}}`)
	})

	res, err := (&PubMedSource{Client: ts.Client()}).Search(context.Background(), Request{Text: "xyzzy plugh"})
	require.NoError(t, err)
	assert.Empty(t, res.Papers)
	assert.Equal(t, []string{"/esearch.fcgi"}, calls)
}

func TestPubMedEFetchFailureKeepsPapers(t *testing.T) {
	ts := withPubMedServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/esearch.fcgi":
			fmt.Fprint(w, sampleESearch)
		case "/esummary.fcgi":
			fmt.Fprint(w, sampleESummary)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})

	res, err := (&PubMedSource{Client: ts.Client()}).Search(context.Background(), Request{Text: "x"})
	require.NoError(t, err)
	require.Len(t, res.Papers, 2)
	for _, p := range res.Papers {
		assert.Equal(t, types.NoAbstract, p.Abstract)
	}
}

func TestPubMedStepFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		errMsg  string
	}{
		{
			name: "esearch non-200",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			errMsg: "esearch.fcgi returned HTTP 502",
		},
		{
			name: "esearch malformed",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, `<html>`)
			},
			errMsg: "parsing PubMed esearch",
		},
		{
			name: "esummary malformed",
			handler: func(w http.ResponseWriter, r *http.Request) {
				if strings.HasSuffix(r.URL.Path, "esearch.fcgi") {
					fmt.Fprint(w, sampleESearch)
					return
				}
				fmt.Fprint(w, `{"result": [1,2]}`)
			},
			errMsg: "parsing PubMed esummary",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := withPubMedServer(t, tt.handler)
			_, err := (&PubMedSource{Client: ts.Client()}).Search(context.Background(), Request{Text: "x"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestBuildPubMedTerm(t *testing.T) {
	since := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{"rewritten term", Request{Text: "asthma", Term: `"Asthma"[MeSH Terms]`},
			`("Asthma"[MeSH Terms]) AND "english"[Language]`},
		{"raw text", Request{Text: "sleep apnea"},
			`((sleep apnea[Title/Abstract])) AND "english"[Language]`},
		{"date floor", Request{Term: "x", Since: &since},
			`(x) AND 2025:3000[Date - Publication] AND "english"[Language]`},
		{"empty", Request{Text: "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildPubMedTerm(tt.req))
		})
	}
}
