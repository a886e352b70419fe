// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-search/internal/httputil"
	"github.com/pdiddy/paper-search/pkg/types"
)

// pubmedAPIBase is the NCBI E-utilities root. Declared as a var so tests
// can substitute an httptest server.
var pubmedAPIBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/"

const pubmedTool = "paper-search"

// PubMedSource queries PubMed through E-utilities: esearch for ranked ids,
// esummary for metadata, and efetch for abstracts.
type PubMedSource struct {
	Client    *http.Client
	APIKey    string
	Email     string
	UserAgent string
	Log       *zap.Logger
}

// Name returns the source tag.
func (s *PubMedSource) Name() types.SourceTag { return types.SourcePubMed }

// Search runs the three-step protocol. An empty id list is an empty result.
// An efetch failure keeps the papers with the sentinel abstract.
func (s *PubMedSource) Search(ctx context.Context, req Request) (types.SourceResult, error) {
	res := types.SourceResult{Source: types.SourcePubMed}

	term := BuildPubMedTerm(req)
	if term == "" {
		return res, fmt.Errorf("empty PubMed query")
	}

	ids, count, err := s.esearch(ctx, term, req)
	if err != nil {
		return res, err
	}
	res.Total = count
	if len(ids) == 0 {
		return res, nil
	}

	papers, err := s.esummary(ctx, ids)
	if err != nil {
		return res, err
	}

	var missing []string
	for _, p := range papers {
		if p.Abstract == types.NoAbstract {
			missing = append(missing, strings.TrimPrefix(p.ID, "pubmed_"))
		}
	}
	if len(missing) > 0 {
		abstracts, err := s.efetch(ctx, missing)
		if err != nil {
			s.logger().Warn("PubMed abstract enrichment failed", zap.Int("ids", len(missing)), zap.Error(err))
		}
		for i := range papers {
			if a, ok := abstracts[strings.TrimPrefix(papers[i].ID, "pubmed_")]; ok && a != "" {
				papers[i].Abstract = a
			}
		}
	}

	res.Papers = papers
	return res, nil
}

func (s *PubMedSource) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

// BuildPubMedTerm assembles the esearch term: the rewritten query (or the
// raw text restricted to title and abstract), an optional publication-date
// floor, and the English-language restriction.
func BuildPubMedTerm(req Request) string {
	base := strings.TrimSpace(req.Term)
	if base == "" {
		text := strings.TrimSpace(req.Text)
		if text == "" {
			return ""
		}
		base = "(" + text + "[Title/Abstract])"
	}

	parts := []string{"(" + base + ")"}
	if req.Since != nil {
		parts = append(parts, fmt.Sprintf("%d:3000[Date - Publication]", req.Since.Year()))
	}
	parts = append(parts, `"english"[Language]`)
	return strings.Join(parts, " AND ")
}

func (s *PubMedSource) params(p url.Values) url.Values {
	if s.APIKey != "" {
		p.Set("api_key", s.APIKey)
	}
	if s.Email != "" {
		p.Set("email", s.Email)
		p.Set("tool", pubmedTool)
	}
	return p
}

func (s *PubMedSource) get(ctx context.Context, endpoint string, params url.Values) (*http.Response, error) {
	reqURL := pubmedAPIBase + endpoint + "?" + s.params(params).Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if s.UserAgent != "" {
		req.Header.Set("User-Agent", s.UserAgent)
	}

	resp, err := httputil.DoWithRetryLog(ctx, s.Client, req, 0, s.Log)
	if err != nil {
		return nil, fmt.Errorf("PubMed %s request: %w", endpoint, err)
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("PubMed %s returned HTTP %d", endpoint, resp.StatusCode)
	}
	return resp, nil
}

func (s *PubMedSource) esearch(ctx context.Context, term string, req Request) ([]string, int, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}
	params := url.Values{
		"db":       {"pubmed"},
		"term":     {term},
		"retstart": {strconv.Itoa(max(req.Offset, 0))},
		"retmax":   {strconv.Itoa(limit)},
		"retmode":  {"json"},
		"sort":     {"relevance"},
	}
	if from, to, ok := ParseYearRange(req.Filters.Year); ok {
		params.Set("datetype", "pdat")
		params.Set("mindate", strconv.Itoa(from))
		params.Set("maxdate", strconv.Itoa(to))
	}

	resp, err := s.get(ctx, "esearch.fcgi", params)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	var sr esearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, 0, fmt.Errorf("parsing PubMed esearch: %w", err)
	}
	count, _ := strconv.Atoi(sr.Result.Count)
	return sr.Result.IDList, count, nil
}

func (s *PubMedSource) esummary(ctx context.Context, ids []string) ([]types.PaperRecord, error) {
	resp, err := s.get(ctx, "esummary.fcgi", url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(ids, ",")},
		"retmode": {"json"},
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var sr struct {
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing PubMed esummary: %w", err)
	}

	var uids []string
	if raw, ok := sr.Result["uids"]; ok {
		if err := json.Unmarshal(raw, &uids); err != nil {
			return nil, fmt.Errorf("parsing PubMed esummary uids: %w", err)
		}
	}

	papers := make([]types.PaperRecord, 0, len(uids))
	for _, uid := range uids {
		raw, ok := sr.Result[uid]
		if !ok {
			continue
		}
		var doc esummaryDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			s.logger().Debug("skipping malformed PubMed summary", zap.String("pmid", uid), zap.Error(err))
			continue
		}
		if doc.Error != "" {
			continue
		}
		papers = append(papers, doc.toPaper(uid))
	}
	return papers, nil
}

// efetch returns abstracts keyed by PMID. Articles without abstract text are absent.
func (s *PubMedSource) efetch(ctx context.Context, ids []string) (map[string]string, error) {
	resp, err := s.get(ctx, "efetch.fcgi", url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(ids, ",")},
		"retmode": {"xml"},
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var set efetchSet
	if err := xml.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("parsing PubMed efetch: %w", err)
	}

	out := make(map[string]string, len(set.Articles))
	for _, a := range set.Articles {
		pmid := strings.TrimSpace(a.PMID)
		if pmid == "" || len(a.Abstract) == 0 {
			continue
		}
		sections := make([]string, 0, len(a.Abstract))
		for _, t := range a.Abstract {
			text := cleanMarkup(t.Inner)
			if t.Label != "" {
				text = t.Label + ": " + text
			}
			sections = append(sections, text)
		}
		out[pmid] = strings.Join(sections, "\n\n")
	}
	return out, nil
}

var (
	tagPattern  = regexp.MustCompile(`<[^>]+>`)
	yearPattern = regexp.MustCompile(`\b(\d{4})\b`)
)

// cleanMarkup strips inline tags such as <i> and <sup> and decodes entities.
func cleanMarkup(s string) string {
	return strings.TrimSpace(html.UnescapeString(tagPattern.ReplaceAllString(s, "")))
}

// E-utilities JSON structures.
type esearchResponse struct {
	Result struct {
		Count  string   `json:"count"`
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type esummaryDoc struct {
	Title   string `json:"title"`
	PubDate string `json:"pubdate"`
	Source  string `json:"source"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
	ArticleIDs []struct {
		IDType string `json:"idtype"`
		Value  string `json:"value"`
	} `json:"articleids"`
	PubType []string `json:"pubtype"`
	Error   string   `json:"error"`
}

func (d esummaryDoc) toPaper(pmid string) types.PaperRecord {
	p := types.PaperRecord{
		ID:               "pubmed_" + pmid,
		Title:            strings.TrimSpace(d.Title),
		Abstract:         types.NoAbstract,
		Venue:            d.Source,
		URL:              "https://pubmed.ncbi.nlm.nih.gov/" + pmid + "/",
		PublicationTypes: d.PubType,
		FieldsOfStudy:    pubmedFields(d.PubType),
		Source:           types.SourcePubMed,
	}
	if p.Title == "" {
		p.Title = "Untitled"
	}
	for _, a := range d.Authors {
		if len(p.Authors) == types.MaxAuthors {
			break
		}
		if a.Name != "" {
			p.Authors = append(p.Authors, types.Author{Name: a.Name})
		}
	}
	if m := yearPattern.FindStringSubmatch(d.PubDate); m != nil {
		if y, err := strconv.Atoi(m[1]); err == nil {
			p.Year = types.IntPtr(y)
		}
	}
	for _, id := range d.ArticleIDs {
		if id.IDType == "doi" && id.Value != "" {
			p.DOI = id.Value
			break
		}
	}
	return p
}

// pubmedFields derives fields of study from publication types.
func pubmedFields(pubTypes []string) []string {
	var fields []string
	add := func(f string) {
		for _, x := range fields {
			if x == f {
				return
			}
		}
		fields = append(fields, f)
	}
	for _, pt := range pubTypes {
		if strings.Contains(pt, "Clinical Trial") {
			add("Medicine")
		}
		if strings.Contains(pt, "Review") {
			add("Literature Review")
		}
	}
	if len(fields) == 0 {
		fields = []string{"Medicine"}
	}
	return fields
}

// efetch XML structures.
type efetchSet struct {
	Articles []efetchArticle `xml:"PubmedArticle"`
}

type efetchArticle struct {
	PMID     string         `xml:"MedlineCitation>PMID"`
	Abstract []abstractText `xml:"MedlineCitation>Article>Abstract>AbstractText"`
}

type abstractText struct {
	Label string `xml:"Label,attr"`
	Inner string `xml:",innerxml"`
}
