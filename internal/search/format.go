// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/paper-search/pkg/types"
)

// FormatTable writes a merged page as a human-readable table to w. start is
// the rank of the first paper minus one, so appended pages keep numbering.
func FormatTable(set types.MergedResultSet, start int, w io.Writer) {
	if len(set.Papers) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-60s  %-20s  %-4s  %-9s  %-6s  %s\n",
		"Rank", "Title", "Authors", "Year", "Citations", "Score", "Source")
	fmt.Fprintln(w, strings.Repeat("-", 124))

	for i, p := range set.Papers {
		fmt.Fprintf(w, "%-4d  %-60s  %-20s  %-4s  %-9s  %-6.2f  %s\n",
			start+i+1, truncate(p.Title, 60), formatAuthors(p.Authors), intOrBlank(p.Year),
			intOrBlank(p.CitationCount), p.RelevanceScore, p.Source)
	}

	fmt.Fprintf(w, "\n%d shown of %d found", len(set.Papers), set.TotalFound)
	if set.DuplicatesRemoved > 0 {
		fmt.Fprintf(w, " (%d duplicates removed)", set.DuplicatesRemoved)
	}
	fmt.Fprintf(w, " | confidence %.0f%% accuracy %.0f%%\n", set.Quality.Confidence*100, set.Quality.Accuracy*100)
}

// FormatDetail writes one paper with its abstract.
func FormatDetail(p types.PaperRecord, w io.Writer) {
	fmt.Fprintln(w, p.Title)
	if len(p.Authors) > 0 {
		names := make([]string, len(p.Authors))
		for i, a := range p.Authors {
			names[i] = a.Name
		}
		fmt.Fprintf(w, "  %s\n", strings.Join(names, ", "))
	}
	var meta []string
	if p.Venue != "" {
		meta = append(meta, p.Venue)
	}
	if p.Year != nil {
		meta = append(meta, fmt.Sprint(*p.Year))
	}
	if p.DOI != "" {
		meta = append(meta, "doi:"+p.DOI)
	}
	if len(meta) > 0 {
		fmt.Fprintf(w, "  %s\n", strings.Join(meta, " | "))
	}
	if p.URL != "" {
		fmt.Fprintf(w, "  %s\n", p.URL)
	}
	fmt.Fprintf(w, "\n%s\n\n", p.Abstract)
}

// FormatJSON writes the merged set as indented JSON to w.
func FormatJSON(set types.MergedResultSet, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(set)
}

func intOrBlank(v *int) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(*v)
}

func formatAuthors(authors []types.Author) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0].Name, 20)
	default:
		return truncate(authors[0].Name, 14) + " et al."
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
