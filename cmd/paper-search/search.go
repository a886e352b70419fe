// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-search/internal/search"
	"github.com/pdiddy/paper-search/internal/session"
	"github.com/pdiddy/paper-search/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [query...]",
	Short: "Search PubMed and Semantic Scholar for papers",
	Long: `Search enhances the query, sends it to every enabled source in parallel,
and prints the merged, deduplicated page. Use --more to fetch further pages.

A search can be saved with --save and shown again later with --load, which
contacts no API. --from-link reruns the query carried by a deep link.`,
	RunE: runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.String("year", "", `publication year or range, e.g. "2021" or "2018-2021"`)
	f.String("field", "", "field of study, e.g. Medicine")
	f.String("sort", "", "relevance, citations, year or influential")
	f.Int("limit", 0, "papers per page (default from config, 20)")
	f.Int("more", 0, "number of additional pages to load")
	f.Bool("json", false, "print results as JSON")
	f.Bool("csl", false, "print results as CSL YAML for citation managers")
	f.Bool("abstracts", false, "print each paper with its abstract")
	f.Bool("link", false, "print a deep link that reproduces the search")
	f.String("from-link", "", "rerun the query carried by a deep link")
	f.String("save", "", "write the search and its results to a YAML file")
	f.String("load", "", "print a previously saved result file")

	rootCmd.AddCommand(searchCmd)
}

// output selects how result pages are printed.
type output struct {
	json, csl, abstracts bool
}

func (o output) deferred() bool { return o.json || o.csl }

func runSearch(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	f := cmd.Flags()

	var o output
	o.json, _ = f.GetBool("json")
	o.csl, _ = f.GetBool("csl")
	o.abstracts, _ = f.GetBool("abstracts")
	if o.json && o.csl {
		return errors.New("--json and --csl are mutually exclusive")
	}

	if path, _ := f.GetString("load"); path != "" {
		return printResultFile(path, o, out)
	}

	query := strings.Join(args, " ")
	if link, _ := f.GetString("from-link"); link != "" {
		q, err := session.QueryFromLink(link)
		if err != nil {
			return err
		}
		query = q
	}
	if strings.TrimSpace(query) == "" {
		return errors.New("provide a query, e.g. paper-search search asthma treatment in children")
	}

	year, _ := f.GetString("year")
	field, _ := f.GetString("field")
	sortFlag, _ := f.GetString("sort")
	filters := types.Filters{Year: year, FieldOfStudy: field}
	if sortFlag != "" {
		filters.Sort = types.ParseSortOrder(sortFlag)
	}
	if year != "" {
		if _, _, ok := search.ParseYearRange(year); !ok {
			return fmt.Errorf("invalid --year %q: use YYYY or YYYY-YYYY", year)
		}
	}

	a, err := openApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	limit, _ := f.GetInt("limit")
	ctrl, loc, err := a.controller(limit, stateLines(errOut))
	if err != nil {
		return err
	}
	// Analytics writes run in the background; flush them before the store closes.
	defer ctrl.Wait()

	ctx, stop := interruptible(cmd.Context())
	defer stop()

	snap, err := ctrl.NewSearch(ctx, query, filters)
	if err != nil {
		return err
	}
	if snap.State == session.Failed {
		return errors.New("search failed")
	}
	if snap.NoResults() {
		printAlternatives(snap.Alternatives, errOut)
	} else if !o.deferred() {
		printPage(snap, o, out)
	}

	more, _ := f.GetInt("more")
	for i := 0; i < more && snap.HasMore; i++ {
		next, err := ctrl.LoadMore(ctx)
		if err != nil {
			return err
		}
		snap = next
		if snap.Failure != "" {
			color.New(color.FgYellow).Fprintln(errOut, snap.Failure)
			break
		}
		if !o.deferred() {
			printPage(snap, o, out)
		}
	}

	if o.deferred() {
		if err := printAll(snap, o, out); err != nil {
			return err
		}
	}

	if path, _ := f.GetString("save"); path != "" {
		failed := make([]string, len(snap.FailedSources))
		for i, s := range snap.FailedSources {
			failed[i] = string(s)
		}
		if err := search.WriteResultFile(path, snap.Query, snap.Params, resultSet(snap, 0), failed); err != nil {
			return err
		}
		fmt.Fprintf(errOut, "Saved %d papers to %s\n", len(snap.Papers), path)
	}
	if showLink, _ := f.GetBool("link"); showLink {
		fmt.Fprintln(errOut, loc.URL())
	}
	return nil
}

// stateLines renders controller state changes as coloured status lines.
func stateLines(w io.Writer) session.Renderer {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed, color.Bold)
	return session.RenderFunc(func(s session.Snapshot) {
		switch {
		case s.State == session.Searching:
			cyan.Fprintf(w, "Searching for %q...\n", s.Query.Text)
		case s.LoadingMore:
			cyan.Fprintf(w, "Loading more results for %q...\n", s.Query.Text)
		case s.State == session.Blank:
			yellow.Fprintln(w, "Enter a query to search.")
		case s.State == session.Failed:
			red.Fprintln(w, s.Failure)
		case s.NoResults():
			yellow.Fprintf(w, "No papers found for %q.\n", s.Query.Text)
		case s.State == session.Displaying && len(s.FailedSources) > 0:
			names := make([]string, len(s.FailedSources))
			for i, f := range s.FailedSources {
				names[i] = string(f)
			}
			yellow.Fprintf(w, "Some sources did not answer: %s\n", strings.Join(names, ", "))
		}
	})
}

func printAlternatives(alts []types.Suggestion, w io.Writer) {
	if len(alts) == 0 {
		return
	}
	fmt.Fprintln(w, "Try instead:")
	for _, s := range alts {
		fmt.Fprintf(w, "  %s  (%s)\n", s.Text, s.Description)
	}
}

// resultSet builds the printable set for the papers from index start on.
func resultSet(s session.Snapshot, start int) types.MergedResultSet {
	return types.MergedResultSet{
		Papers:            s.Papers[start:],
		TotalFound:        s.TotalFound,
		Quality:           s.Quality,
		DuplicatesRemoved: s.Duplicates,
	}
}

// printPage prints the papers added by the latest page.
func printPage(s session.Snapshot, o output, w io.Writer) {
	set := resultSet(s, s.PageStart)
	if o.abstracts {
		for _, p := range set.Papers {
			search.FormatDetail(p, w)
		}
		return
	}
	search.FormatTable(set, s.PageStart, w)
}

func printAll(s session.Snapshot, o output, w io.Writer) error {
	set := resultSet(s, 0)
	if o.csl {
		return search.FormatCSL(set.Papers, w)
	}
	return search.FormatJSON(set, w)
}

func printResultFile(path string, o output, w io.Writer) error {
	rf, err := search.ReadResultFile(path)
	if err != nil {
		return err
	}
	switch {
	case o.csl:
		return search.FormatCSL(rf.Results.Papers, w)
	case o.json:
		return search.FormatJSON(rf.Results, w)
	}
	fmt.Fprintf(w, "Query: %s\n", rf.Query.Text)
	if rf.Query.Rewritten != "" {
		fmt.Fprintf(w, "Rewritten (%s): %s\n", rf.Query.Tier, rf.Query.Rewritten)
	}
	fmt.Fprintf(w, "Saved: %s\n\n", rf.Summary.Timestamp.Local().Format("2006-01-02 15:04"))
	if o.abstracts {
		for _, p := range rf.Results.Papers {
			search.FormatDetail(p, w)
		}
		return nil
	}
	search.FormatTable(rf.Results, 0, w)
	return nil
}

// interruptible cancels the returned context on Ctrl-C.
func interruptible(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt)
}
