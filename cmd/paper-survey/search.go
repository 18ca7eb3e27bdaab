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
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/pdiddy/paper-survey/internal/aggregate"
	"github.com/pdiddy/paper-survey/internal/intent"
	"github.com/pdiddy/paper-survey/internal/report"
	"github.com/pdiddy/paper-survey/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [query text]",
	Short: "Search all enabled sources and print ranked results",
	Long: `Search builds a structured query from flags, a query file, or free text,
fetches from every enabled source in parallel, merges duplicates, filters and
ranks the results.

Free text accepts groups separated by ";" and alternatives separated by "|",
plus field filters such as author:"Kipf", venue:ICLR, from:2019, sort:citations.

Examples:
  paper-survey search "graph neural networks | gnn ; molecules" venue:ICLR
  paper-survey search --keywords "diffusion|score matching" --from 2021 --sort citationCount
  paper-survey search --query-file queries/gnn.yaml --save results/gnn.yaml`,
	RunE: runSearch,
}

func init() {
	addSearchFlags(searchCmd.Flags())
	rootCmd.AddCommand(searchCmd)
}

func addSearchFlags(f *pflag.FlagSet) {
	f.StringArray("keywords", nil, "keyword group; alternatives separated by | (repeat for AND)")
	f.StringSlice("venue", nil, "venue name or acronym (repeatable)")
	f.String("author", "", "author name substring")
	f.String("from", "", "publication date start (YYYY, YYYY-MM or YYYY-MM-DD)")
	f.String("to", "", "publication date end (YYYY, YYYY-MM or YYYY-MM-DD)")
	f.Int("min-influential", -1, "minimum influential citation count")
	f.StringSlice("type", nil, "publication type (repeatable)")
	f.Bool("open-access", false, "only papers with open access or a PDF link")
	f.Int("max-results", types.DefaultMaxResults, "maximum number of results to return")
	f.String("sort", "relevance", "relevance, citationCount or publicationDate")
	f.StringSlice("sources", nil, "sources to query (s2 is always included)")
	f.String("query-file", "", "read the query from a YAML query file")
	f.String("save", "", "write the query and results to a YAML query file")
	f.Bool("json", false, "output results as JSON")
	f.Bool("yaml", false, "output results as YAML")
	f.Bool("csl", false, "output results as CSL-YAML for citation managers")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	q, err := buildQuery(ctx, cmd.Flags(), args)
	if err != nil {
		return err
	}

	res, err := newAggregator().Aggregate(ctx, q)
	if err != nil {
		var all *aggregate.AllSourcesFailedError
		if errors.As(err, &all) {
			for _, id := range all.Order {
				fmt.Fprintf(os.Stderr, "warning: source %s failed: %v\n", id, all.Errors[id])
			}
		}
		return err
	}
	for id, msg := range res.SourceErrors {
		fmt.Fprintf(os.Stderr, "warning: source %s failed: %s\n", id, msg)
	}

	if path, _ := cmd.Flags().GetString("save"); path != "" {
		if err := report.WriteQueryFile(path, res, time.Now()); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "Saved results to", path)
	}

	return writeResult(cmd, res, os.Stdout)
}

func writeResult(cmd *cobra.Command, res aggregate.Result, w io.Writer) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	asYAML, _ := cmd.Flags().GetBool("yaml")
	asCSL, _ := cmd.Flags().GetBool("csl")
	switch {
	case asJSON:
		return report.FormatJSON(res, w)
	case asYAML:
		return report.FormatYAML(res, w)
	case asCSL:
		return report.FormatCSL(res, w)
	default:
		report.FormatTable(res, w)
		return nil
	}
}

// buildQuery resolves the query from, in order, a query file, structured
// flags, or free-text arguments.
func buildQuery(ctx context.Context, f *pflag.FlagSet, args []string) (types.StructuredQuery, error) {
	opts := intent.OptionsFrom(cfg.Search)

	if path, _ := f.GetString("query-file"); path != "" {
		qf, err := report.ReadQueryFile(path)
		if err != nil {
			return types.StructuredQuery{}, err
		}
		return opts.Finish(qf.Query), nil
	}

	var q types.StructuredQuery
	groups, _ := f.GetStringArray("keywords")
	for _, g := range groups {
		var terms []string
		for _, t := range strings.Split(g, "|") {
			if t = strings.TrimSpace(t); t != "" {
				terms = append(terms, t)
			}
		}
		if len(terms) > 0 {
			q.KeywordGroups = append(q.KeywordGroups, terms)
		}
	}
	q.Venues, _ = f.GetStringSlice("venue")
	q.Author, _ = f.GetString("author")
	q.DateStart, _ = f.GetString("from")
	q.DateEnd, _ = f.GetString("to")
	if n, _ := f.GetInt("min-influential"); n >= 0 {
		q.MinInfluentialCitations = types.IntPtr(n)
	}
	q.PublicationTypes, _ = f.GetStringSlice("type")
	q.OpenAccessRequired, _ = f.GetBool("open-access")
	q.MaxResults, _ = f.GetInt("max-results")
	sortBy, _ := f.GetString("sort")
	q.SortBy = types.SortMode(sortBy)
	q.EnabledSources, _ = f.GetStringSlice("sources")

	if text := strings.TrimSpace(strings.Join(args, " ")); text != "" {
		if !q.IsEmpty() {
			return types.StructuredQuery{}, errors.New("use either query text or --keywords/--author/--venue, not both")
		}
		parsed, err := intent.KeywordParser{Options: opts}.Parse(ctx, text)
		if err != nil {
			return types.StructuredQuery{}, err
		}
		// Flags still apply where the text left a field unset.
		return mergeFlags(parsed, q, f), nil
	}

	if q.IsEmpty() {
		return types.StructuredQuery{}, errors.New("provide query text, --keywords, --author, --venue or --query-file")
	}
	return opts.Finish(q), nil
}

// mergeFlags copies explicitly set flag values into fields the parsed text
// left empty.
func mergeFlags(parsed, flags types.StructuredQuery, f *pflag.FlagSet) types.StructuredQuery {
	if parsed.DateStart == "" {
		parsed.DateStart = flags.DateStart
	}
	if parsed.DateEnd == "" {
		parsed.DateEnd = flags.DateEnd
	}
	if parsed.MinInfluentialCitations == nil {
		parsed.MinInfluentialCitations = flags.MinInfluentialCitations
	}
	if len(parsed.PublicationTypes) == 0 {
		parsed.PublicationTypes = flags.PublicationTypes
	}
	parsed.OpenAccessRequired = parsed.OpenAccessRequired || flags.OpenAccessRequired
	if f.Changed("max-results") {
		parsed.MaxResults = flags.MaxResults
	}
	if f.Changed("sort") {
		parsed.SortBy = types.ParseSortMode(string(flags.SortBy))
	}
	if f.Changed("sources") {
		parsed.EnabledSources = types.NormalizeSources(flags.EnabledSources, types.PrimarySource, types.KnownSources, cfg.Search.MaxSources)
	}
	return parsed
}
