// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders search results for the terminal and for files.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-survey/internal/aggregate"
	"github.com/pdiddy/paper-survey/pkg/types"
)

// Document is the serialized form of a search result.
type Document struct {
	Query        types.StructuredQuery   `json:"normalized_intent" yaml:"normalized_intent"`
	Results      []types.CanonicalRecord `json:"results" yaml:"results"`
	Counts       types.Counts            `json:"counts" yaml:"counts"`
	SourceErrors map[string]string       `json:"source_errors,omitempty" yaml:"source_errors,omitempty"`
}

// NewDocument converts an aggregation result.
func NewDocument(res aggregate.Result) Document {
	return Document{Query: res.Query, Results: res.Records, Counts: res.Counts, SourceErrors: res.SourceErrors}
}

// FormatTable writes results as an aligned text table followed by a
// one-line summary.
func FormatTable(res aggregate.Result, w io.Writer) {
	if len(res.Records) == 0 {
		fmt.Fprintln(w, "No results found.")
		writeSummary(res, w)
		return
	}

	fmt.Fprintf(w, "%-4s  %-60s  %-20s  %-4s  %-12s  %6s  %-6s  %s\n",
		"Rank", "Title", "Authors", "Year", "Venue", "Cites", "Score", "Sources")
	fmt.Fprintln(w, strings.Repeat("-", 130))

	for i, r := range res.Records {
		year := ""
		if y := r.EffectiveYear(); y > 0 {
			year = strconv.Itoa(y)
		}
		cites := "-"
		if r.CitationCount != nil {
			cites = strconv.Itoa(*r.CitationCount)
		}
		fmt.Fprintf(w, "%-4d  %-60s  %-20s  %-4s  %-12s  %6s  %-6.2f  %s\n",
			i+1, truncate(r.Title, 60), formatAuthors(r.Authors), year,
			truncate(r.Venue, 12), cites, r.Score, strings.Join(r.Sources, ","))
	}

	fmt.Fprintln(w)
	writeSummary(res, w)
}

func writeSummary(res aggregate.Result, w io.Writer) {
	c := res.Counts
	fmt.Fprintf(w, "%d results (%d fetched from %d sources, %d unique, %d after filters",
		len(res.Records), c.TotalRawFetched, len(c.RawFetched), c.UniqueAfterDedup, c.AfterFilter)
	if c.Skipped > 0 {
		fmt.Fprintf(w, ", %d malformed skipped", c.Skipped)
	}
	fmt.Fprintln(w, ")")

	if len(c.Rejected) > 0 {
		names := make([]string, 0, len(c.Rejected))
		for n := range c.Rejected {
			names = append(names, n)
		}
		sort.Strings(names)
		parts := make([]string, len(names))
		for i, n := range names {
			parts[i] = fmt.Sprintf("%s=%d", n, c.Rejected[n])
		}
		fmt.Fprintf(w, "rejected: %s\n", strings.Join(parts, " "))
	}
}

// FormatJSON writes the result document as indented JSON.
func FormatJSON(res aggregate.Result, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewDocument(res))
}

// FormatYAML writes the result document as YAML.
func FormatYAML(res aggregate.Result, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewDocument(res)); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return enc.Close()
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 20)
	default:
		return truncate(authors[0], 14) + " et al."
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
