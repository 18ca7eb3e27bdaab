// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the paper-survey pipeline:
// the structured query, raw and canonical bibliographic records, async search
// tasks, and configuration.
package types

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidQuery is returned when a StructuredQuery fails validation.
var ErrInvalidQuery = errors.New("invalid query")

// SortMode selects how the ranker orders results.
type SortMode string

const (
	SortRelevance       SortMode = "relevance"
	SortImportance      SortMode = "importance"
	SortCitationCount   SortMode = "citationCount"
	SortPublicationDate SortMode = "publicationDate"
)

// ParseSortMode maps a user-supplied sort string to a SortMode. Matching is
// case-insensitive and unknown values fall back to relevance.
func ParseSortMode(s string) SortMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "citationcount", "citations", "citation_count":
		return SortCitationCount
	case "publicationdate", "date", "newest", "freshness", "publication_date":
		return SortPublicationDate
	case "importance":
		return SortImportance
	default:
		return SortRelevance
	}
}

// DefaultMaxResults is used when a query does not set MaxResults.
const DefaultMaxResults = 10

// StructuredQuery is the parsed form of a search request. Keyword groups are
// an AND of ORs: every group must match, any term within a group may match.
type StructuredQuery struct {
	KeywordGroups [][]string `json:"keyword_groups" yaml:"keyword_groups"`

	// Venues lists venue names or acronyms (e.g. "ICLR", "NeurIPS").
	Venues []string `json:"venues,omitempty" yaml:"venues,omitempty"`

	Author string `json:"author,omitempty" yaml:"author,omitempty"`

	// DateStart and DateEnd accept YYYY, YYYY-MM or YYYY-MM-DD.
	DateStart string `json:"date_start,omitempty" yaml:"date_start,omitempty"`
	DateEnd   string `json:"date_end,omitempty" yaml:"date_end,omitempty"`

	MinInfluentialCitations *int `json:"min_influential_citations,omitempty" yaml:"min_influential_citations,omitempty"`

	PublicationTypes []string `json:"publication_types,omitempty" yaml:"publication_types,omitempty"`

	OpenAccessRequired bool `json:"open_access_required,omitempty" yaml:"open_access_required,omitempty"`

	MaxResults int      `json:"max_results" yaml:"max_results"`
	SortBy     SortMode `json:"sort_by" yaml:"sort_by"`

	// EnabledSources names the source adapters to query. Callers ensure the
	// primary source is always present (see NormalizeSources).
	EnabledSources []string `json:"enabled_sources" yaml:"enabled_sources"`
}

// WithDefaults returns a copy of q with empty MaxResults and SortBy filled in.
func (q StructuredQuery) WithDefaults() StructuredQuery {
	if q.MaxResults <= 0 {
		q.MaxResults = DefaultMaxResults
	}
	q.SortBy = ParseSortMode(string(q.SortBy))
	return q
}

// IsEmpty reports whether the query has no searchable terms.
func (q StructuredQuery) IsEmpty() bool {
	for _, g := range q.KeywordGroups {
		for _, term := range g {
			if strings.TrimSpace(term) != "" {
				return false
			}
		}
	}
	return q.Author == "" && len(q.Venues) == 0
}

// Validate checks result limits and date bounds. A limit of zero disables
// the upper bound check on MaxResults.
func (q StructuredQuery) Validate(limit int) error {
	if q.MaxResults <= 0 {
		return fmt.Errorf("%w: max_results must be positive, got %d", ErrInvalidQuery, q.MaxResults)
	}
	if limit > 0 && q.MaxResults > limit {
		return fmt.Errorf("%w: max_results (%d) exceeds limit of %d", ErrInvalidQuery, q.MaxResults, limit)
	}
	if len(q.EnabledSources) == 0 {
		return fmt.Errorf("%w: no enabled sources", ErrInvalidQuery)
	}
	start, hasStart, err := ParseDateBound(q.DateStart, false)
	if err != nil {
		return fmt.Errorf("%w: date_start: %v", ErrInvalidQuery, err)
	}
	end, hasEnd, err := ParseDateBound(q.DateEnd, true)
	if err != nil {
		return fmt.Errorf("%w: date_end: %v", ErrInvalidQuery, err)
	}
	if hasStart && hasEnd && end.Before(start) {
		return fmt.Errorf("%w: date_start %s is after date_end %s", ErrInvalidQuery, q.DateStart, q.DateEnd)
	}
	return nil
}

var (
	yearOnly  = regexp.MustCompile(`^\d{4}$`)
	yearMonth = regexp.MustCompile(`^\d{4}-\d{2}$`)
)

const dateFmt = "2006-01-02"

// ParseDateBound parses a date range bound. Year and year-month bounds expand
// to the first day of the period for a start bound and the last day for an
// end bound. An empty string reports ok=false with no error.
func ParseDateBound(s string, end bool) (t time.Time, ok bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, nil
	}
	switch {
	case yearOnly.MatchString(s):
		y, _ := strconv.Atoi(s)
		if end {
			return time.Date(y, 12, 31, 0, 0, 0, 0, time.UTC), true, nil
		}
		return time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC), true, nil
	case yearMonth.MatchString(s):
		first, perr := time.Parse("2006-01", s)
		if perr != nil {
			return time.Time{}, false, fmt.Errorf("invalid month %q: %w", s, perr)
		}
		if end {
			return first.AddDate(0, 1, -1), true, nil
		}
		return first, true, nil
	}
	if len(s) > 10 {
		s = s[:10]
	}
	t, err = time.Parse(dateFmt, s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, true, nil
}

// NormalizeSources lowercases and dedupes ids (keeping order), drops ids not
// in allowed, puts primary first and caps the list at max entries (max <= 0
// means no cap). The result always contains primary.
func NormalizeSources(ids []string, primary string, allowed []string, max int) []string {
	allow := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		allow[a] = true
	}

	seen := map[string]bool{primary: true}
	out := []string{primary}
	for _, id := range ids {
		k := strings.ToLower(strings.TrimSpace(id))
		if k == "" || seen[k] {
			continue
		}
		if len(allow) > 0 && !allow[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}
