// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source defines the Source Adapter contract and the concrete
// adapters for the bibliographic backends (Semantic Scholar, OpenAlex,
// arXiv, Crossref). Adapters return one page of raw records per call; the
// aggregator owns pagination, concurrency and merging.
package source

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pdiddy/paper-survey/pkg/types"
)

// MatchAll is the query fragment used when a query has no keyword groups.
const MatchAll = "*"

// Adapter fetches one page of raw records from a single backend.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, req FetchRequest) (Page, error)
}

// FetchRequest asks an adapter for one page. Terms is one query fragment
// built by ExpandKeywordGroups; Cursor is empty for the first page and
// otherwise the NextCursor of the previous page.
type FetchRequest struct {
	Query    types.StructuredQuery
	Terms    string
	Cursor   string
	PageSize int
}

// Page is one page of results. An empty NextCursor means no more pages.
type Page struct {
	Items          []types.RawRecord
	NextCursor     string
	TotalEstimated *int
}

// ErrNoAdapter is returned when a query names a source with no registered
// adapter.
var ErrNoAdapter = errors.New("no adapter registered")

// FetchError classifies an adapter failure. Transient errors were cut short
// by the caller's deadline or a rate-limit wait and may succeed on a later
// call. Terminal errors will not: other 4xx, malformed responses, and 429,
// 5xx or timeouts that exhausted the retry budget.
type FetchError struct {
	Source     string
	StatusCode int
	Transient  bool
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: HTTP %d: %v", e.Source, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Source, e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// Registry maps source ids to adapters.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry returns a registry holding the given adapters, keyed by Name.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds or replaces the adapter for a.Name().
func (r *Registry) Register(a Adapter) {
	r.adapters[a.Name()] = a
}

// Get returns the adapter for id.
func (r *Registry) Get(id string) (Adapter, error) {
	a, ok := r.adapters[id]
	if !ok {
		return nil, fmt.Errorf("%w for source %q", ErrNoAdapter, id)
	}
	return a, nil
}

// Names returns the registered source ids in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for n := range r.adapters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New builds a registry with every built-in adapter configured from cfg.
func New(cfg types.SourcesConfig) *Registry {
	s2RPS := cfg.SemanticScholarRPS
	if cfg.SemanticScholarAPIKey != "" && s2RPS < 1 {
		s2RPS = 1
	}
	return NewRegistry(
		&SemanticScholar{Transport: NewTransport(cfg.HTTPConfig, s2RPS), APIKey: cfg.SemanticScholarAPIKey},
		&OpenAlex{Transport: NewTransport(cfg.HTTPConfig, cfg.RPS), Email: cfg.OpenAlexEmail},
		&Arxiv{Transport: NewTransport(cfg.HTTPConfig, cfg.RPS)},
		&Crossref{Transport: NewTransport(cfg.HTTPConfig, cfg.RPS), Mailto: cfg.CrossrefMailto},
	)
}

// ExpandKeywordGroups builds one query fragment per combination of terms,
// taking one term from each group (cartesian product). Multi-word terms are
// quoted. Blank terms and empty groups are ignored; when nothing remains the
// single fragment MatchAll is returned. max caps the number of fragments
// (max <= 0 means no cap).
func ExpandKeywordGroups(groups [][]string, max int) []string {
	var clean [][]string
	for _, g := range groups {
		var terms []string
		for _, t := range g {
			if q := quoteIfNeeded(t); q != "" {
				terms = append(terms, q)
			}
		}
		if len(terms) > 0 {
			clean = append(clean, terms)
		}
	}
	if len(clean) == 0 {
		return []string{MatchAll}
	}

	out := []string{""}
	for _, g := range clean {
		next := make([]string, 0, len(out)*len(g))
		for _, prefix := range out {
			for _, t := range g {
				if prefix == "" {
					next = append(next, t)
				} else {
					next = append(next, prefix+" "+t)
				}
			}
		}
		// Truncating each step keeps the same leading fragments as
		// truncating the full product.
		if max > 0 && len(next) > max {
			next = next[:max]
		}
		out = next
	}
	return out
}

func errInvalidCursor(c string) error { return fmt.Errorf("invalid cursor %q", c) }

func quoteIfNeeded(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.Contains(s, " ") && !(strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`)) {
		return `"` + s + `"`
	}
	return s
}

var displayNames = map[string]string{
	"s2":       "Semantic Scholar",
	"openalex": "OpenAlex",
	"arxiv":    "arXiv",
	"crossref": "Crossref",
}

// DisplayName returns a human-readable name for a source id, or the id
// itself when it is not a built-in source.
func DisplayName(id string) string {
	if n, ok := displayNames[id]; ok {
		return n
	}
	return id
}
