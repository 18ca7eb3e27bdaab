// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package intent turns raw query text into a StructuredQuery.
//
// Two parsers ship with the repo: KeywordParser reads a small inline syntax
// (groups, alternatives and field:value filters) and YAMLParser reads a
// StructuredQuery document. AutoParser picks between them.
package intent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-survey/pkg/types"
)

// ErrIntentParse matches every ParseError via errors.Is.
var ErrIntentParse = errors.New("intent parse failed")

// ParseError reports raw text that could not be turned into a query.
type ParseError struct {
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing query %q: %v", truncate(e.Text, 80), e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrIntentParse }

// Parser converts raw text into a normalized StructuredQuery.
type Parser interface {
	Parse(ctx context.Context, text string) (types.StructuredQuery, error)
}

// Options controls how parsed queries are completed.
type Options struct {
	// DefaultSources is used when the text names no sources.
	DefaultSources []string
	// MaxSources caps the enabled source list, primary included.
	MaxSources int
}

// OptionsFrom reads parser options from the search config.
func OptionsFrom(cfg types.SearchConfig) Options {
	return Options{DefaultSources: cfg.DefaultSources, MaxSources: cfg.MaxSources}
}

// Finish applies defaults and source normalization to q.
func (o Options) Finish(q types.StructuredQuery) types.StructuredQuery {
	q = q.WithDefaults()
	if len(q.EnabledSources) == 0 {
		q.EnabledSources = o.DefaultSources
	}
	q.EnabledSources = types.NormalizeSources(q.EnabledSources, types.PrimarySource, types.KnownSources, o.MaxSources)
	return q
}

// Fallback builds the minimal query used when parsing fails and the policy
// allows it: the raw text as one keyword group.
func Fallback(text string, o Options) types.StructuredQuery {
	return o.Finish(types.StructuredQuery{
		KeywordGroups: [][]string{{strings.Join(strings.Fields(text), " ")}},
	})
}

// KeywordParser reads inline queries such as
//
//	graph neural networks | gnn ; molecules author:"Kipf" venue:ICLR from:2019 sort:citations
//
// Groups are separated by ";" or " AND " and alternatives within a group
// by "|" or " OR ". Recognized fields: author, venue (repeatable), from,
// to, year, type (repeatable), min_influential, max, sort, sources (comma
// separated) and oa (true/false).
type KeywordParser struct {
	Options Options
}

var fieldRE = regexp.MustCompile(`(?i)\b(author|venue|from|to|year|type|min_influential|max|sort|sources|oa):("[^"]*"|\S+)`)

var (
	groupSplitRE = regexp.MustCompile(`;|\s+AND\s+`)
	altSplitRE   = regexp.MustCompile(`\||\s+OR\s+`)
)

// Parse implements Parser.
func (p KeywordParser) Parse(_ context.Context, text string) (types.StructuredQuery, error) {
	if strings.TrimSpace(text) == "" {
		return types.StructuredQuery{}, &ParseError{Text: text, Err: errors.New("empty query")}
	}

	var q types.StructuredQuery
	var ferr error
	rest := fieldRE.ReplaceAllStringFunc(text, func(m string) string {
		sub := fieldRE.FindStringSubmatch(m)
		if err := applyField(&q, strings.ToLower(sub[1]), strings.Trim(sub[2], `"`)); err != nil && ferr == nil {
			ferr = err
		}
		return " "
	})
	if ferr != nil {
		return types.StructuredQuery{}, &ParseError{Text: text, Err: ferr}
	}

	for _, g := range groupSplitRE.Split(rest, -1) {
		var terms []string
		for _, t := range altSplitRE.Split(g, -1) {
			if t = strings.Join(strings.Fields(t), " "); t != "" {
				terms = append(terms, t)
			}
		}
		if len(terms) > 0 {
			q.KeywordGroups = append(q.KeywordGroups, terms)
		}
	}

	if q.IsEmpty() {
		return types.StructuredQuery{}, &ParseError{Text: text, Err: errors.New("no keywords, author or venue")}
	}
	return p.Options.Finish(q), nil
}

func applyField(q *types.StructuredQuery, key, val string) error {
	switch key {
	case "author":
		q.Author = val
	case "venue":
		q.Venues = append(q.Venues, val)
	case "from":
		q.DateStart = val
	case "to":
		q.DateEnd = val
	case "year":
		q.DateStart, q.DateEnd = val, val
	case "type":
		q.PublicationTypes = append(q.PublicationTypes, val)
	case "min_influential":
		n, err := strconv.Atoi(val)
		if err != nil || n < 0 {
			return fmt.Errorf("min_influential must be a non-negative integer, got %q", val)
		}
		q.MinInfluentialCitations = types.IntPtr(n)
	case "max":
		n, err := strconv.Atoi(val)
		if err != nil || n <= 0 {
			return fmt.Errorf("max must be a positive integer, got %q", val)
		}
		q.MaxResults = n
	case "sort":
		q.SortBy = types.ParseSortMode(val)
	case "sources":
		q.EnabledSources = append(q.EnabledSources, strings.Split(val, ",")...)
	case "oa":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("oa must be true or false, got %q", val)
		}
		q.OpenAccessRequired = b
	}
	return nil
}

// YAMLParser reads a StructuredQuery YAML document. Unknown keys are
// rejected.
type YAMLParser struct {
	Options Options
}

// Parse implements Parser.
func (p YAMLParser) Parse(_ context.Context, text string) (types.StructuredQuery, error) {
	dec := yaml.NewDecoder(bytes.NewReader([]byte(text)))
	dec.KnownFields(true)

	var q types.StructuredQuery
	if err := dec.Decode(&q); err != nil {
		return types.StructuredQuery{}, &ParseError{Text: text, Err: err}
	}
	if q.IsEmpty() {
		return types.StructuredQuery{}, &ParseError{Text: text, Err: errors.New("no keywords, author or venue")}
	}
	return p.Options.Finish(q), nil
}

// AutoParser uses YAMLParser for text that looks like a YAML mapping of
// query fields and KeywordParser otherwise.
type AutoParser struct {
	Options Options
}

var yamlKeyRE = regexp.MustCompile(`(?m)^\s*(keyword_groups|venues|author|date_start|date_end|max_results|sort_by|enabled_sources)\s*:`)

// Parse implements Parser.
func (p AutoParser) Parse(ctx context.Context, text string) (types.StructuredQuery, error) {
	if yamlKeyRE.MatchString(text) {
		return YAMLParser(p).Parse(ctx, text)
	}
	return KeywordParser(p).Parse(ctx, text)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
