// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateBound(t *testing.T) {
	tests := []struct {
		in      string
		end     bool
		want    time.Time
		wantOK  bool
		wantErr bool
	}{
		{in: "", wantOK: false},
		{in: "2021", want: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), wantOK: true},
		{in: "2021", end: true, want: time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC), wantOK: true},
		{in: "2024-02", end: true, want: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), wantOK: true},
		{in: "2023-02", want: time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC), wantOK: true},
		{in: " 2020-06-15 ", want: time.Date(2020, 6, 15, 0, 0, 0, 0, time.UTC), wantOK: true},
		{in: "2020-06-15T10:00:00Z", want: time.Date(2020, 6, 15, 0, 0, 0, 0, time.UTC), wantOK: true},
		{in: "2021-13", wantErr: true},
		{in: "last year", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok, err := ParseDateBound(tt.in, tt.end)
			if tt.wantErr {
				assert.Error(t, err)
				assert.False(t, ok)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestStructuredQuery_Validate(t *testing.T) {
	base := StructuredQuery{
		KeywordGroups:  [][]string{{"transformers"}},
		MaxResults:     10,
		EnabledSources: []string{PrimarySource},
	}

	tests := []struct {
		name    string
		mutate  func(*StructuredQuery)
		limit   int
		wantErr string
	}{
		{name: "valid", mutate: func(*StructuredQuery) {}},
		{name: "zero max results", mutate: func(q *StructuredQuery) { q.MaxResults = 0 }, wantErr: "must be positive"},
		{name: "over limit", mutate: func(q *StructuredQuery) { q.MaxResults = 501 }, limit: 500, wantErr: "exceeds limit"},
		{name: "no limit", mutate: func(q *StructuredQuery) { q.MaxResults = 10000 }},
		{name: "no sources", mutate: func(q *StructuredQuery) { q.EnabledSources = nil }, wantErr: "no enabled sources"},
		{name: "bad start", mutate: func(q *StructuredQuery) { q.DateStart = "yesterday" }, wantErr: "date_start"},
		{name: "bad end", mutate: func(q *StructuredQuery) { q.DateEnd = "2020-99" }, wantErr: "date_end"},
		{name: "inverted range", mutate: func(q *StructuredQuery) { q.DateStart, q.DateEnd = "2022", "2021" }, wantErr: "is after"},
		{name: "same year range", mutate: func(q *StructuredQuery) { q.DateStart, q.DateEnd = "2021", "2021" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := base
			tt.mutate(&q)
			err := q.Validate(tt.limit)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidQuery)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStructuredQuery_WithDefaults(t *testing.T) {
	q := StructuredQuery{SortBy: "Citations"}.WithDefaults()
	assert.Equal(t, DefaultMaxResults, q.MaxResults)
	assert.Equal(t, SortCitationCount, q.SortBy)

	q = StructuredQuery{MaxResults: 3}.WithDefaults()
	assert.Equal(t, 3, q.MaxResults)
	assert.Equal(t, SortRelevance, q.SortBy)
}

func TestStructuredQuery_IsEmpty(t *testing.T) {
	assert.True(t, StructuredQuery{}.IsEmpty())
	assert.True(t, StructuredQuery{KeywordGroups: [][]string{{" ", ""}}}.IsEmpty())
	assert.False(t, StructuredQuery{KeywordGroups: [][]string{{"", "gnn"}}}.IsEmpty())
	assert.False(t, StructuredQuery{Author: "Hinton"}.IsEmpty())
	assert.False(t, StructuredQuery{Venues: []string{"ICLR"}}.IsEmpty())
}

func TestParseSortMode(t *testing.T) {
	tests := map[string]SortMode{
		"":                SortRelevance,
		"relevance":       SortRelevance,
		"bogus":           SortRelevance,
		"importance":      SortImportance,
		"citationCount":   SortCitationCount,
		"CITATIONS":       SortCitationCount,
		"publicationDate": SortPublicationDate,
		"newest":          SortPublicationDate,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseSortMode(in), "input %q", in)
	}
}

func TestNormalizeSources(t *testing.T) {
	allowed := KnownSources
	tests := []struct {
		name string
		ids  []string
		max  int
		want []string
	}{
		{"empty gets primary", nil, 3, []string{"s2"}},
		{"primary moved first", []string{"arxiv", "S2"}, 3, []string{"s2", "arxiv"}},
		{"duplicates and unknown dropped", []string{"OpenAlex", "openalex", "scopus", " arxiv "}, 0, []string{"s2", "openalex", "arxiv"}},
		{"capped", []string{"openalex", "arxiv", "crossref"}, 3, []string{"s2", "openalex", "arxiv"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeSources(tt.ids, PrimarySource, allowed, tt.max))
		})
	}
}
