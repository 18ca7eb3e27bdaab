// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package canon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-survey/pkg/types"
)

func TestCanonicalize(t *testing.T) {
	c := New(nil)

	raw := types.RawRecord{
		SourceID:                 "abc",
		Title:                    "  Attention   Is All\nYou Need ",
		Authors:                  []string{" Ashish Vaswani ", ""},
		DOI:                      "https://doi.org/10.5555/ABC.123",
		URL:                      " https://example.org/p ",
		PublicationDate:          "2017-06-12T17:57:34Z",
		Venue:                    "Advances in Neural Information Processing Systems",
		CitationCount:            types.IntPtr(0),
		InfluentialCitationCount: types.IntPtr(-1),
		OpenAccess:               types.BoolPtr(false),
		PublicationTypes:         []string{"Conference", " "},
	}
	rec, err := c.Canonicalize(raw, "s2")
	require.NoError(t, err)

	assert.Equal(t, "Attention Is All You Need", rec.Title)
	assert.Equal(t, []string{"Ashish Vaswani"}, rec.Authors)
	assert.Equal(t, "10.5555/abc.123", rec.DOI)
	assert.Equal(t, "https://example.org/p", rec.URL)
	require.NotNil(t, rec.PublicationDate)
	assert.Equal(t, time.Date(2017, 6, 12, 0, 0, 0, 0, time.UTC), *rec.PublicationDate)
	require.NotNil(t, rec.Year)
	assert.Equal(t, 2017, *rec.Year, "year derived from date")
	assert.Equal(t, "Advances in Neural Information Processing Systems", rec.Venue)
	assert.Equal(t, "NEURIPS", rec.VenueKey)
	require.NotNil(t, rec.CitationCount)
	assert.Equal(t, 0, *rec.CitationCount, "zero stays known")
	assert.Nil(t, rec.InfluentialCitationCount, "negative counts are unknown")
	require.NotNil(t, rec.OpenAccess)
	assert.False(t, *rec.OpenAccess)
	assert.Equal(t, []string{"Conference"}, rec.PublicationTypes)
	assert.Equal(t, "s2", rec.Source)
	assert.Equal(t, []string{"s2"}, rec.Sources)
}

func TestCanonicalize_UnknownStaysUnknown(t *testing.T) {
	rec, err := New(nil).Canonicalize(types.RawRecord{Title: "Bare"}, "crossref")
	require.NoError(t, err)

	assert.Nil(t, rec.PublicationDate)
	assert.Nil(t, rec.Year)
	assert.Nil(t, rec.CitationCount)
	assert.Nil(t, rec.InfluentialCitationCount)
	assert.Nil(t, rec.OpenAccess)
	assert.Empty(t, rec.Venue)
	assert.Empty(t, rec.VenueKey)
	assert.Empty(t, rec.Authors)
}

func TestCanonicalize_YearOnly(t *testing.T) {
	rec, err := New(nil).Canonicalize(types.RawRecord{Title: "T", Year: types.IntPtr(2023)}, "s2")
	require.NoError(t, err)

	assert.Nil(t, rec.PublicationDate)
	require.NotNil(t, rec.Year)
	assert.Equal(t, 2023, *rec.Year)

	d, ok := rec.EffectiveDate()
	require.True(t, ok)
	assert.Equal(t, time.Date(2023, time.July, 1, 0, 0, 0, 0, time.UTC), d)
}

func TestCanonicalize_MonthPrecision(t *testing.T) {
	rec, err := New(nil).Canonicalize(types.RawRecord{Title: "T", PublicationDate: "2020-03"}, "crossref")
	require.NoError(t, err)
	require.NotNil(t, rec.PublicationDate)
	assert.Equal(t, time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC), *rec.PublicationDate)
}

func TestCanonicalize_Malformed(t *testing.T) {
	for _, title := range []string{"", "   ", "\n\t"} {
		_, err := New(nil).Canonicalize(types.RawRecord{Title: title, DOI: "10.1/x"}, "s2")
		assert.ErrorIs(t, err, ErrMalformed)
	}
}

func TestCanonicalize_DoesNotAliasInput(t *testing.T) {
	raw := types.RawRecord{Title: "T", CitationCount: types.IntPtr(5), Authors: []string{"A"}}
	rec, err := New(nil).Canonicalize(raw, "s2")
	require.NoError(t, err)

	*rec.CitationCount = 99
	rec.Authors[0] = "B"
	assert.Equal(t, 5, *raw.CitationCount)
	assert.Equal(t, "A", raw.Authors[0])
}

func TestNormalizeDOI(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"10.1000/XYZ", "10.1000/xyz"},
		{"https://doi.org/10.1000/xyz", "10.1000/xyz"},
		{"http://dx.doi.org/10.1000/xyz", "10.1000/xyz"},
		{"DOI:10.1000/xyz", "10.1000/xyz"},
		{"  ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDOI(tt.in))
		})
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://Example.org/Paper/", "https://example.org/Paper"},
		{"http://example.org/p#section", "https://example.org/p"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeURL(tt.in))
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in     string
		want   time.Time
		wantOK bool
	}{
		{"2021-05-04", time.Date(2021, 5, 4, 0, 0, 0, 0, time.UTC), true},
		{"2021-05-04T10:00:00Z", time.Date(2021, 5, 4, 0, 0, 0, 0, time.UTC), true},
		{"2021-05", time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC), true},
		{"2021", time.Time{}, false},
		{"May 2021", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
