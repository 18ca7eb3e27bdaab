// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// RawRecord is a record as returned by a source adapter, before
// canonicalization. Empty strings and nil pointers mean the source did not
// report the field.
type RawRecord struct {
	// SourceID is the record's identifier inside its source (S2 paperId,
	// OpenAlex work id, arXiv id).
	SourceID string `json:"source_id,omitempty"`

	Title    string   `json:"title"`
	Abstract string   `json:"abstract,omitempty"`
	Authors  []string `json:"authors,omitempty"`

	DOI    string `json:"doi,omitempty"`
	URL    string `json:"url,omitempty"`
	PDFURL string `json:"pdf_url,omitempty"`

	// PublicationDate is the source's date string (YYYY-MM-DD, YYYY-MM or
	// an RFC 3339 timestamp).
	PublicationDate string `json:"publication_date,omitempty"`
	Year            *int   `json:"year,omitempty"`

	Venue string `json:"venue,omitempty"`

	CitationCount            *int  `json:"citation_count,omitempty"`
	InfluentialCitationCount *int  `json:"influential_citation_count,omitempty"`
	OpenAccess               *bool `json:"open_access,omitempty"`

	PublicationTypes []string `json:"publication_types,omitempty"`
	FieldsOfStudy    []string `json:"fields_of_study,omitempty"`
}

// NominalMonth and NominalDay place a year-only record at mid-year so that
// date comparisons do not bias it toward either end of the year.
const (
	NominalMonth = time.July
	NominalDay   = 1
)

// CanonicalRecord is the source-agnostic record used by dedup, filtering and
// ranking. Unknown values are represented by empty strings and nil pointers;
// zero counts are known values.
type CanonicalRecord struct {
	Title    string   `json:"title" yaml:"title"`
	Abstract string   `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	Authors  []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// PublicationDate has day precision (UTC midnight).
	PublicationDate *time.Time `json:"publication_date,omitempty" yaml:"publication_date,omitempty"`
	Year            *int       `json:"year,omitempty" yaml:"year,omitempty"`

	// Venue is the display string as reported; VenueKey is its normalized form.
	Venue    string `json:"venue,omitempty" yaml:"venue,omitempty"`
	VenueKey string `json:"venue_key,omitempty" yaml:"venue_key,omitempty"`

	DOI    string `json:"doi,omitempty" yaml:"doi,omitempty"`
	URL    string `json:"url,omitempty" yaml:"url,omitempty"`
	PDFURL string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`

	CitationCount            *int  `json:"citation_count,omitempty" yaml:"citation_count,omitempty"`
	InfluentialCitationCount *int  `json:"influential_citation_count,omitempty" yaml:"influential_citation_count,omitempty"`
	OpenAccess               *bool `json:"open_access,omitempty" yaml:"open_access,omitempty"`

	PublicationTypes []string `json:"publication_types,omitempty" yaml:"publication_types,omitempty"`
	FieldsOfStudy    []string `json:"fields_of_study,omitempty" yaml:"fields_of_study,omitempty"`

	// Source is the source that produced the surviving record; Sources lists
	// every source that contributed after dedup, in merge order.
	Source  string   `json:"source" yaml:"source"`
	Sources []string `json:"sources,omitempty" yaml:"sources,omitempty"`

	// Score is the composite importance score assigned by the ranker.
	Score float64 `json:"score" yaml:"score"`
}

// EffectiveDate returns the publication date, or the nominal mid-year day
// when only the year is known. ok is false when neither is known.
func (r CanonicalRecord) EffectiveDate() (time.Time, bool) {
	if r.PublicationDate != nil {
		return *r.PublicationDate, true
	}
	if r.Year != nil && *r.Year > 0 {
		return time.Date(*r.Year, NominalMonth, NominalDay, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// EffectiveYear returns the year, derived from the date when Year is unset.
// Zero means unknown.
func (r CanonicalRecord) EffectiveYear() int {
	if r.Year != nil {
		return *r.Year
	}
	if r.PublicationDate != nil {
		return r.PublicationDate.Year()
	}
	return 0
}

// IsOpenAccess reports whether the record is known to be open access or
// carries a PDF link.
func (r CanonicalRecord) IsOpenAccess() bool {
	return (r.OpenAccess != nil && *r.OpenAccess) || r.PDFURL != ""
}

// Clone returns a deep copy of r.
func (r CanonicalRecord) Clone() CanonicalRecord {
	c := r
	c.Authors = cloneStrings(r.Authors)
	c.PublicationTypes = cloneStrings(r.PublicationTypes)
	c.FieldsOfStudy = cloneStrings(r.FieldsOfStudy)
	c.Sources = cloneStrings(r.Sources)
	if r.PublicationDate != nil {
		d := *r.PublicationDate
		c.PublicationDate = &d
	}
	c.Year = cloneInt(r.Year)
	c.CitationCount = cloneInt(r.CitationCount)
	c.InfluentialCitationCount = cloneInt(r.InfluentialCitationCount)
	if r.OpenAccess != nil {
		v := *r.OpenAccess
		c.OpenAccess = &v
	}
	return c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// BoolPtr returns a pointer to v.
func BoolPtr(v bool) *bool { return &v }
