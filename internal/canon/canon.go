// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package canon converts raw adapter records into canonical records:
// venue names collapse through a synonym table, dates are parsed to day
// precision, identifiers are normalized, and unknown fields stay unknown.
package canon

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/paper-survey/pkg/types"
)

// ErrMalformed is returned for records that cannot be canonicalized.
var ErrMalformed = errors.New("malformed record")

// Canonicalizer holds the venue table used while canonicalizing. The zero
// value is not usable; call New.
type Canonicalizer struct {
	venues *VenueTable
}

// New returns a Canonicalizer using the built-in venue synonyms extended
// with extra (canonical name -> alternative spellings).
func New(extra map[string][]string) *Canonicalizer {
	return &Canonicalizer{venues: NewVenueTable(extra)}
}

// Venues returns the venue table.
func (c *Canonicalizer) Venues() *VenueTable { return c.venues }

// Canonicalize converts raw into a CanonicalRecord attributed to sourceID.
// It does not modify raw.
func (c *Canonicalizer) Canonicalize(raw types.RawRecord, sourceID string) (types.CanonicalRecord, error) {
	title := strings.Join(strings.Fields(raw.Title), " ")
	if title == "" {
		return types.CanonicalRecord{}, fmt.Errorf("%w: empty title (source %s, id %q)", ErrMalformed, sourceID, raw.SourceID)
	}

	rec := types.CanonicalRecord{
		Title:                    title,
		Abstract:                 strings.TrimSpace(raw.Abstract),
		DOI:                      NormalizeDOI(raw.DOI),
		URL:                      strings.TrimSpace(raw.URL),
		PDFURL:                   strings.TrimSpace(raw.PDFURL),
		CitationCount:            nonNegative(raw.CitationCount),
		InfluentialCitationCount: nonNegative(raw.InfluentialCitationCount),
		Source:                   sourceID,
		Sources:                  []string{sourceID},
	}

	for _, a := range raw.Authors {
		if a = strings.TrimSpace(a); a != "" {
			rec.Authors = append(rec.Authors, a)
		}
	}
	rec.PublicationTypes = cleanList(raw.PublicationTypes)
	rec.FieldsOfStudy = cleanList(raw.FieldsOfStudy)

	if v := strings.TrimSpace(raw.Venue); v != "" {
		rec.Venue = v
		rec.VenueKey = c.venues.Key(v)
	}

	if raw.OpenAccess != nil {
		rec.OpenAccess = types.BoolPtr(*raw.OpenAccess)
	}

	if d, ok := ParseDate(raw.PublicationDate); ok {
		rec.PublicationDate = &d
	}
	switch {
	case raw.Year != nil && *raw.Year > 0:
		rec.Year = types.IntPtr(*raw.Year)
	case rec.PublicationDate != nil:
		rec.Year = types.IntPtr(rec.PublicationDate.Year())
	}
	return rec, nil
}

// NormalizeDOI trims, removes resolver and doi: prefixes, and lowercases.
func NormalizeDOI(doi string) string {
	d := strings.TrimSpace(doi)
	lower := strings.ToLower(d)
	for _, p := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "http://dx.doi.org/", "doi:"} {
		if strings.HasPrefix(lower, p) {
			d = d[len(p):]
			break
		}
	}
	return strings.ToLower(strings.TrimSpace(d))
}

// NormalizeURL lowercases scheme and host and drops a trailing slash and
// fragment, so that the same landing page compares equal across sources.
func NormalizeURL(u string) string {
	u = strings.TrimSpace(u)
	if u == "" {
		return ""
	}
	if i := strings.IndexByte(u, '#'); i >= 0 {
		u = u[:i]
	}
	if i := strings.Index(u, "://"); i >= 0 {
		rest := u[i+3:]
		host, path := rest, ""
		if j := strings.IndexByte(rest, '/'); j >= 0 {
			host, path = rest[:j], rest[j:]
		}
		scheme := strings.ToLower(u[:i])
		if scheme == "http" {
			scheme = "https"
		}
		u = scheme + "://" + strings.ToLower(host) + path
	}
	return strings.TrimRight(u, "/")
}

// ParseDate parses a source date string to UTC midnight. It accepts
// YYYY-MM-DD (or any longer string with that prefix, such as RFC 3339) and
// YYYY-MM, which maps to the first of the month. Year-only strings return
// ok=false; the caller keeps them as a year.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) >= 10 {
		if t, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return t, true
		}
	}
	if len(s) == 7 {
		if t, err := time.Parse("2006-01", s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func nonNegative(p *int) *int {
	if p == nil || *p < 0 {
		return nil
	}
	return types.IntPtr(*p)
}

func cleanList(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
