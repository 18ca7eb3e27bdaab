// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dedup collapses canonical records that describe the same work.
package dedup

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/pdiddy/paper-survey/internal/canon"
	"github.com/pdiddy/paper-survey/pkg/types"
)

// Key returns the dedup key for rec: its DOI when known, else its URL,
// else its normalized title and year (0 when the year is unknown).
func Key(rec types.CanonicalRecord) string {
	if rec.DOI != "" {
		return "doi:" + rec.DOI
	}
	if u := canon.NormalizeURL(rec.URL); u != "" {
		return "url:" + u
	}
	return "ty:" + normalizeTitle(rec.Title) + "|" + strconv.Itoa(rec.EffectiveYear())
}

// Dedup keeps the first record seen for each key and backfills its unknown
// fields from later records with the same key. The input slice and its
// records are not modified. It returns the survivors in first-seen order
// and the number of records merged away.
//
// Backfill never touches the fields a key is computed from within a group
// (every member of a url group lacks a DOI, every member of a title group
// lacks both), so Dedup(Dedup(x)) == Dedup(x).
func Dedup(records []types.CanonicalRecord) ([]types.CanonicalRecord, int) {
	seen := make(map[string]int, len(records))
	out := make([]types.CanonicalRecord, 0, len(records))
	removed := 0

	for _, r := range records {
		k := Key(r)
		if idx, ok := seen[k]; ok {
			mergeInto(&out[idx], r)
			removed++
			continue
		}
		seen[k] = len(out)
		out = append(out, r.Clone())
	}
	return out, removed
}

// mergeInto fills unknown fields of dst from src and records src's sources.
// dst must already be a private copy.
func mergeInto(dst *types.CanonicalRecord, src types.CanonicalRecord) {
	if dst.Abstract == "" {
		dst.Abstract = src.Abstract
	}
	if len(dst.Authors) == 0 && len(src.Authors) > 0 {
		dst.Authors = append([]string(nil), src.Authors...)
	}
	if dst.PublicationDate == nil && src.PublicationDate != nil {
		d := *src.PublicationDate
		dst.PublicationDate = &d
	}
	if dst.Year == nil && src.Year != nil {
		dst.Year = types.IntPtr(*src.Year)
	}
	if dst.Venue == "" && src.Venue != "" {
		dst.Venue = src.Venue
		dst.VenueKey = src.VenueKey
	}
	if dst.DOI == "" {
		dst.DOI = src.DOI
	}
	if dst.URL == "" {
		dst.URL = src.URL
	}
	if dst.PDFURL == "" {
		dst.PDFURL = src.PDFURL
	}
	if dst.CitationCount == nil && src.CitationCount != nil {
		dst.CitationCount = types.IntPtr(*src.CitationCount)
	}
	if dst.InfluentialCitationCount == nil && src.InfluentialCitationCount != nil {
		dst.InfluentialCitationCount = types.IntPtr(*src.InfluentialCitationCount)
	}
	if dst.OpenAccess == nil && src.OpenAccess != nil {
		dst.OpenAccess = types.BoolPtr(*src.OpenAccess)
	}
	if len(dst.PublicationTypes) == 0 && len(src.PublicationTypes) > 0 {
		dst.PublicationTypes = append([]string(nil), src.PublicationTypes...)
	}
	if len(dst.FieldsOfStudy) == 0 && len(src.FieldsOfStudy) > 0 {
		dst.FieldsOfStudy = append([]string(nil), src.FieldsOfStudy...)
	}

	contributors := src.Sources
	if len(contributors) == 0 && src.Source != "" {
		contributors = []string{src.Source}
	}
	for _, s := range contributors {
		if !contains(dst.Sources, s) {
			dst.Sources = append(dst.Sources, s)
		}
	}
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

// normalizeTitle returns a lowercased, punctuation-stripped version of the
// title with whitespace collapsed.
func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
