// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package filter applies the query's constraints to canonical records as an
// ordered chain of named predicates.
//
// A predicate whose constraint is absent from the query keeps every record.
// A record whose metadata for a constraint is unknown also passes, except
// for open access, which requires positive evidence.
package filter

import (
	"log/slog"
	"strings"
	"time"

	"github.com/pdiddy/paper-survey/internal/canon"
	"github.com/pdiddy/paper-survey/pkg/types"
)

// Predicate is one named filter step.
type Predicate struct {
	Name string
	Keep func(rec types.CanonicalRecord, q types.StructuredQuery) bool
}

// Pipeline is an ordered predicate chain. Rejections are logged at debug
// level when Logger is set.
type Pipeline struct {
	Predicates []Predicate
	Logger     *slog.Logger
}

// Result holds the survivors and per-predicate rejection counts.
type Result struct {
	Records  []types.CanonicalRecord
	Rejected map[string]int
}

// New returns the default chain: author, venue, date, influential
// citations, publication types, open access.
func New(venues *canon.VenueTable) *Pipeline {
	if venues == nil {
		venues = canon.NewVenueTable(nil)
	}
	return &Pipeline{Predicates: []Predicate{
		{Name: "author", Keep: authorMatch},
		{Name: "venue", Keep: func(r types.CanonicalRecord, q types.StructuredQuery) bool {
			return venueMatch(venues, r, q)
		}},
		{Name: "date", Keep: dateMatch},
		{Name: "min_influential_citations", Keep: influentialMatch},
		{Name: "publication_types", Keep: pubTypesMatch},
		{Name: "open_access", Keep: openAccessMatch},
	}}
}

// Apply returns the records that pass every predicate, in input order.
func (p *Pipeline) Apply(records []types.CanonicalRecord, q types.StructuredQuery) Result {
	res := Result{Rejected: map[string]int{}}
	for _, r := range records {
		if name := p.Reason(r, q); name != "" {
			res.Rejected[name]++
			if p.Logger != nil {
				p.Logger.Debug("record rejected", "title", r.Title, "source", r.Source, "reason", name)
			}
			continue
		}
		res.Records = append(res.Records, r)
	}
	return res
}

// Reason returns the name of the first predicate rec fails, or "" when it
// passes the whole chain.
func (p *Pipeline) Reason(rec types.CanonicalRecord, q types.StructuredQuery) string {
	for _, pred := range p.Predicates {
		if !pred.Keep(rec, q) {
			return pred.Name
		}
	}
	return ""
}

// authorMatch is a case-insensitive substring match against any author.
func authorMatch(r types.CanonicalRecord, q types.StructuredQuery) bool {
	target := strings.ToLower(strings.TrimSpace(q.Author))
	if target == "" || len(r.Authors) == 0 {
		return true
	}
	for _, a := range r.Authors {
		if strings.Contains(strings.ToLower(a), target) {
			return true
		}
	}
	return false
}

func venueMatch(vt *canon.VenueTable, r types.CanonicalRecord, q types.StructuredQuery) bool {
	if len(q.Venues) == 0 || r.Venue == "" {
		return true
	}
	return vt.Match(r.Venue, q.Venues)
}

// dateMatch compares the record's effective date (year-only records use the
// nominal mid-year day) with the inclusive query range. Unparseable bounds
// are treated as absent; queries are validated before they get here.
func dateMatch(r types.CanonicalRecord, q types.StructuredQuery) bool {
	start, hasStart, _ := types.ParseDateBound(q.DateStart, false)
	end, hasEnd, _ := types.ParseDateBound(q.DateEnd, true)
	if !hasStart && !hasEnd {
		return true
	}
	d, ok := r.EffectiveDate()
	if !ok {
		return true
	}
	d = truncateDay(d)
	if hasStart && d.Before(start) {
		return false
	}
	if hasEnd && d.After(end) {
		return false
	}
	return true
}

func influentialMatch(r types.CanonicalRecord, q types.StructuredQuery) bool {
	if q.MinInfluentialCitations == nil || r.InfluentialCitationCount == nil {
		return true
	}
	return *r.InfluentialCitationCount >= *q.MinInfluentialCitations
}

// pubTypesMatch passes when the record has any requested type
// (case-insensitive).
func pubTypesMatch(r types.CanonicalRecord, q types.StructuredQuery) bool {
	if len(q.PublicationTypes) == 0 || len(r.PublicationTypes) == 0 {
		return true
	}
	want := make(map[string]bool, len(q.PublicationTypes))
	for _, t := range q.PublicationTypes {
		want[strings.ToLower(strings.TrimSpace(t))] = true
	}
	for _, t := range r.PublicationTypes {
		if want[strings.ToLower(t)] {
			return true
		}
	}
	return false
}

func openAccessMatch(r types.CanonicalRecord, q types.StructuredQuery) bool {
	if !q.OpenAccessRequired {
		return true
	}
	return r.IsOpenAccess()
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
