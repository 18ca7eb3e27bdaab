// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rank scores and orders canonical records.
package rank

import (
	"math"
	"sort"
	"time"

	"github.com/pdiddy/paper-survey/internal/canon"
	"github.com/pdiddy/paper-survey/pkg/types"
)

// Composite score weights.
const (
	weightCitations   = 0.45
	weightRecency     = 0.25
	weightVenue       = 0.20
	weightInfluential = 0.10
	weightOpenAccess  = 0.10

	topVenueScore   = 1.0
	otherVenueScore = 0.5

	// recencyFullYears is how long a record keeps the full recency score;
	// after that the score halves every recencyHalfLifeYears.
	recencyFullYears     = 2.0
	recencyHalfLifeYears = 2.0
)

const daysPerYear = 365.25

// Ranker orders records according to the query's sort mode.
type Ranker struct {
	// Now returns the reference time for recency; nil means time.Now.
	Now    func() time.Time
	Venues *canon.VenueTable
}

// New returns a Ranker using the wall clock.
func New(venues *canon.VenueTable) *Ranker {
	if venues == nil {
		venues = canon.NewVenueTable(nil)
	}
	return &Ranker{Now: time.Now, Venues: venues}
}

// Rank scores every record, sorts the full set once and returns at most
// q.MaxResults records. The input slice is not reordered.
func (rk *Ranker) Rank(records []types.CanonicalRecord, q types.StructuredQuery) []types.CanonicalRecord {
	now := time.Now()
	if rk.Now != nil {
		now = rk.Now()
	}

	out := make([]types.CanonicalRecord, len(records))
	copy(out, records)
	for i := range out {
		out[i].Score = rk.Score(out[i], now)
	}

	switch q.SortBy {
	case types.SortCitationCount:
		sort.SliceStable(out, func(i, j int) bool {
			ci, cj := countOr(out[i].CitationCount, -1), countOr(out[j].CitationCount, -1)
			if ci != cj {
				return ci > cj
			}
			return out[i].Score > out[j].Score
		})
	case types.SortPublicationDate:
		sort.SliceStable(out, func(i, j int) bool {
			di, oki := out[i].EffectiveDate()
			dj, okj := out[j].EffectiveDate()
			if oki != okj {
				return oki
			}
			if !di.Equal(dj) {
				return di.After(dj)
			}
			if out[i].Score != out[j].Score {
				return out[i].Score > out[j].Score
			}
			return countOr(out[i].InfluentialCitationCount, 0) > countOr(out[j].InfluentialCitationCount, 0)
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Score > out[j].Score
		})
	}

	if q.MaxResults > 0 && len(out) > q.MaxResults {
		out = out[:q.MaxResults]
	}
	return out
}

// Score returns the composite importance score of rec at time now.
func (rk *Ranker) Score(rec types.CanonicalRecord, now time.Time) float64 {
	venue := otherVenueScore
	if rk.Venues != nil && rk.Venues.IsTop(rec.VenueKey) {
		venue = topVenueScore
	}
	oa := 0.0
	if rec.IsOpenAccess() {
		oa = 1.0
	}
	return weightCitations*math.Log1p(float64(countOr(rec.CitationCount, 0))) +
		weightRecency*Recency(rec, now) +
		weightVenue*venue +
		weightInfluential*math.Log1p(float64(countOr(rec.InfluentialCitationCount, 0))) +
		weightOpenAccess*oa
}

// Recency is 1.0 for records from the last two years and halves for every
// further two years of age. Records without a date score 0.
func Recency(rec types.CanonicalRecord, now time.Time) float64 {
	d, ok := rec.EffectiveDate()
	if !ok {
		return 0
	}
	age := now.Sub(d).Hours() / 24 / daysPerYear
	if age <= recencyFullYears {
		return 1.0
	}
	return math.Pow(0.5, (age-recencyFullYears)/recencyHalfLifeYears)
}

func countOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
