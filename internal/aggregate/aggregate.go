// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package aggregate fans a structured query out to the enabled sources and
// runs the fetched records through canonicalization, deduplication,
// filtering and ranking.
//
// Fetch and Process are separate so the task orchestrator can report the
// searching and ranking stages individually; Aggregate runs both.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/pdiddy/paper-survey/internal/canon"
	"github.com/pdiddy/paper-survey/internal/dedup"
	"github.com/pdiddy/paper-survey/internal/filter"
	"github.com/pdiddy/paper-survey/internal/rank"
	"github.com/pdiddy/paper-survey/internal/source"
	"github.com/pdiddy/paper-survey/pkg/types"
)

// Page size bounds used when SearchConfig.PageSize is zero.
const (
	minPageSize = 50
	maxPageSize = 100
)

// Aggregator runs one query against a set of sources.
type Aggregator struct {
	Registry *source.Registry
	Canon    *canon.Canonicalizer
	Filter   *filter.Pipeline
	Ranker   *rank.Ranker
	Config   types.SearchConfig
	Logger   *slog.Logger
}

// New wires an Aggregator from cfg. The canonicalizer, filter and ranker
// share one venue table.
func New(reg *source.Registry, cfg types.Config, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	c := canon.New(cfg.Venues.Synonyms)
	f := filter.New(c.Venues())
	f.Logger = logger
	return &Aggregator{
		Registry: reg,
		Canon:    c,
		Filter:   f,
		Ranker:   rank.New(c.Venues()),
		Config:   cfg.Search,
		Logger:   logger,
	}
}

// ProgressFunc receives a copy of a source's fetch state each time it
// changes. It is called from the source's goroutine and must be safe for
// concurrent use.
type ProgressFunc func(source string, state types.SourceFetchState)

// SourceResult is what one source's fetch loop produced. Records is empty
// for a failed source.
type SourceResult struct {
	Records []types.RawRecord
	Pages   int
	State   types.SourceFetchState
	Err     error
}

// FetchResult holds every source's outcome. Sources keeps the query's
// source order, which is also the cross-source merge priority.
type FetchResult struct {
	Sources   []string
	PerSource map[string]*SourceResult
	Fragments int
}

// Failed returns the failed sources in priority order.
func (fr FetchResult) Failed() []string {
	var out []string
	for _, id := range fr.Sources {
		if sr := fr.PerSource[id]; sr != nil && sr.State.Status == types.SourceFailed {
			out = append(out, id)
		}
	}
	return out
}

// AllSourcesFailedError is returned by Fetch when no source succeeded.
type AllSourcesFailedError struct {
	Order  []string
	Errors map[string]error
}

func (e *AllSourcesFailedError) Error() string {
	parts := make([]string, 0, len(e.Order))
	for _, id := range e.Order {
		parts = append(parts, fmt.Sprintf("%s: %v", id, e.Errors[id]))
	}
	return "all sources failed: " + strings.Join(parts, "; ")
}

// Unwrap exposes the per-source errors to errors.Is and errors.As.
func (e *AllSourcesFailedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Order))
	for _, id := range e.Order {
		errs = append(errs, e.Errors[id])
	}
	return errs
}

// Result is the output of Process. SourceErrors holds the error of each
// source that failed during Fetch.
type Result struct {
	Query        types.StructuredQuery
	Records      []types.CanonicalRecord
	Counts       types.Counts
	SourceErrors map[string]string
}

// Aggregate validates q, fetches from every enabled source and processes
// the results.
func (a *Aggregator) Aggregate(ctx context.Context, q types.StructuredQuery) (Result, error) {
	if err := q.Validate(a.Config.MaxResultsLimit); err != nil {
		return Result{}, err
	}
	fr, err := a.Fetch(ctx, q, nil)
	if err != nil {
		return Result{}, err
	}
	return a.Process(q, fr), nil
}

type sourceOutcome struct {
	id  string
	res *SourceResult
}

// Fetch runs one fetch loop per enabled source concurrently and waits for
// all of them. A failing source does not stop the others; the error is
// returned only when every source failed.
func (a *Aggregator) Fetch(ctx context.Context, q types.StructuredQuery, progress ProgressFunc) (FetchResult, error) {
	fragments := source.ExpandKeywordGroups(q.KeywordGroups, a.Config.MaxQueryCombinations)
	fr := FetchResult{
		Sources:   uniqueSources(q.EnabledSources),
		PerSource: make(map[string]*SourceResult),
		Fragments: len(fragments),
	}
	if len(fr.Sources) == 0 {
		return fr, fmt.Errorf("%w: no enabled sources", types.ErrInvalidQuery)
	}

	a.logger().Info("fetching", "sources", fr.Sources, "fragments", len(fragments), "max_results", q.MaxResults)

	ch := make(chan sourceOutcome, len(fr.Sources))
	var wg sync.WaitGroup
	for _, id := range fr.Sources {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			ch <- sourceOutcome{id: id, res: a.fetchSource(ctx, id, q, fragments, progress)}
		}(id)
	}
	go func() {
		wg.Wait()
		close(ch)
	}()

	failed := map[string]error{}
	for o := range ch {
		fr.PerSource[o.id] = o.res
		if o.res.Err != nil {
			failed[o.id] = o.res.Err
		}
	}

	if len(failed) == len(fr.Sources) {
		return fr, &AllSourcesFailedError{Order: fr.Sources, Errors: failed}
	}
	return fr, nil
}

// fetchSource pages through every query fragment for one source. Pages are
// fetched strictly in order.
func (a *Aggregator) fetchSource(ctx context.Context, id string, q types.StructuredQuery, fragments []string, progress ProgressFunc) (res *SourceResult) {
	res = &SourceResult{State: types.SourceFetchState{Status: types.SourcePending}}
	log := a.logger().With("source", id)
	emit := func() {
		if progress != nil {
			progress(id, res.State.Clone())
		}
	}
	fail := func(err error) *SourceResult {
		log.Warn("source failed", "error", err, "pages", res.Pages)
		res.Records = nil
		res.Err = err
		res.State.Status = types.SourceFailed
		res.State.Errors = append(res.State.Errors, err.Error())
		emit()
		return res
	}
	defer func() {
		if r := recover(); r != nil {
			res = fail(fmt.Errorf("%s: adapter panic: %v", id, r))
		}
	}()

	ad, err := a.Registry.Get(id)
	if err != nil {
		return fail(err)
	}

	res.State.Status = types.SourceInProgress
	emit()

	target := q.MaxResults * a.overfetch()
	pageSize := a.pageSize(q)
	pageCap := a.Config.PageCap
	seen := map[string]bool{}

pages:
	for _, terms := range fragments {
		cursor := ""
		for n := 0; pageCap <= 0 || n < pageCap; n++ {
			page, err := a.fetchPage(ctx, ad, source.FetchRequest{
				Query:    q,
				Terms:    terms,
				Cursor:   cursor,
				PageSize: pageSize,
			})
			if err != nil {
				return fail(err)
			}
			res.Pages++
			if n == 0 && page.TotalEstimated != nil {
				total := *page.TotalEstimated
				if res.State.TotalEstimated != nil {
					total += *res.State.TotalEstimated
				}
				res.State.TotalEstimated = &total
			}
			if len(page.Items) == 0 {
				break
			}

			res.Records = append(res.Records, page.Items...)
			for _, raw := range page.Items {
				if rec, err := a.Canon.Canonicalize(raw, id); err == nil {
					seen[dedup.Key(rec)] = true
				}
			}
			res.State.Fetched = len(res.Records)
			emit()

			log.Debug("page fetched", "terms", terms, "page", n+1, "items", len(page.Items), "unique", len(seen))

			if target > 0 && len(seen) >= target {
				break pages
			}
			if page.NextCursor == "" {
				break
			}
			cursor = page.NextCursor
		}
	}

	res.State.Status = types.SourceCompleted
	emit()
	log.Info("source completed", "fetched", res.State.Fetched, "unique", len(seen), "pages", res.Pages)
	return res
}

// fetchPage bounds one adapter call with the configured timeout.
func (a *Aggregator) fetchPage(ctx context.Context, ad source.Adapter, req source.FetchRequest) (source.Page, error) {
	if a.Config.FetchTimeout <= 0 {
		return ad.Fetch(ctx, req)
	}
	callCtx, cancel := context.WithTimeout(ctx, a.Config.FetchTimeout)
	defer cancel()
	page, err := ad.Fetch(callCtx, req)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return page, &source.FetchError{
			Source:    ad.Name(),
			Transient: true,
			Err:       fmt.Errorf("timed out after %s: %w", a.Config.FetchTimeout, err),
		}
	}
	return page, err
}

// Process canonicalizes, deduplicates within and across sources, filters
// and ranks. Cross-source merging walks sources in priority order, so the
// displayed metadata comes from the highest-priority source that had it.
func (a *Aggregator) Process(q types.StructuredQuery, fr FetchResult) Result {
	log := a.logger()
	counts := types.Counts{
		QueryCombinations:    fr.Fragments,
		RawFetched:           map[string]int{},
		RawUnique:            map[string]int{},
		Pages:                map[string]int{},
		PerSourceAfterFilter: map[string]int{},
	}

	var merged []types.CanonicalRecord
	for _, id := range fr.Sources {
		sr := fr.PerSource[id]
		if sr == nil {
			continue
		}
		counts.Pages[id] = sr.Pages
		if sr.State.Status == types.SourceFailed {
			continue
		}

		recs := make([]types.CanonicalRecord, 0, len(sr.Records))
		for _, raw := range sr.Records {
			rec, err := a.Canon.Canonicalize(raw, id)
			if err != nil {
				counts.Skipped++
				log.Debug("skipping record", "source", id, "error", err)
				continue
			}
			recs = append(recs, rec)
		}
		unique, _ := dedup.Dedup(recs)

		counts.RawFetched[id] = len(sr.Records)
		counts.RawUnique[id] = len(unique)
		counts.TotalRawFetched += len(sr.Records)
		counts.TotalRawUnique += len(unique)
		merged = append(merged, unique...)
	}
	if counts.Skipped > 0 {
		log.Warn("skipped malformed records", "count", counts.Skipped)
	}

	all, removed := dedup.Dedup(merged)
	counts.UniqueAfterDedup = len(all)

	filtered := a.Filter.Apply(all, q)
	counts.AfterFilter = len(filtered.Records)
	if len(filtered.Rejected) > 0 {
		counts.Rejected = filtered.Rejected
	}
	for _, rec := range filtered.Records {
		for _, s := range rec.Sources {
			counts.PerSourceAfterFilter[s]++
		}
	}

	ranked := a.Ranker.Rank(filtered.Records, q)
	counts.AfterRankCut = len(ranked)

	log.Info("pipeline finished",
		"raw", counts.TotalRawFetched,
		"unique", counts.UniqueAfterDedup,
		"cross_source_duplicates", removed,
		"after_filter", counts.AfterFilter,
		"returned", counts.AfterRankCut)

	res := Result{Query: q, Records: ranked, Counts: counts}
	for _, id := range fr.Failed() {
		if res.SourceErrors == nil {
			res.SourceErrors = map[string]string{}
		}
		res.SourceErrors[id] = fr.PerSource[id].Err.Error()
	}
	return res
}

func (a *Aggregator) pageSize(q types.StructuredQuery) int {
	if a.Config.PageSize > 0 {
		return a.Config.PageSize
	}
	return min(max(q.MaxResults*3, minPageSize), maxPageSize)
}

func (a *Aggregator) overfetch() int {
	if a.Config.OverfetchFactor > 0 {
		return a.Config.OverfetchFactor
	}
	return 1
}

func (a *Aggregator) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}

func uniqueSources(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
