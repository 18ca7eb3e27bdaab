// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pdiddy/paper-survey/internal/aggregate"
	"github.com/pdiddy/paper-survey/internal/intent"
	"github.com/pdiddy/paper-survey/pkg/types"
)

// Orchestrator runs each submitted query in its own goroutine and records
// progress in the Store.
type Orchestrator struct {
	Store      *Store
	Parser     intent.Parser
	Aggregator *aggregate.Aggregator
	Policy     types.ParseErrorPolicy
	Options    intent.Options
	Logger     *slog.Logger

	base context.Context
	wg   sync.WaitGroup

	mu   sync.Mutex
	done map[string]chan struct{}
}

// NewOrchestrator returns an orchestrator whose runs use base as their
// parent context; cancelling base stops in-flight fetches.
func NewOrchestrator(base context.Context, store *Store, parser intent.Parser, agg *aggregate.Aggregator, cfg types.Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		Store:      store,
		Parser:     parser,
		Aggregator: agg,
		Policy:     cfg.Intent.OnParseError,
		Options:    intent.OptionsFrom(cfg.Search),
		Logger:     logger,
		base:       base,
		done:       make(map[string]chan struct{}),
	}
}

// Submit creates a task for text and starts it. It returns as soon as the
// task is registered.
func (o *Orchestrator) Submit(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	t := o.Store.Create(text)
	ch := make(chan struct{})

	o.mu.Lock()
	o.done[t.ID] = ch
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer func() {
			o.mu.Lock()
			delete(o.done, t.ID)
			o.mu.Unlock()
			close(ch)
		}()
		o.run(t.ID, text)
	}()
	return t.ID, nil
}

// Wait blocks until the task's run returns or ctx is done. Tasks that are
// not running return immediately.
func (o *Orchestrator) Wait(ctx context.Context, id string) error {
	o.mu.Lock()
	ch, ok := o.done[id]
	o.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close waits for every in-flight run.
func (o *Orchestrator) Close() {
	o.wg.Wait()
}

func (o *Orchestrator) run(id, text string) {
	log := o.Logger.With("task_id", id)
	ctx := o.base
	if ctx == nil {
		ctx = context.Background()
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("task panicked", "panic", r)
			o.fail(log, id, fmt.Sprintf("internal error: %v", r))
		}
	}()

	if err := o.Store.Advance(id, types.TaskParsing, ""); err != nil {
		log.Error("advancing task", "error", err)
		return
	}

	q, err := o.Parser.Parse(ctx, text)
	if err != nil {
		if !errors.Is(err, intent.ErrIntentParse) || o.Policy != types.PolicyFallback {
			o.fail(log, id, err.Error())
			return
		}
		log.Warn("query parse failed, falling back to raw text", "error", err)
		q = intent.Fallback(text, o.Options)
		o.addError(log, id, "", "query not understood, searching the raw text: "+err.Error())
	}

	if err := q.Validate(o.Aggregator.Config.MaxResultsLimit); err != nil {
		o.fail(log, id, err.Error())
		return
	}

	if err := o.Store.StartSearch(id, q.EnabledSources); err != nil {
		log.Error("starting search", "error", err)
		return
	}

	fr, err := o.Aggregator.Fetch(ctx, q, func(src string, st types.SourceFetchState) {
		if uerr := o.Store.UpdateSource(id, src, st); uerr != nil {
			log.Debug("progress update dropped", "source", src, "error", uerr)
		}
	})
	// Reconcile in case a terminal update was dropped.
	for _, src := range fr.Sources {
		if sr := fr.PerSource[src]; sr != nil {
			_ = o.Store.UpdateSource(id, src, sr.State)
		}
	}
	for _, src := range fr.Failed() {
		o.addError(log, id, src, fr.PerSource[src].Err.Error())
	}
	if err != nil {
		o.fail(log, id, err.Error())
		return
	}

	if err := o.Store.Advance(id, types.TaskRanking, ""); err != nil {
		o.fail(log, id, err.Error())
		return
	}

	res := o.Aggregator.Process(q, fr)
	if err := o.Store.Complete(id, &types.TaskResult{Query: q, Records: res.Records, Counts: res.Counts}); err != nil {
		log.Error("completing task", "error", err)
		return
	}
	log.Info("task completed", "results", len(res.Records), "failed_sources", len(fr.Failed()))
}

func (o *Orchestrator) fail(log *slog.Logger, id, msg string) {
	log.Warn("task failed", "reason", msg)
	if err := o.Store.Fail(id, msg); err != nil {
		log.Error("failing task", "error", err)
	}
}

func (o *Orchestrator) addError(log *slog.Logger, id, src, msg string) {
	if err := o.Store.AddError(id, src, msg); err != nil {
		log.Error("recording task error", "error", err)
	}
}
