// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package task runs searches asynchronously and keeps their progress in an
// in-memory store until a retention window after they finish.
package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/paper-survey/internal/source"
	"github.com/pdiddy/paper-survey/pkg/types"
)

var (
	// ErrTaskNotFound is returned for unknown or expired task ids.
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidTransition is returned when a status change would move a
	// task backwards, out of a terminal status, or out of searching while
	// sources are still running.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Fixed progress weights per stage.
const (
	percentSearchStart = 25
	percentSearchSpan  = 50
	percentRanking     = 75
	percentCompleted   = 100
)

// entry holds one task. Writers serialize on mu and publish a fresh
// snapshot; readers only load the pointer.
type entry struct {
	mu   sync.Mutex
	snap atomic.Pointer[types.SearchTask]
}

// Store is a concurrency-safe in-memory task registry. The map lock guards
// membership only; per-task updates lock the task's entry.
type Store struct {
	mu    sync.RWMutex
	tasks map[string]*entry

	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the store's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore returns an empty store that keeps finished tasks for ttl.
func NewStore(ttl time.Duration, opts ...Option) *Store {
	s := &Store{
		tasks:  make(map[string]*entry),
		ttl:    ttl,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// TTL returns the retention window for finished tasks.
func (s *Store) TTL() time.Duration { return s.ttl }

// Create registers a new task for the raw query text.
func (s *Store) Create(query string) types.SearchTask {
	now := s.now().UTC()
	t := &types.SearchTask{
		ID:        uuid.NewString(),
		Query:     query,
		Status:    types.TaskCreated,
		Stage:     "task created",
		Sources:   map[string]types.SourceFetchState{},
		Errors:    []types.TaskError{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	e := &entry{}
	e.snap.Store(t)

	s.mu.Lock()
	s.tasks[t.ID] = e
	s.mu.Unlock()

	s.logger.Debug("task created", "task_id", t.ID)
	return t.Clone()
}

// Get returns a snapshot of the task. Expired tasks are reported as not
// found even before the sweep removes them.
func (s *Store) Get(id string) (types.SearchTask, error) {
	e := s.lookup(id)
	if e == nil {
		return types.SearchTask{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	t := e.snap.Load()
	if s.expired(t) {
		return types.SearchTask{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return t.Clone(), nil
}

// Len returns the number of stored tasks, expired ones included until the
// next sweep.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// Advance moves the task to next. stage replaces the stage description;
// empty uses the default for the status. Use StartSearch, Complete and Fail
// for the transitions that carry data.
func (s *Store) Advance(id string, next types.TaskStatus, stage string) error {
	_, err := s.update(id, func(t *types.SearchTask) error {
		if err := checkTransition(t, next); err != nil {
			return err
		}
		t.Status = next
		t.Stage = stageOr(stage, next)
		switch next {
		case types.TaskSearching:
			raisePercent(t, percentSearchStart)
		case types.TaskRanking:
			raisePercent(t, percentRanking)
		}
		return nil
	})
	return err
}

// StartSearch moves the task to searching and registers every source as
// pending.
func (s *Store) StartSearch(id string, sources []string) error {
	_, err := s.update(id, func(t *types.SearchTask) error {
		if err := checkTransition(t, types.TaskSearching); err != nil {
			return err
		}
		t.Status = types.TaskSearching
		for _, src := range sources {
			if _, ok := t.Sources[src]; !ok {
				t.Sources[src] = types.SourceFetchState{Status: types.SourcePending}
			}
		}
		raisePercent(t, percentSearchStart)
		t.Stage = searchStage(t)
		return nil
	})
	return err
}

// UpdateSource replaces one source's fetch state. A source that already
// reached a terminal status keeps it. While searching, the percent follows
// the share of completed sources; failed sources do not advance it.
func (s *Store) UpdateSource(id, src string, state types.SourceFetchState) error {
	_, err := s.update(id, func(t *types.SearchTask) error {
		if t.Status.IsTerminal() {
			return fmt.Errorf("%w: task is %s", ErrInvalidTransition, t.Status)
		}
		if cur, ok := t.Sources[src]; ok && cur.Status.IsTerminal() && !state.Status.IsTerminal() {
			return nil
		}
		t.Sources[src] = state.Clone()
		if t.Status == types.TaskSearching {
			completed := 0
			for _, st := range t.Sources {
				if st.Status == types.SourceCompleted {
					completed++
				}
			}
			raisePercent(t, percentSearchStart+percentSearchSpan*completed/len(t.Sources))
			t.Stage = searchStage(t)
		}
		return nil
	})
	return err
}

// AddError records an error against the task. src is empty for task-level
// errors.
func (s *Store) AddError(id, src, msg string) error {
	_, err := s.update(id, func(t *types.SearchTask) error {
		t.Errors = append(t.Errors, types.TaskError{Source: src, Message: msg, Time: s.now().UTC()})
		return nil
	})
	return err
}

// Complete stores the result and starts the retention window.
func (s *Store) Complete(id string, result *types.TaskResult) error {
	_, err := s.update(id, func(t *types.SearchTask) error {
		if err := checkTransition(t, types.TaskCompleted); err != nil {
			return err
		}
		t.Status = types.TaskCompleted
		t.Stage = stageOr("", types.TaskCompleted)
		t.Result = result
		raisePercent(t, percentCompleted)
		s.finish(t)
		return nil
	})
	return err
}

// Fail marks the task failed with msg as a task-level error. The percent
// keeps its last value.
func (s *Store) Fail(id, msg string) error {
	_, err := s.update(id, func(t *types.SearchTask) error {
		if err := checkTransition(t, types.TaskFailed); err != nil {
			return err
		}
		t.Status = types.TaskFailed
		t.Stage = stageOr("", types.TaskFailed)
		t.Errors = append(t.Errors, types.TaskError{Message: msg, Time: s.now().UTC()})
		s.finish(t)
		return nil
	})
	return err
}

// Sweep removes expired tasks and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, e := range s.tasks {
		if s.expired(e.snap.Load()) {
			delete(s.tasks, id)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Debug("expired tasks swept", "removed", removed, "remaining", len(s.tasks))
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *Store) lookup(id string) *entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tasks[id]
}

// update applies fn to a copy of the current snapshot and publishes the
// copy if fn succeeds.
func (s *Store) update(id string, fn func(t *types.SearchTask) error) (types.SearchTask, error) {
	e := s.lookup(id)
	if e == nil {
		return types.SearchTask{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	cur := e.snap.Load()
	if s.expired(cur) {
		return types.SearchTask{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	next := cur.Clone()
	if err := fn(&next); err != nil {
		return types.SearchTask{}, err
	}
	next.UpdatedAt = s.now().UTC()
	e.snap.Store(&next)
	return next.Clone(), nil
}

func (s *Store) finish(t *types.SearchTask) {
	done := s.now().UTC()
	exp := done.Add(s.ttl)
	t.CompletedAt = &done
	t.ExpiresAt = &exp
}

func (s *Store) expired(t *types.SearchTask) bool {
	return t.ExpiresAt != nil && !s.now().Before(*t.ExpiresAt)
}

func checkTransition(t *types.SearchTask, next types.TaskStatus) error {
	if !t.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, next)
	}
	if t.Status == types.TaskSearching && next != types.TaskFailed {
		for src, st := range t.Sources {
			if !st.Status.IsTerminal() {
				return fmt.Errorf("%w: source %s is still %s", ErrInvalidTransition, src, st.Status)
			}
		}
	}
	return nil
}

func raisePercent(t *types.SearchTask, p int) {
	if p > t.Percent {
		t.Percent = p
	}
}

func stageOr(stage string, status types.TaskStatus) string {
	if stage != "" {
		return stage
	}
	switch status {
	case types.TaskParsing:
		return "parsing query"
	case types.TaskSearching:
		return "searching sources"
	case types.TaskRanking:
		return "deduplicating, filtering and ranking"
	case types.TaskCompleted:
		return "completed"
	case types.TaskFailed:
		return "failed"
	}
	return string(status)
}

// searchStage describes the sources still running, e.g.
// "searching Semantic Scholar, arXiv (1/3 done)".
func searchStage(t *types.SearchTask) string {
	var running []string
	for _, src := range slices.Sorted(maps.Keys(t.Sources)) {
		if !t.Sources[src].Status.IsTerminal() {
			running = append(running, source.DisplayName(src))
		}
	}
	done := len(t.Sources) - len(running)
	if len(running) == 0 {
		return fmt.Sprintf("all %d sources finished", len(t.Sources))
	}
	return fmt.Sprintf("searching %s (%d/%d done)", strings.Join(running, ", "), done, len(t.Sources))
}
