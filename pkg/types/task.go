// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// TaskStatus is the lifecycle state of an async search task.
type TaskStatus string

const (
	TaskCreated   TaskStatus = "created"
	TaskParsing   TaskStatus = "parsing"
	TaskSearching TaskStatus = "searching"
	TaskRanking   TaskStatus = "ranking"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// taskOrder gives the position of each non-failed status in the lifecycle.
var taskOrder = map[TaskStatus]int{
	TaskCreated:   0,
	TaskParsing:   1,
	TaskSearching: 2,
	TaskRanking:   3,
	TaskCompleted: 4,
}

// IsTerminal reports whether s is completed or failed.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// CanTransition reports whether a task may move from s to next. Moves go
// forward along created, parsing, searching, ranking, completed; failed is
// reachable from any non-terminal status.
func (s TaskStatus) CanTransition(next TaskStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == TaskFailed {
		return true
	}
	from, ok := taskOrder[s]
	if !ok {
		return false
	}
	to, ok := taskOrder[next]
	return ok && to > from
}

// SourceStatus is the fetch state of one source within a task.
type SourceStatus string

const (
	SourcePending    SourceStatus = "pending"
	SourceInProgress SourceStatus = "in_progress"
	SourceCompleted  SourceStatus = "completed"
	SourceFailed     SourceStatus = "failed"
)

// IsTerminal reports whether s is completed or failed.
func (s SourceStatus) IsTerminal() bool {
	return s == SourceCompleted || s == SourceFailed
}

// SourceFetchState tracks one source's paginated fetch loop.
type SourceFetchState struct {
	Status         SourceStatus `json:"status"`
	Fetched        int          `json:"fetched"`
	TotalEstimated *int         `json:"total_estimated,omitempty"`
	Errors         []string     `json:"errors,omitempty"`
}

// Clone returns a deep copy of s.
func (s SourceFetchState) Clone() SourceFetchState {
	c := s
	c.TotalEstimated = cloneInt(s.TotalEstimated)
	c.Errors = cloneStrings(s.Errors)
	return c
}

// TaskError is one error recorded against a task. Source is empty for
// task-level errors.
type TaskError struct {
	Source  string    `json:"source,omitempty"`
	Message string    `json:"message"`
	Time    time.Time `json:"timestamp"`
}

// Counts summarizes record volumes at each pipeline stage.
type Counts struct {
	QueryCombinations int `json:"query_combinations" yaml:"query_combinations"`

	RawFetched map[string]int `json:"raw_fetched" yaml:"raw_fetched"`
	RawUnique  map[string]int `json:"raw_unique" yaml:"raw_unique"`
	Pages      map[string]int `json:"pages" yaml:"pages"`

	TotalRawFetched int `json:"total_raw_fetched" yaml:"total_raw_fetched"`
	TotalRawUnique  int `json:"total_raw_unique" yaml:"total_raw_unique"`

	// Skipped counts records dropped as malformed during canonicalization.
	Skipped int `json:"skipped" yaml:"skipped"`

	UniqueAfterDedup int `json:"final_unique_count" yaml:"final_unique_count"`
	AfterFilter      int `json:"total_after_filter" yaml:"total_after_filter"`
	AfterRankCut     int `json:"after_rank_cut" yaml:"after_rank_cut"`

	PerSourceAfterFilter map[string]int `json:"per_source_after_filter" yaml:"per_source_after_filter"`
	Rejected             map[string]int `json:"rejected,omitempty" yaml:"rejected,omitempty"`
}

// TaskResult is stored on a task once it completes.
type TaskResult struct {
	Query   StructuredQuery   `json:"normalized_intent"`
	Records []CanonicalRecord `json:"results"`
	Counts  Counts            `json:"counts"`
}

// SearchTask is a snapshot of one async aggregation run.
type SearchTask struct {
	ID     string     `json:"task_id"`
	Query  string     `json:"query"`
	Status TaskStatus `json:"status"`

	// Stage is a human-readable description of the current step.
	Stage string `json:"stage_description"`

	Sources map[string]SourceFetchState `json:"sources"`
	Percent int                         `json:"overall_percent"`

	Result *TaskResult `json:"results,omitempty"`
	Errors []TaskError `json:"errors"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// Clone returns a deep copy of t. The result pointer is shared: a
// TaskResult is written once at completion and never modified afterwards.
func (t SearchTask) Clone() SearchTask {
	c := t
	if t.Sources != nil {
		c.Sources = make(map[string]SourceFetchState, len(t.Sources))
		for k, v := range t.Sources {
			c.Sources[k] = v.Clone()
		}
	}
	if t.Errors != nil {
		c.Errors = append(make([]TaskError, 0, len(t.Errors)), t.Errors...)
	}
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		c.CompletedAt = &v
	}
	if t.ExpiresAt != nil {
		v := *t.ExpiresAt
		c.ExpiresAt = &v
	}
	return c
}
