// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTaskStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from, to TaskStatus
		want     bool
	}{
		{TaskCreated, TaskParsing, true},
		{TaskParsing, TaskSearching, true},
		{TaskSearching, TaskRanking, true},
		{TaskRanking, TaskCompleted, true},
		{TaskCreated, TaskSearching, true},
		{TaskSearching, TaskParsing, false},
		{TaskRanking, TaskRanking, false},
		{TaskCreated, TaskFailed, true},
		{TaskSearching, TaskFailed, true},
		{TaskCompleted, TaskFailed, false},
		{TaskFailed, TaskCompleted, false},
		{TaskFailed, TaskFailed, false},
		{TaskCreated, TaskStatus("bogus"), false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.True(t, TaskCompleted.IsTerminal())
	assert.True(t, TaskFailed.IsTerminal())
	assert.False(t, TaskRanking.IsTerminal())

	assert.True(t, SourceCompleted.IsTerminal())
	assert.True(t, SourceFailed.IsTerminal())
	assert.False(t, SourceInProgress.IsTerminal())
	assert.False(t, SourcePending.IsTerminal())
}

func TestSearchTask_Clone(t *testing.T) {
	done := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	exp := done.Add(30 * time.Minute)
	orig := SearchTask{
		ID:     "t1",
		Status: TaskCompleted,
		Sources: map[string]SourceFetchState{
			"s2": {Status: SourceCompleted, Fetched: 10, TotalEstimated: IntPtr(100), Errors: []string{"retry"}},
		},
		Errors:      []TaskError{{Source: "arxiv", Message: "HTTP 503"}},
		CompletedAt: &done,
		ExpiresAt:   &exp,
		Result:      &TaskResult{},
	}
	c := orig.Clone()
	assert.Equal(t, orig, c)

	st := c.Sources["s2"]
	st.Fetched = 0
	*st.TotalEstimated = 1
	st.Errors[0] = "changed"
	c.Sources["s2"] = st
	c.Sources["openalex"] = SourceFetchState{}
	c.Errors[0].Message = "changed"
	*c.ExpiresAt = done

	assert.Equal(t, 10, orig.Sources["s2"].Fetched)
	assert.Equal(t, 100, *orig.Sources["s2"].TotalEstimated)
	assert.Equal(t, "retry", orig.Sources["s2"].Errors[0])
	assert.Len(t, orig.Sources, 1)
	assert.Equal(t, "HTTP 503", orig.Errors[0].Message)
	assert.Equal(t, exp, *orig.ExpiresAt)
	assert.Same(t, orig.Result, c.Result)
}

func TestSearchTask_CloneKeepsEmptyErrors(t *testing.T) {
	c := SearchTask{Errors: []TaskError{}}.Clone()
	assert.NotNil(t, c.Errors)
	assert.Empty(t, c.Errors)
}
