// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-survey/pkg/types"
)

func TestTransport_StatusClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantCalls int32
		wantMsg   string
	}{
		{"not found is not retried", http.StatusNotFound, 1, "unexpected status"},
		{"server error after retries", http.StatusInternalServerError, 2, "retries exhausted"},
		{"rate limit after retries", http.StatusTooManyRequests, 2, "retries exhausted"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
			}))
			t.Cleanup(ts.Close)

			_, err := testTransport().get(context.Background(), "test", ts.URL, nil)
			var fe *FetchError
			require.ErrorAs(t, err, &fe)
			assert.False(t, fe.Transient)
			assert.Equal(t, tt.status, fe.StatusCode)
			assert.Contains(t, fe.Error(), tt.wantMsg)
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
		})
	}
}

func slowServer(t *testing.T, delay time.Duration) *httptest.Server {
	t.Helper()
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
		case <-release:
		}
		fmt.Fprint(w, "{}")
	}))
	t.Cleanup(func() {
		close(release)
		ts.Close()
	})
	return ts
}

func TestTransport_ClientTimeoutAfterRetriesIsTerminal(t *testing.T) {
	ts := slowServer(t, time.Second)
	tr := NewTransport(types.HTTPConfig{Timeout: 20 * time.Millisecond, MaxRetries: 1}, 0)

	_, err := tr.get(context.Background(), "test", ts.URL, nil)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.False(t, fe.Transient)
	assert.Contains(t, fe.Error(), "retries exhausted")
}

func TestTransport_CallerDeadlineIsTransient(t *testing.T) {
	ts := slowServer(t, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := testTransport().get(ctx, "test", ts.URL, nil)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.True(t, fe.Transient)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
