// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the source adapters.
package httputil

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// RetryBaseDelay is the first backoff delay; it doubles on each attempt up
// to RetryMaxDelay. Tests override both to avoid real sleeps.
var (
	RetryBaseDelay = 500 * time.Millisecond
	RetryMaxDelay  = 8 * time.Second
)

const defaultMaxRetries = 5

// Retryable reports whether an HTTP status is worth retrying: 429 and the
// transient 5xx gateway family.
func Retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// IsTimeout reports whether err is a network timeout.
func IsTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// Backoff returns the delay before retry number attempt (zero-based).
func Backoff(attempt int) time.Duration {
	d := RetryBaseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= RetryMaxDelay {
			return RetryMaxDelay
		}
	}
	if d > RetryMaxDelay {
		return RetryMaxDelay
	}
	return d
}

// DoWithRetry executes an HTTP request and retries on retryable statuses and
// network timeouts with capped exponential backoff.
//
// When maxRetries is 0 the default (5) is used. Retried response bodies are
// drained and closed before sleeping. If the context is cancelled during a
// backoff wait the function returns ctx.Err(). After exhausting retries the
// last response (or timeout error) is returned so the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			if ctx.Err() != nil || !IsTimeout(err) || attempt >= maxRetries {
				return nil, err
			}
		} else {
			if !Retryable(resp.StatusCode) || attempt >= maxRetries {
				return resp, nil
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		backoff := Backoff(attempt)
		slog.Debug("retrying request",
			"url", req.URL.Redacted(),
			"attempt", attempt+1,
			"max", maxRetries,
			"backoff", backoff,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}
