// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/paper-survey/internal/httputil"
	"github.com/pdiddy/paper-survey/pkg/types"
)

// maxBodyBytes bounds how much of a response body an adapter reads.
const maxBodyBytes = 16 << 20

// Transport carries the HTTP settings shared by the adapters. The limiter is
// per adapter, so each backend is throttled independently.
type Transport struct {
	Client     *http.Client
	Limiter    *rate.Limiter
	UserAgent  string
	MaxRetries int
}

// NewTransport builds a Transport from cfg, allowing rps requests per
// second with a burst of one. rps <= 0 disables rate limiting.
func NewTransport(cfg types.HTTPConfig, rps float64) Transport {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	lim := rate.NewLimiter(rate.Inf, 0)
	if rps > 0 {
		lim = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return Transport{
		Client:     &http.Client{Timeout: timeout},
		Limiter:    lim,
		UserAgent:  cfg.UserAgent,
		MaxRetries: cfg.MaxRetries,
	}
}

// get performs a rate-limited GET with retries and returns the body of a 200
// response. Non-200 responses and transport failures become *FetchError;
// any status still failing after DoWithRetry is terminal.
func (t Transport) get(ctx context.Context, source, reqURL string, header http.Header) ([]byte, error) {
	if t.Limiter != nil {
		if err := t.Limiter.Wait(ctx); err != nil {
			return nil, &FetchError{Source: source, Transient: true, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &FetchError{Source: source, Err: fmt.Errorf("creating request: %w", err)}
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if t.UserAgent != "" {
		req.Header.Set("User-Agent", t.UserAgent)
	}

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := httputil.DoWithRetry(ctx, client, req, t.MaxRetries)
	if err != nil {
		// A client timeout here has used up the retry budget. Only the
		// caller's own deadline leaves the request worth retrying.
		transient := ctx.Err() != nil && errors.Is(err, context.DeadlineExceeded)
		if httputil.IsTimeout(err) && !transient {
			err = fmt.Errorf("retries exhausted: %w", err)
		}
		return nil, &FetchError{Source: source, Transient: transient, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &FetchError{Source: source, Transient: true, Err: fmt.Errorf("reading response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		cause := fmt.Errorf("unexpected status: %s", snippet(body))
		if httputil.Retryable(resp.StatusCode) {
			cause = fmt.Errorf("retries exhausted: %w", cause)
		}
		return nil, &FetchError{Source: source, StatusCode: resp.StatusCode, Err: cause}
	}
	return body, nil
}

// getJSON is get followed by JSON decoding into v.
func (t Transport) getJSON(ctx context.Context, source, reqURL string, header http.Header, v any) error {
	body, err := t.get(ctx, source, reqURL, header)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &FetchError{Source: source, Err: fmt.Errorf("parsing response: %w", err)}
	}
	return nil
}

func snippet(b []byte) string {
	const n = 200
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}

func capPageSize(n, max int) int {
	if n <= 0 {
		return max
	}
	if n > max {
		return max
	}
	return n
}
