package spotify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	defaultAttempts = 3
	defaultBackoff  = 500 * time.Millisecond
)

// retryPolicy decides whether a response is worth another attempt and how
// long to wait first. A 429 means the request was not executed, so any
// method may be replayed; 5xx and transport errors are only replayed for
// reads so a play command never runs twice.
type retryPolicy struct {
	attempts int
	backoff  time.Duration
}

func (c *Client) retryPolicy() retryPolicy {
	p := retryPolicy{attempts: c.maxRetries, backoff: c.baseBackoff}
	if p.attempts <= 0 {
		p.attempts = defaultAttempts
	}
	if p.backoff <= 0 {
		p.backoff = defaultBackoff
	}
	return p
}

// next reports whether attempt (zero based) should be followed by another
// one, and the delay before it. Retry-After wins over exponential backoff.
func (p retryPolicy) next(attempt int, method string, resp *http.Response, err error) (time.Duration, bool) {
	if attempt+1 >= p.attempts {
		return 0, false
	}
	readOnly := method == http.MethodGet || method == http.MethodHead

	switch {
	case err != nil:
		if !readOnly {
			return 0, false
		}
	case resp == nil:
		return 0, false
	case resp.StatusCode == http.StatusTooManyRequests:
	case resp.StatusCode >= http.StatusInternalServerError && readOnly:
	default:
		return 0, false
	}

	if wait := parseRetryAfter(resp); wait > 0 {
		return wait, true
	}
	return p.backoff << attempt, true
}

// send executes req under the client's retry policy. When attempts run out
// the last response is returned for the caller to map.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	policy := c.retryPolicy()
	if err := bufferBody(req); err != nil {
		return nil, err
	}

	ctx := req.Context()
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("spotify adapter: request canceled: %w", err)
		}
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("spotify adapter: rewind request body: %w", err)
			}
			req.Body = body
		}

		// #nosec G107 -- URL built from the configured API base URL
		resp, err := c.httpClient.Do(req)
		wait, again := policy.next(attempt, req.Method, resp, err)
		if !again {
			if err != nil {
				return nil, fmt.Errorf("spotify adapter: %s %s failed after %d attempts: %w", req.Method, req.URL.Path, attempt+1, err)
			}
			return resp, nil
		}

		fields := []zap.Field{
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", policy.attempts),
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Duration("wait", wait),
		}
		if err != nil {
			c.logger.Warn("retrying after transport error", append(fields, zap.Error(err))...)
		} else {
			c.logger.Warn("retrying after status", append(fields, zap.Int("status", resp.StatusCode))...)
			_ = resp.Body.Close()
		}

		if err := waitContext(ctx, wait); err != nil {
			return nil, err
		}
	}
}

// bufferBody makes a one-shot body replayable.
func bufferBody(req *http.Request) error {
	if req.Body == nil || req.GetBody != nil {
		return nil
	}
	raw, err := io.ReadAll(req.Body)
	if err != nil {
		return fmt.Errorf("spotify adapter: read request body: %w", err)
	}
	_ = req.Body.Close()
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(raw)), nil
	}
	return nil
}

// parseRetryAfter reads Retry-After as seconds or an HTTP date.
func parseRetryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(v); err == nil {
		if until := time.Until(when); until > 0 {
			return until
		}
	}
	return 0
}

func waitContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("spotify adapter: request canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
