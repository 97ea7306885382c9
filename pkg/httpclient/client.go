package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	apperrors "github.com/chainsync-ai/alertbridge/errors"
)

// Policy controls retry behavior for outbound calls.
type Policy struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	Multiplier     float64
	AttemptTimeout time.Duration
}

// DefaultPolicy returns the standard outbound-call policy: 3 attempts,
// 1s/2s waits, 30s per-attempt timeout.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		BaseDelay:      1 * time.Second,
		Multiplier:     2,
		AttemptTimeout: 30 * time.Second,
	}
}

// Request describes one outbound HTTP call.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Response carries the final status and body back to the caller.
type Response struct {
	StatusCode int
	Body       []byte
}

// Client wraps net/http with exponential-backoff retries. A 5xx status,
// a network error, or a per-attempt timeout is retried; any 4xx is
// returned immediately with no retry. After MaxAttempts the call fails
// with UpstreamUnavailable carrying the last observed status or error.
type Client struct {
	service string
	hc      *http.Client
	policy  Policy
	logger  *zap.Logger
}

// New creates a retrying client for the named upstream service.
func New(service string, policy Policy, logger *zap.Logger) *Client {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 3
	}
	if policy.Multiplier <= 0 {
		policy.Multiplier = 2
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = time.Second
	}
	if policy.AttemptTimeout <= 0 {
		policy.AttemptTimeout = 30 * time.Second
	}
	return &Client{
		service: service,
		hc:      &http.Client{},
		policy:  policy,
		logger:  logger,
	}
}

// Do executes the request under the client's retry policy.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	var last *Response
	var lastErr error
	attempt := 0

	operation := func() error {
		attempt++
		resp, err := c.attempt(ctx, req)
		if err != nil {
			// network error or per-attempt timeout: retryable
			lastErr = err
			if c.logger != nil {
				c.logger.Warn("upstream attempt failed",
					zap.String("service", c.service),
					zap.String("url", req.URL),
					zap.Int("attempt", attempt),
					zap.Error(err),
				)
			}
			return err
		}
		last = resp
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("%s returned status %d", c.service, resp.StatusCode)
			if c.logger != nil {
				c.logger.Warn("upstream server error",
					zap.String("service", c.service),
					zap.Int("status", resp.StatusCode),
					zap.Int("attempt", attempt),
				)
			}
			return lastErr
		}
		// 4xx surfaces to the caller via StatusCode, never retried
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.policy.BaseDelay
	bo.Multiplier = c.policy.Multiplier
	bo.RandomizationFactor = 0
	bo.MaxInterval = c.policy.BaseDelay * 16
	bo.MaxElapsedTime = 0

	wrapped := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.policy.MaxAttempts-1)), ctx)
	if err := backoff.Retry(operation, wrapped); err != nil {
		return last, apperrors.ErrUpstreamUnavailable(c.service, lastErr)
	}
	return last, nil
}

// attempt performs a single call under its own timeout.
func (c *Client) attempt(ctx context.Context, req Request) (*Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.policy.AttemptTimeout)
	defer cancel()

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, req.Method, req.URL, body)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}
