// Package ratelimit provides rolling-window request counting with
// interchangeable in-memory and Redis backends.
package ratelimit

import (
	"context"
	"time"
)

// Result reports the outcome of one admission check.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Store counts requests per key over a rolling window.
type Store interface {
	// Allow records one request for key and reports whether it fits
	// within limit requests per window.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
	Close() error
}
