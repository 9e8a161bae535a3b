package collab

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// CompletionRequest is one call to the AI collaborator.
type CompletionRequest struct {
	System    string
	User      string
	MaxTokens int

	// Images holds optional vision inputs (raw bytes, PNG or JPEG).
	Images [][]byte
}

// Completion is the AI collaborator's response, with token accounting.
type Completion struct {
	Text         string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}

// Completer is the AI text/vision collaborator. Its output is untrusted
// free text; callers parse it through aiparse with deterministic fallbacks.
type Completer interface {
	Complete(ctx context.Context, req *CompletionRequest) (*Completion, error)
}

const (
	defaultRatePerSecond = 2.0
	defaultBurst         = 4
	defaultMaxRetries    = 2
	defaultBaseBackoff   = 500 * time.Millisecond
)

// RateLimitedCompleter wraps a Completer with client-side rate limiting and
// bounded retry for transient failures.
type RateLimitedCompleter struct {
	inner      Completer
	limiter    *rate.Limiter
	maxRetries int
}

// NewRateLimitedCompleter wraps inner. Non-positive perSecond or burst fall
// back to defaults.
func NewRateLimitedCompleter(inner Completer, perSecond float64, burst int) *RateLimitedCompleter {
	if perSecond <= 0 {
		perSecond = defaultRatePerSecond
	}
	if burst <= 0 {
		burst = defaultBurst
	}
	return &RateLimitedCompleter{
		inner:      inner,
		limiter:    rate.NewLimiter(rate.Limit(perSecond), burst),
		maxRetries: defaultMaxRetries,
	}
}

// Complete waits for the limiter, then delegates with exponential backoff on
// transient errors. Context cancellation is respected between attempts.
func (c *RateLimitedCompleter) Complete(ctx context.Context, req *CompletionRequest) (*Completion, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := defaultBaseBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := c.inner.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("completion failed after %d retries: %w", c.maxRetries, lastErr)
}
