package judge

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// retryClient wraps a ChatClient with bounded retries and exponential
// backoff. Only transient classes (timeouts, rate limits, 5xx, transport
// failures) are retried; a response the caller parses and rejects
// semantically never reaches this layer as an error.
type retryClient struct {
	next      ChatClient
	attempts  int
	baseDelay time.Duration
	maxDelay  time.Duration
}

// WithRetry wraps next with the given retry policy. attempts is the
// total number of tries, not the number of retries.
func WithRetry(next ChatClient, attempts int, baseDelay, maxDelay time.Duration) ChatClient {
	if attempts < 1 {
		attempts = 1
	}
	return &retryClient{
		next:      next,
		attempts:  attempts,
		baseDelay: baseDelay,
		maxDelay:  maxDelay,
	}
}

func (r *retryClient) Complete(ctx context.Context, system, user string) (string, error) {
	var lastErr error

	for attempt := 0; attempt < r.attempts; attempt++ {
		resp, err := r.next.Complete(ctx, system, user)
		if err == nil {
			return resp, nil
		}

		lastErr = err
		if ctx.Err() != nil || !isTransient(err) || attempt == r.attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(r.backoff(attempt)):
		}
	}

	return "", fmt.Errorf("judge call failed after %d attempts: %w", r.attempts, lastErr)
}

func isTransient(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return true
		case apiErr.HTTPStatusCode == http.StatusRequestTimeout:
			return true
		case apiErr.HTTPStatusCode >= http.StatusInternalServerError:
			return true
		}
		return false
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return true
	}

	// Anything else at this layer is a transport-level failure.
	return true
}

// backoff doubles the base delay per attempt with ±25% jitter, capped
// at maxDelay.
func (r *retryClient) backoff(attempt int) time.Duration {
	if attempt > 30 {
		attempt = 30
	}

	delay := time.Duration(float64(r.baseDelay) * float64(int64(1)<<uint(attempt)))
	jitter := time.Duration(rand.Float64() * float64(delay) * 0.5)
	delay = delay + jitter - delay/4

	if delay > r.maxDelay {
		delay = r.maxDelay
	}
	return delay
}
