package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	maxRetries   = 3
	retryBackoff = 2 * time.Second
	maxBackoff   = 30 * time.Second
)

// ErrGenerationTimedOut is returned when a generative call outlives its deadline
var ErrGenerationTimedOut = errors.New("generation timed out")

// RetryPolicy bounds exponential backoff retries
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

// CallPolicy is the timeout and retry policy for one kind of generative call
type CallPolicy struct {
	Timeout time.Duration
	Retry   RetryPolicy
}

// DefaultRetryPolicy returns three attempts starting at a two second backoff
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: maxRetries, Backoff: retryBackoff}
}

// backoff returns the wait before the given retry, 1-based
func (p RetryPolicy) backoff(attempt int) time.Duration {
	d := p.Backoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

// Retry runs fn until it succeeds, fails with a non-retryable error, or the
// attempts run out
func Retry(ctx context.Context, p RetryPolicy, op string, fn func(ctx context.Context) error) error {
	attempts := p.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) || attempt == attempts {
			break
		}

		wait := p.backoff(attempt)
		log.Printf("%s: attempt %d/%d failed, retrying in %s: %v", op, attempt, attempts, wait, err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

// WithTimeout races fn against a deadline. The call is abandoned, not
// cancelled remotely, once the deadline passes.
func WithTimeout[T any](ctx context.Context, d time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if d <= 0 {
		return fn(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w after %s", ErrGenerationTimedOut, d)
		}
		return r.value, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w after %s", ErrGenerationTimedOut, d)
		}
		return zero, ctx.Err()
	}
}

// Call applies the policy's retries inside its overall timeout
func Call[T any](ctx context.Context, p CallPolicy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	return WithTimeout(ctx, p.Timeout, func(ctx context.Context) (T, error) {
		var out T
		err := Retry(ctx, p.Retry, op, func(ctx context.Context) error {
			v, err := fn(ctx)
			if err != nil {
				return err
			}
			out = v
			return nil
		})
		return out, err
	})
}

// IsRetryable reports whether err is worth another attempt
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrGenerationTimedOut) {
		return false
	}
	if isRateLimitError(err) {
		return true
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unavailable, codes.Internal, codes.Aborted:
			return true
		}
	}
	return false
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) && se.Code == 429 {
		return true
	}

	if st, ok := status.FromError(err); ok && st.Code() == codes.ResourceExhausted {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"resourceexhausted", "resource exhausted", "429", "rate limit", "quota"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// StatusError is a non-2xx answer from a REST endpoint
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}
