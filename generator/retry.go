package generator

import (
	"context"
	"time"
)

// WithRetry wraps a generator so transient failures are retried up to
// maxAttempts with exponential backoff starting at baseDelay. Permanent
// failures and context cancellation stop immediately.
func WithRetry(next Generator, maxAttempts int, baseDelay time.Duration) Generator {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 300 * time.Millisecond
	}
	return &retrying{next: next, max: maxAttempts, base: baseDelay}
}

type retrying struct {
	next Generator
	max  int
	base time.Duration
}

func (r *retrying) GenerateBlockDoc(ctx context.Context, functionText string) (string, error) {
	var result string
	err := r.attempt(ctx, func() error {
		var callErr error
		result, callErr = r.next.GenerateBlockDoc(ctx, functionText)
		return callErr
	})
	return result, err
}

func (r *retrying) GenerateInlineComments(ctx context.Context, functionText string) ([]InlineComment, error) {
	var result []InlineComment
	err := r.attempt(ctx, func() error {
		var callErr error
		result, callErr = r.next.GenerateInlineComments(ctx, functionText)
		return callErr
	})
	return result, err
}

func (r *retrying) attempt(ctx context.Context, call func() error) error {
	var last error
	for i := 0; i < r.max; i++ {
		err := call()
		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			return err
		}
		last = err
		if i == r.max-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.base * time.Duration(1<<i)):
		}
	}
	return last
}
