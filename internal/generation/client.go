// Package generation holds the LLM transport: a provider-neutral client
// interface, the Gemini and OpenAI implementations, retry with backoff for
// transient service failures, and parsing of raw completions into generated
// documents. The service is an external collaborator; nothing here trusts
// its output shape.
package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"draftguard/internal/logging"
)

// Client defines the interface for LLM providers.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ErrServiceFailure wraps errors from the generation service so callers can
// distinguish transport failures from validation failures.
var ErrServiceFailure = errors.New("generation service failure")

// ServiceError is a generation-service failure with its timeout/cancel
// classification preserved.
type ServiceError struct {
	Err      error
	Canceled bool
}

func (e *ServiceError) Error() string {
	if e.Canceled {
		return fmt.Sprintf("generation canceled: %v", e.Err)
	}
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *ServiceError) Unwrap() error { return ErrServiceFailure }

// wrapServiceError classifies an error from a provider call.
func wrapServiceError(err error) *ServiceError {
	return &ServiceError{
		Err:      err,
		Canceled: errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded),
	}
}

// RetryPolicy bounds transient-failure retries on the generation call.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultRetryPolicy retries twice with exponential backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, BaseDelay: 2 * time.Second}
}

// CompleteWithRetry calls the client, retrying transient failures per the
// policy. Context cancellation and timeouts are never retried; they
// propagate as a ServiceError with Canceled set.
func CompleteWithRetry(ctx context.Context, c Client, policy RetryPolicy, system, user string) (string, error) {
	log := logging.Get(logging.CategoryGeneration)

	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := policy.BaseDelay << (attempt - 1)
			log.Warn("generation attempt %d failed, retrying in %v: %v", attempt, delay, lastErr)
			select {
			case <-ctx.Done():
				return "", wrapServiceError(ctx.Err())
			case <-time.After(delay):
			}
		}

		raw, err := c.CompleteWithSystem(ctx, system, user)
		if err == nil {
			return raw, nil
		}
		lastErr = err

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", wrapServiceError(err)
		}
	}

	return "", wrapServiceError(fmt.Errorf("exhausted %d retries: %w", policy.MaxRetries, lastErr))
}
