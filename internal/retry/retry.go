package retry

import (
	"context"
	"time"

	ai "github.com/spetersoncode/llmgate"
)

// effectiveDelay honors a server Retry-After when it exceeds the computed backoff.
func effectiveDelay(computed time.Duration, err error) time.Duration {
	if server := ai.RetryAfterOf(err); server > computed {
		return server
	}
	return computed
}

// Do calls fn until it succeeds, fails permanently or runs out of attempts.
func Do[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	return DoWithEvents(ctx, cfg, nil, fn)
}

// DoStream retries establishing a stream. Chunks already delivered are never replayed.
func DoStream[T any](ctx context.Context, cfg Config, fn func() (<-chan T, error)) (<-chan T, error) {
	return DoWithEvents(ctx, cfg, nil, fn)
}

// DoStreamWithEvents is DoStream with event emission.
func DoStreamWithEvents[T any](ctx context.Context, cfg Config, events chan<- Event, fn func() (<-chan T, error)) (<-chan T, error) {
	return DoWithEvents(ctx, cfg, events, fn)
}

// DoWithEvents is Do that reports each attempt on events.
// Sends never block; a nil channel disables reporting.
func DoWithEvents[T any](ctx context.Context, cfg Config, events chan<- Event, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		emit(events, Event{Type: EventAttemptStart, Attempt: attempt + 1, MaxAttempts: attempts})

		result, err := fn()
		if err == nil {
			emit(events, Event{Type: EventSuccess, Attempt: attempt + 1, MaxAttempts: attempts})
			return result, nil
		}

		lastErr = err
		retryable := IsTransient(err)
		emit(events, Event{
			Type:        EventAttemptFailed,
			Attempt:     attempt + 1,
			MaxAttempts: attempts,
			Error:       err,
			StatusCode:  ai.StatusCodeOf(err),
			Retryable:   retryable,
		})
		if !retryable {
			return zero, err
		}
		if attempt == attempts-1 {
			break
		}

		delay := effectiveDelay(cfg.Delay(attempt), err)
		emit(events, Event{Type: EventRetrying, Attempt: attempt + 1, MaxAttempts: attempts, Delay: delay})

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	emit(events, Event{Type: EventExhausted, Attempt: attempts, MaxAttempts: attempts, Error: lastErr, StatusCode: ai.StatusCodeOf(lastErr)})
	return zero, lastErr
}
