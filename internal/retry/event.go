package retry

import "time"

// EventType names a step in the life of a retried provider call.
type EventType string

// A call that succeeds first time reports attempt_start then success. Each
// transient failure adds attempt_failed and retrying before the next start.
const (
	EventAttemptStart  EventType = "attempt_start"
	EventAttemptFailed EventType = "attempt_failed"
	EventRetrying      EventType = "retrying"
	EventSuccess       EventType = "success"
	EventExhausted     EventType = "exhausted"
)

// Event reports one step of a provider call made under a retry policy.
// Attempt counts from 1.
type Event struct {
	Type        EventType
	Attempt     int
	MaxAttempts int
	Timestamp   time.Time

	// Set on attempt_failed and exhausted. StatusCode is the provider's
	// HTTP status, or 0 for network errors.
	Error      error
	StatusCode int
	Retryable  bool

	// Set on retrying: the backoff, stretched to the provider's Retry-After.
	Delay time.Duration
}

// emit stamps and sends ev, dropping it when nobody is reading.
func emit(ch chan<- Event, ev Event) {
	if ch == nil {
		return
	}
	ev.Timestamp = time.Now()
	select {
	case ch <- ev:
	default:
	}
}
