package client

import (
	"time"

	ai "github.com/spetersoncode/llmgate"
	"github.com/spetersoncode/llmgate/internal/retry"
)

// EventType identifies the kind of event occurring during client operations.
type EventType string

const (
	EventRequestStart    EventType = "request_start"
	EventRequestComplete EventType = "request_complete"
	EventRequestError    EventType = "request_error"
	// EventRetry wraps an event from the retry loop.
	EventRetry EventType = "retry"
)

// Event represents an observable occurrence during client operations.
type Event struct {
	Type EventType
	// Operation is "chat" or "chat_stream".
	Operation string
	Provider  ai.Provider
	// Model is the model name as sent to the provider.
	Model      string
	Duration   time.Duration
	Usage      *ai.Usage
	Error      error
	RetryEvent *retry.Event
	Timestamp  time.Time
}

func emit(ch chan<- Event, event Event) {
	if ch == nil {
		return
	}
	event.Timestamp = time.Now()
	select {
	case ch <- event:
	default:
	}
}
