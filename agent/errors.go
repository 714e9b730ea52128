package agent

import "errors"

var (
	// ErrTimeout indicates the run's own timeout expired.
	ErrTimeout = errors.New("agent: timeout exceeded")

	// ErrNoResponse indicates a stream ended without a final response.
	ErrNoResponse = errors.New("agent: stream ended without a response")
)
