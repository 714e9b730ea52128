package client

import "github.com/spetersoncode/llmgate/internal/retry"

// RetryConfig holds retry configuration parameters.
type RetryConfig = retry.Config

// RetryEvent represents an observable occurrence during retry execution.
type RetryEvent = retry.Event

// DefaultRetryConfig returns three attempts with exponential backoff from 500ms.
func DefaultRetryConfig() RetryConfig {
	return retry.DefaultConfig()
}

// DisabledRetryConfig returns a configuration that makes a single attempt.
func DisabledRetryConfig() RetryConfig {
	return retry.Disabled()
}

// IsTransientError reports whether err would be retried.
func IsTransientError(err error) bool {
	return retry.IsTransient(err)
}
