package observability

import (
	"github.com/spetersoncode/llmgate/client"
	"github.com/spetersoncode/llmgate/internal/retry"
)

// RecordClientEvents drains events into the provider metrics until the
// channel is closed. Run it in its own goroutine.
func RecordClientEvents(events <-chan client.Event) {
	for ev := range events {
		RecordClientEvent(ev)
	}
}

// RecordClientEvent records a single client event.
func RecordClientEvent(ev client.Event) {
	provider := string(ev.Provider)
	switch ev.Type {
	case client.EventRequestComplete:
		ProviderRequestsTotal.WithLabelValues(provider, "ok").Inc()
		ProviderLatency.WithLabelValues(provider).Observe(ev.Duration.Seconds())
		if ev.Usage != nil {
			ProviderTokensTotal.WithLabelValues(provider, "input").Add(float64(ev.Usage.PromptTokens))
			ProviderTokensTotal.WithLabelValues(provider, "output").Add(float64(ev.Usage.CompletionTokens))
		}
	case client.EventRequestError:
		ProviderRequestsTotal.WithLabelValues(provider, "error").Inc()
		ProviderLatency.WithLabelValues(provider).Observe(ev.Duration.Seconds())
	case client.EventRetry:
		if ev.RetryEvent != nil && ev.RetryEvent.Type == retry.EventRetrying {
			ProviderRetriesTotal.WithLabelValues(provider).Inc()
		}
	}
}
