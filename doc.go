// Package llmgate provides a uniform interface for talking to several LLM providers.
//
// OpenAI, Anthropic, Gemini, Mistral, Ollama and an any-llm compatible gateway proxy
// are all reached through the same [ChatProvider] interface. Models are addressed
// with "provider:model" strings (see [ParseModel]), so switching providers is a
// matter of changing one string.
//
// Use the [github.com/spetersoncode/llmgate/client] package as the entry point:
//
//	c := client.New(client.Config{
//	    APIKeys: client.APIKeys{Anthropic: os.Getenv("ANTHROPIC_API_KEY")},
//	})
//
//	resp, err := c.Chat(ctx, []llmgate.Message{llmgate.UserMessage("Hello")},
//	    llmgate.WithModel("anthropic:claude-3-5-haiku-20241022"),
//	)
//
// # Tool calling
//
// Tools are declared with [Tool] and executed by a [github.com/spetersoncode/llmgate/tool.Registry].
// The [github.com/spetersoncode/llmgate/agent] package runs the request, execute, resend
// round trip.
//
// # Streaming
//
// ChatStream returns a channel of [StreamEvent]. The last event has Done set and carries
// the complete [Response], including usage and any tool calls the model requested.
// [CollectStream] drains a stream into that final response.
//
// # Errors
//
// Provider errors are wrapped as [CategorizedError] so callers can tell transient
// failures (rate limits, 5xx) from permanent ones (bad keys) and from rejected input.
package llmgate
