// Package client provides the unified multi-provider chat client.
//
// Models are addressed as "provider:model" (or a bare name whose provider can be
// inferred) and the client routes each request to the matching backend:
//
//	c := client.New(client.Config{
//	    APIKeys: client.APIKeys{
//	        Anthropic: os.Getenv("ANTHROPIC_API_KEY"),
//	        OpenAI:    os.Getenv("OPENAI_API_KEY"),
//	    },
//	})
//
//	resp, err := c.Chat(ctx, []ai.Message{ai.UserMessage("Hello!")},
//	    ai.WithModel("anthropic:claude-3-5-haiku-20241022"))
//
// Backends are built on first use, so only the providers actually used need keys.
// Ollama needs no key at all.
//
// # Gateway
//
// With [ViaGateway] every request goes to the configured any-llm gateway, which
// receives the full provider:model string and the end user from [ai.WithUser]:
//
//	c := client.New(client.Config{Endpoints: client.Endpoints{
//	    GatewayURL: "http://localhost:8000",
//	    GatewayKey: os.Getenv("GATEWAY_MASTER_KEY"),
//	}}, client.ViaGateway())
//
// # Retries and events
//
// Transient failures (rate limits, 5xx, network errors) are retried with
// exponential backoff. Pass an Events channel to observe requests, usage and retries.
package client
