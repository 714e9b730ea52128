// Package agent runs the tool-calling round trip.
//
// The model is sent the conversation together with the registry's tools. When it
// answers with tool calls, the agent records the assistant message, executes each
// call, appends one tool message with all results and asks again. After
// MaxRounds tool rounds the follow-up request carries no tools, so the model has
// to answer in text.
//
//	registry := tool.NewRegistry().Add(
//	    tool.Func("get_weather", "Get the current weather for a location",
//	        func(ctx context.Context, args WeatherArgs) (string, error) {
//	            return lookup(args.Location), nil
//	        }),
//	)
//
//	a := agent.New(client, registry)
//	result, err := a.Run(ctx, messages, agent.WithModel("openai:gpt-4o-mini"))
//
// # Streaming Events
//
// RunStream reports progress as it happens:
//
//	for e := range a.RunStream(ctx, messages, agent.WithStreaming(true)) {
//	    switch e.Type {
//	    case agent.EventDelta:
//	        fmt.Print(e.Delta)
//	    case agent.EventToolCall:
//	        fmt.Printf("→ %s(%s)\n", e.ToolCall.Name, e.ToolCall.Arguments)
//	    case agent.EventComplete:
//	        fmt.Println(e.Result.Usage.TotalTokens)
//	    }
//	}
//
// The input slice is never modified. Result.Messages holds the new transcript.
package agent
