// Package anthropic provides an Anthropic Claude client implementing [llmgate.ChatProvider].
//
// System messages are lifted into the request's system prompt and tool results travel
// as tool_result blocks in a user turn. The Messages API has no JSON mode, so
// [llmgate.WithJSONMode] is emulated by forcing a synthetic tool whose input is
// returned as the response content.
//
//	client := anthropic.New(os.Getenv("ANTHROPIC_API_KEY"))
//	resp, err := client.Chat(ctx, []llmgate.Message{llmgate.UserMessage("Hi")},
//	    llmgate.WithModel("claude-3-5-sonnet-20241022"))
package anthropic
