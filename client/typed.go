package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	ai "github.com/spetersoncode/llmgate"
)

// ChatJSON requests a JSON object response and decodes it into T.
// Models sometimes wrap JSON in a markdown fence, which is stripped first.
func ChatJSON[T any](ctx context.Context, c ai.ChatProvider, msgs []ai.Message, opts ...ai.Option) (T, *ai.Response, error) {
	var out T
	resp, err := c.Chat(ctx, msgs, append(opts, ai.WithJSONMode())...)
	if err != nil {
		return out, nil, err
	}
	if err := json.Unmarshal([]byte(stripFence(resp.Content)), &out); err != nil {
		return out, resp, fmt.Errorf("decode JSON response: %w", err)
	}
	return out, resp, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
