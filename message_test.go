package llmgate

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateMessageID(t *testing.T) {
	a, b := GenerateMessageID(), GenerateMessageID()
	assert.True(t, strings.HasPrefix(a, "msg-"))
	assert.NotEqual(t, a, b)
}

func TestUsage(t *testing.T) {
	t.Run("derives total", func(t *testing.T) {
		u := NewUsage(10, 5, 0)
		assert.Equal(t, 15, u.TotalTokens)
	})

	t.Run("keeps reported total", func(t *testing.T) {
		u := NewUsage(10, 5, 20)
		assert.Equal(t, 20, u.TotalTokens)
	})

	t.Run("add", func(t *testing.T) {
		u := NewUsage(1, 2, 0).Add(NewUsage(3, 4, 0))
		assert.Equal(t, Usage{PromptTokens: 4, CompletionTokens: 6, TotalTokens: 10}, u)
	})
}

func TestResponseHasToolCalls(t *testing.T) {
	var nilResp *Response
	assert.False(t, nilResp.HasToolCalls())
	assert.False(t, (&Response{Content: "hi"}).HasToolCalls())
	assert.True(t, (&Response{ToolCalls: []ToolCall{{ID: "1", Name: "divide"}}}).HasToolCalls())
}

func TestToolMessages(t *testing.T) {
	calls := []ToolCall{{ID: "call_1", Name: "get_weather", Arguments: `{"location":"Paris"}`}}
	msg := NewToolCallMessage("", calls)
	assert.Equal(t, RoleAssistant, msg.Role)
	assert.Equal(t, calls, msg.ToolCalls)

	res := NewToolResultMessage(ToolResult{ToolCallID: "call_1", Content: "sunny"})
	assert.Equal(t, RoleTool, res.Role)
	require.Len(t, res.ToolResults, 1)
	assert.Equal(t, "call_1", res.ToolResults[0].ToolCallID)
}

func TestCollectStream(t *testing.T) {
	t.Run("returns final response and forwards deltas", func(t *testing.T) {
		ch := make(chan StreamEvent, 4)
		ch <- StreamEvent{Delta: "Hel"}
		ch <- StreamEvent{Delta: "lo"}
		ch <- StreamEvent{Done: true, Response: &Response{Content: "Hello", Usage: NewUsage(3, 2, 0)}}
		close(ch)

		var seen []string
		resp, err := CollectStream(ch, func(d string) { seen = append(seen, d) })
		require.NoError(t, err)
		assert.Equal(t, []string{"Hel", "lo"}, seen)
		assert.Equal(t, "Hello", resp.Content)
		assert.Equal(t, 5, resp.Usage.TotalTokens)
	})

	t.Run("falls back to accumulated content", func(t *testing.T) {
		ch := make(chan StreamEvent, 2)
		ch <- StreamEvent{Delta: "partial"}
		close(ch)

		resp, err := CollectStream(ch, nil)
		require.NoError(t, err)
		assert.Equal(t, "partial", resp.Content)
	})

	t.Run("returns stream error", func(t *testing.T) {
		boom := errors.New("boom")
		ch := make(chan StreamEvent, 3)
		ch <- StreamEvent{Delta: "x"}
		ch <- StreamEvent{Err: boom}
		close(ch)

		_, err := CollectStream(ch, nil)
		assert.ErrorIs(t, err, boom)
	})
}
