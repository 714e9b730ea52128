package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	ai "github.com/spetersoncode/llmgate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completionBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o-mini",
  "choices": [{
    "index": 0,
    "finish_reason": "stop",
    "message": {"role": "assistant", "content": "Hello there"}
  }],
  "usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
}`

const toolCallBody = `{
  "id": "chatcmpl-2",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o-mini",
  "choices": [{
    "index": 0,
    "finish_reason": "tool_calls",
    "message": {
      "role": "assistant",
      "content": null,
      "tool_calls": [{
        "id": "call_1",
        "type": "function",
        "function": {"name": "get_weather", "arguments": "{\"location\":\"Paris\"}"}
      }]
    }
  }],
  "usage": {"prompt_tokens": 20, "completion_tokens": 8, "total_tokens": 28}
}`

type captured struct {
	path    string
	headers http.Header
	body    map[string]any
}

func newServer(t *testing.T, status int, body string) (*httptest.Server, *captured) {
	t.Helper()
	c := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.path = r.URL.Path
		c.headers = r.Header.Clone()
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &c.body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func TestChat(t *testing.T) {
	t.Run("returns content and usage", func(t *testing.T) {
		srv, got := newServer(t, http.StatusOK, completionBody)
		c := New("sk-test", WithBaseURL(srv.URL+"/v1"))

		resp, err := c.Chat(context.Background(), []ai.Message{
			ai.SystemMessage("be brief"),
			ai.UserMessage("hi"),
		}, ai.WithMaxTokens(50), ai.WithUser("user-1"))
		require.NoError(t, err)

		assert.Equal(t, "Hello there", resp.Content)
		assert.Equal(t, "stop", resp.FinishReason)
		assert.Equal(t, ai.Usage{PromptTokens: 12, CompletionTokens: 3, TotalTokens: 15}, resp.Usage)
		assert.False(t, resp.HasToolCalls())

		assert.Equal(t, "/v1/chat/completions", got.path)
		assert.Equal(t, "Bearer sk-test", got.headers.Get("Authorization"))
		assert.Equal(t, "gpt-4o-mini", got.body["model"])
		assert.Equal(t, "user-1", got.body["user"])
		assert.EqualValues(t, 50, got.body["max_tokens"])
		assert.Len(t, got.body["messages"], 2)
	})

	t.Run("extracts tool calls", func(t *testing.T) {
		srv, got := newServer(t, http.StatusOK, toolCallBody)
		c := New("sk-test", WithBaseURL(srv.URL+"/v1"))

		tools := []ai.Tool{{
			Name:        "get_weather",
			Description: "Get the weather",
			Parameters:  json.RawMessage(`{"type":"object","properties":{"location":{"type":"string"}}}`),
		}}
		resp, err := c.Chat(context.Background(), []ai.Message{ai.UserMessage("weather?")}, ai.WithTools(tools))
		require.NoError(t, err)

		require.Len(t, resp.ToolCalls, 1)
		assert.Equal(t, "call_1", resp.ToolCalls[0].ID)
		assert.Equal(t, "get_weather", resp.ToolCalls[0].Name)
		assert.JSONEq(t, `{"location":"Paris"}`, resp.ToolCalls[0].Arguments)
		assert.Len(t, got.body["tools"], 1)
	})

	t.Run("sends tool round trip messages", func(t *testing.T) {
		srv, got := newServer(t, http.StatusOK, completionBody)
		c := New("sk-test", WithBaseURL(srv.URL+"/v1"))

		call := ai.ToolCall{ID: "call_1", Name: "get_weather", Arguments: `{}`}
		_, err := c.Chat(context.Background(), []ai.Message{
			ai.UserMessage("weather?"),
			ai.NewToolCallMessage("", []ai.ToolCall{call}),
			ai.NewToolResultMessage(ai.ToolResult{ToolCallID: "call_1", Name: "get_weather", Content: "sunny"}),
		})
		require.NoError(t, err)

		msgs, ok := got.body["messages"].([]any)
		require.True(t, ok)
		require.Len(t, msgs, 3)
		tool := msgs[2].(map[string]any)
		assert.Equal(t, "tool", tool["role"])
		assert.Equal(t, "call_1", tool["tool_call_id"])
	})

	t.Run("categorizes API errors", func(t *testing.T) {
		srv, _ := newServer(t, http.StatusUnauthorized, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
		c := New("sk-bad", WithBaseURL(srv.URL+"/v1"))

		_, err := c.Chat(context.Background(), []ai.Message{ai.UserMessage("hi")})
		require.Error(t, err)
		assert.True(t, ai.IsPermanent(err))
		assert.Equal(t, http.StatusUnauthorized, ai.StatusCodeOf(err))
	})
}

func TestGateway(t *testing.T) {
	srv, got := newServer(t, http.StatusOK, completionBody)
	c := NewGateway(srv.URL+"/v1", "master-key")

	_, err := c.Chat(context.Background(), []ai.Message{ai.UserMessage("hi")},
		ai.WithModel("openai:gpt-4o-mini"), ai.WithUser("alice"))
	require.NoError(t, err)

	assert.Equal(t, "Bearer master-key", got.headers.Get("X-AnyLLM-Key"))
	assert.Equal(t, "openai:gpt-4o-mini", got.body["model"])
	assert.Equal(t, "alice", got.body["user"])
}

func TestChatStream(t *testing.T) {
	chunks := []string{
		`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"role":"assistant","content":"Hel"}}]}`,
		`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"content":"lo"}}]}`,
		`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
		`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[],"usage":{"prompt_tokens":5,"completion_tokens":2,"total_tokens":7}}`,
	}
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.Header().Set("Content-Type", "text/event-stream")
		for _, chunk := range chunks {
			fmt.Fprintf(w, "data: %s\n\n", chunk)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c := New("sk-test", WithBaseURL(srv.URL+"/v1"))
	ch, err := c.ChatStream(context.Background(), []ai.Message{ai.UserMessage("hi")})
	require.NoError(t, err)

	var deltas []string
	resp, err := ai.CollectStream(ch, func(d string) { deltas = append(deltas, d) })
	require.NoError(t, err)

	assert.Equal(t, []string{"Hel", "lo"}, deltas)
	assert.Equal(t, "Hello", resp.Content)
	assert.Equal(t, 7, resp.Usage.TotalTokens)
	assert.Equal(t, true, gotBody["stream"])
}

func TestNewOllama(t *testing.T) {
	c := NewOllama("")
	assert.Equal(t, OllamaBaseURL, c.baseURL)

	c = NewOllama("http://gpu-box:11434/v1", WithModel("llama3.2"))
	assert.Equal(t, "http://gpu-box:11434/v1", c.baseURL)
	assert.Equal(t, "llama3.2", c.model)

	for _, in := range []string{"http://gpu-box:11434", "http://gpu-box:11434/", "http://gpu-box:11434/v1/"} {
		assert.Equal(t, "http://gpu-box:11434/v1", NewOllama(in).baseURL, in)
	}

	t.Run("server root and v1 root reach chat completions", func(t *testing.T) {
		for _, suffix := range []string{"", "/v1"} {
			srv, got := newServer(t, http.StatusOK, completionBody)
			_, err := NewOllama(srv.URL+suffix).Chat(context.Background(), []ai.Message{ai.UserMessage("hi")},
				ai.WithModel("llama3.2"))
			require.NoError(t, err, suffix)
			assert.Equal(t, "/v1/chat/completions", got.path, suffix)
		}
	})
}
