package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	ai "github.com/spetersoncode/llmgate"
	"github.com/spetersoncode/llmgate/catalog"
	"github.com/spetersoncode/llmgate/discovery"
	"github.com/spetersoncode/llmgate/gateway"
	"github.com/spetersoncode/llmgate/internal/config"
	"github.com/spetersoncode/llmgate/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeChat asks for get_weather whenever tools are offered and otherwise answers.
type fakeChat struct {
	mu      sync.Mutex
	err     error
	options []*ai.Options
}

func (f *fakeChat) respond(opts []ai.Option) (*ai.Response, error) {
	o := ai.ApplyOptions(opts...)
	f.mu.Lock()
	f.options = append(f.options, o)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	if len(o.Tools) > 0 && o.ToolChoice != ai.ToolChoiceNone {
		return &ai.Response{
			ToolCalls: []ai.ToolCall{{ID: "call_1", Name: "get_weather", Arguments: `{"location":"Paris"}`}},
			Usage:     ai.NewUsage(20, 5, 0),
		}, nil
	}
	return &ai.Response{Content: "Hello there", Model: o.Model, Usage: ai.NewUsage(10, 5, 0)}, nil
}

func (f *fakeChat) Chat(_ context.Context, _ []ai.Message, opts ...ai.Option) (*ai.Response, error) {
	return f.respond(opts)
}

func (f *fakeChat) ChatStream(_ context.Context, _ []ai.Message, opts ...ai.Option) (<-chan ai.StreamEvent, error) {
	resp, err := f.respond(opts)
	if err != nil {
		return nil, err
	}
	ch := make(chan ai.StreamEvent, 3)
	if resp.Content != "" {
		ch <- ai.StreamEvent{Delta: resp.Content[:5]}
		ch <- ai.StreamEvent{Delta: resp.Content[5:]}
	}
	ch <- ai.StreamEvent{Done: true, Response: resp}
	close(ch)
	return ch, nil
}

func (f *fakeChat) last() *ai.Options {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.options[len(f.options)-1]
}

type fakeUsage struct {
	records map[string][]gateway.UsageRecord
	users   []string
	err     error
}

func (f *fakeUsage) UserUsage(_ context.Context, userID string) ([]gateway.UsageRecord, error) {
	return f.records[userID], f.err
}

func (f *fakeUsage) ListUsers(context.Context) ([]string, error) {
	return f.users, f.err
}

func (f *fakeUsage) AggregateUsers(ctx context.Context, ids []string) (gateway.Aggregate, error) {
	var agg gateway.Aggregate
	for _, id := range ids {
		s := gateway.Summarize(f.records[id])
		agg.Users = append(agg.Users, gateway.UserSummary{UserID: id, Summary: s})
		agg.Total = agg.Total.Add(s)
	}
	return agg, f.err
}

type fakeDiscovery struct {
	models map[string][]discovery.ModelInfo
	err    error
}

func (f *fakeDiscovery) SupportedProviders() []string { return []string{"anthropic", "ollama"} }

func (f *fakeDiscovery) Discover(_ context.Context, provider string) ([]discovery.ModelInfo, error) {
	if provider != "anthropic" && provider != "ollama" {
		return nil, &discovery.ErrUnsupportedProvider{Provider: provider, Supported: f.SupportedProviders()}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.models[provider], nil
}

type fixture struct {
	cfg    *config.Config
	chat   *fakeChat
	usage  *fakeUsage
	disc   *fakeDiscovery
	store  *catalog.FileStore
	ledger *ledger.Ledger
}

func newFixture(t *testing.T, mutate ...func(*config.Config)) (*fixture, http.Handler) {
	t.Helper()
	cfg := config.Defaults()
	cfg.Gateway.MasterKey = "master"
	for _, m := range mutate {
		m(&cfg)
	}

	store, err := catalog.Open(filepath.Join(t.TempDir(), "models.json"), catalog.DefaultWebModels())
	require.NoError(t, err)
	led, err := ledger.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { led.Close() })

	f := &fixture{
		cfg:  &cfg,
		chat: &fakeChat{},
		usage: &fakeUsage{records: map[string][]gateway.UsageRecord{
			"user-123": {
				{Model: "anthropic:claude-3-5-haiku-20241022", PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
				{Model: "gemini:gemini-2.5-flash-lite", PromptTokens: 5, CompletionTokens: 5, TotalTokens: 10},
			},
			"bob": {{Model: "openai:gpt-4o", PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3}},
		}, users: []string{"user-123", "bob"}},
		disc: &fakeDiscovery{models: map[string][]discovery.ModelInfo{
			"ollama": {{Model: "llama3.2:latest", Provider: "ollama", Display: "llama3.2:latest (2.0GB)"}},
		}},
		store:  store,
		ledger: led,
	}
	srv := New(f.cfg, Deps{
		Chat:      f.chat,
		Usage:     f.usage,
		Catalog:   store,
		Discovery: f.disc,
		Ledger:    led,
	})
	return f, srv.Handler()
}

func do(h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m
}

type sseEvent struct {
	Event string
	Data  map[string]any
}

func parseSSE(t *testing.T, body string) []sseEvent {
	t.Helper()
	var events []sseEvent
	var current sseEvent
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			current.Event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &current.Data))
		case line == "":
			events = append(events, current)
			current = sseEvent{}
		}
	}
	return events
}

func TestBasics(t *testing.T) {
	_, h := newFixture(t)

	t.Run("health", func(t *testing.T) {
		w := do(h, http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	})

	t.Run("request id is generated or echoed", func(t *testing.T) {
		w := do(h, http.MethodGet, "/health", "")
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

		w = do(h, http.MethodGet, "/health", "", "X-Request-ID", "abc")
		assert.Equal(t, "abc", w.Header().Get("X-Request-ID"))
	})

	t.Run("pages", func(t *testing.T) {
		w := do(h, http.MethodGet, "/", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, w.Body.String(), "/api/chat")

		w = do(h, http.MethodGet, "/admin", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "/api/admin/models")

		w = do(h, http.MethodGet, "/static/style.css", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("metrics", func(t *testing.T) {
		w := do(h, http.MethodGet, "/metrics", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "llmgate_requests_total")
	})

	t.Run("cors preflight", func(t *testing.T) {
		w := do(h, http.MethodOptions, "/api/chat", "")
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("models", func(t *testing.T) {
		w := do(h, http.MethodGet, "/api/models", "")
		require.Equal(t, http.StatusOK, w.Code)
		models := decode(t, w)["models"].([]any)
		require.Len(t, models, 3)
		first := models[0].(map[string]any)
		assert.Equal(t, "gemini", first["provider"])
		assert.Equal(t, "gemini-2.5-flash-lite", first["model"])
		assert.Equal(t, "Gemini 2.5 Flash Lite", first["display"])
	})
}

func TestChat(t *testing.T) {
	const body = `{"provider":"anthropic","model":"claude-3-5-haiku-20241022","message":"Hi"}`

	t.Run("through the gateway", func(t *testing.T) {
		f, h := newFixture(t)
		w := do(h, http.MethodPost, "/api/chat", body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		resp := decode(t, w)
		assert.Equal(t, "Hello there", resp["response"])
		assert.EqualValues(t, 10, resp["prompt_tokens"])
		assert.EqualValues(t, 5, resp["completion_tokens"])
		assert.EqualValues(t, 15, resp["total_tokens"])
		assert.NotContains(t, resp, "tool_calls")

		opts := f.chat.last()
		assert.Equal(t, "anthropic:claude-3-5-haiku-20241022", opts.Model)
		assert.Equal(t, "user-123", opts.User)
		assert.Empty(t, opts.Tools)
	})

	t.Run("records usage locally", func(t *testing.T) {
		f, h := newFixture(t)
		do(h, http.MethodPost, "/api/chat", body)

		s, err := f.ledger.Summary(context.Background(), "user-123")
		require.NoError(t, err)
		assert.Equal(t, 1, s.RequestCount)
		assert.Equal(t, 15, s.TotalTokens)
		assert.Greater(t, s.TotalCost, 0.0)
	})

	t.Run("history is forwarded", func(t *testing.T) {
		_, h := newFixture(t)
		w := do(h, http.MethodPost, "/api/chat",
			`{"provider":"gemini","model":"gemini-2.5-flash-lite","message":"and now?","history":[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("tools run the round trip", func(t *testing.T) {
		_, h := newFixture(t)
		w := do(h, http.MethodPost, "/api/chat",
			`{"provider":"anthropic","model":"claude-3-5-haiku-20241022","message":"Weather in Paris?","tools":true}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		resp := decode(t, w)
		assert.Equal(t, "Hello there", resp["response"])
		assert.EqualValues(t, 40, resp["total_tokens"])
		calls := resp["tool_calls"].([]any)
		require.Len(t, calls, 1)
		call := calls[0].(map[string]any)
		assert.Equal(t, "get_weather", call["name"])
		assert.Contains(t, call["result"], "Weather in Paris is sunny and 75F!")
	})

	t.Run("missing master key", func(t *testing.T) {
		_, h := newFixture(t, func(c *config.Config) { c.Gateway.MasterKey = "" })
		w := do(h, http.MethodPost, "/api/chat", body)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "GATEWAY_MASTER_KEY not configured", decode(t, w)["detail"])
	})

	t.Run("direct mode needs no master key", func(t *testing.T) {
		f, h := newFixture(t, func(c *config.Config) {
			c.Gateway.MasterKey = ""
			c.Server.ChatBackend = config.BackendDirect
		})
		w := do(h, http.MethodPost, "/api/chat", body)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, f.chat.last().User)
	})

	t.Run("invalid body", func(t *testing.T) {
		_, h := newFixture(t)
		w := do(h, http.MethodPost, "/api/chat", `{"provider":"anthropic"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("provider failure", func(t *testing.T) {
		f, h := newFixture(t)
		f.chat.err = errors.New("upstream exploded")
		w := do(h, http.MethodPost, "/api/chat", body)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		detail := decode(t, w)["detail"].(string)
		assert.True(t, strings.HasPrefix(detail, "Chat completion failed: "))
		assert.Contains(t, detail, "upstream exploded")
	})
}

func TestChatStream(t *testing.T) {
	t.Run("deltas then done", func(t *testing.T) {
		_, h := newFixture(t)
		w := do(h, http.MethodPost, "/api/chat/stream",
			`{"provider":"anthropic","model":"claude-3-5-haiku-20241022","message":"Hi"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

		events := parseSSE(t, w.Body.String())
		require.Len(t, events, 3)
		assert.Equal(t, "delta", events[0].Event)
		assert.Equal(t, "Hello", events[0].Data["text"])
		assert.Equal(t, " there", events[1].Data["text"])
		assert.Equal(t, "done", events[2].Event)
		usage := events[2].Data["usage"].(map[string]any)
		assert.EqualValues(t, 15, usage["total_tokens"])
		assert.Contains(t, events[2].Data, "elapsed_ms")
		assert.Contains(t, events[2].Data, "ttft_ms")
	})

	t.Run("tool events", func(t *testing.T) {
		_, h := newFixture(t)
		w := do(h, http.MethodPost, "/api/chat/stream",
			`{"provider":"anthropic","model":"claude-3-5-haiku-20241022","message":"Weather?","tools":true}`)
		events := parseSSE(t, w.Body.String())

		var names []string
		for _, ev := range events {
			names = append(names, ev.Event)
		}
		assert.Equal(t, []string{"tool_call", "tool_result", "delta", "delta", "done"}, names)
		assert.Equal(t, "get_weather", events[0].Data["name"])
		assert.Equal(t, false, events[1].Data["is_error"])
	})

	t.Run("error event", func(t *testing.T) {
		f, h := newFixture(t)
		f.chat.err = errors.New("nope")
		w := do(h, http.MethodPost, "/api/chat/stream",
			`{"provider":"anthropic","model":"claude-3-5-haiku-20241022","message":"Hi"}`)
		events := parseSSE(t, w.Body.String())
		require.Len(t, events, 1)
		assert.Equal(t, "error", events[0].Event)
		assert.Contains(t, events[0].Data["detail"], "nope")
	})

	t.Run("missing master key is a plain 500", func(t *testing.T) {
		_, h := newFixture(t, func(c *config.Config) { c.Gateway.MasterKey = "" })
		w := do(h, http.MethodPost, "/api/chat/stream",
			`{"provider":"anthropic","model":"claude-3-5-haiku-20241022","message":"Hi"}`)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "GATEWAY_MASTER_KEY not configured", decode(t, w)["detail"])
	})
}

func TestUsage(t *testing.T) {
	t.Run("summary", func(t *testing.T) {
		_, h := newFixture(t)
		w := do(h, http.MethodGet, "/api/usage", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{
			"total_prompt_tokens": 15,
			"total_completion_tokens": 25,
			"total_tokens": 40,
			"request_count": 2
		}`, w.Body.String())
	})

	t.Run("failure", func(t *testing.T) {
		f, h := newFixture(t)
		f.usage.err = errors.New("connection refused")
		w := do(h, http.MethodGet, "/api/usage", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Failed to fetch usage: connection refused", decode(t, w)["detail"])
	})

	t.Run("missing master key", func(t *testing.T) {
		_, h := newFixture(t, func(c *config.Config) { c.Gateway.MasterKey = "" })
		w := do(h, http.MethodGet, "/api/usage", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "GATEWAY_MASTER_KEY not configured", decode(t, w)["detail"])
	})

	t.Run("selected users", func(t *testing.T) {
		_, h := newFixture(t)
		w := do(h, http.MethodGet, "/api/usage/users?ids=bob,%20", "")
		require.Equal(t, http.StatusOK, w.Code)

		var agg gateway.Aggregate
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &agg))
		require.Len(t, agg.Users, 1)
		assert.Equal(t, "bob", agg.Users[0].UserID)
		assert.Equal(t, 3, agg.Total.TotalTokens)
	})

	t.Run("all users", func(t *testing.T) {
		_, h := newFixture(t)
		w := do(h, http.MethodGet, "/api/usage/users", "")
		require.Equal(t, http.StatusOK, w.Code)

		var agg gateway.Aggregate
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &agg))
		assert.Len(t, agg.Users, 2)
		assert.Equal(t, 43, agg.Total.TotalTokens)
		assert.Equal(t, 3, agg.Total.RequestCount)
	})

	t.Run("local ledger", func(t *testing.T) {
		_, h := newFixture(t)
		do(h, http.MethodPost, "/api/chat", `{"provider":"openai","model":"gpt-4o","message":"Hi"}`)
		do(h, http.MethodPost, "/api/chat", `{"provider":"openai","model":"gpt-4o","message":"Again"}`)

		w := do(h, http.MethodGet, "/api/usage/local", "")
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode(t, w)
		assert.Equal(t, "user-123", resp["user_id"])
		assert.EqualValues(t, 2, resp["summary"].(map[string]any)["request_count"])
		assert.Len(t, resp["recent"], 2)
		assert.Contains(t, resp["by_model"], "openai:gpt-4o")

		w = do(h, http.MethodGet, "/api/usage/local?user=nobody", "")
		assert.EqualValues(t, 0, decode(t, w)["summary"].(map[string]any)["request_count"])
	})
}

func TestAdmin(t *testing.T) {
	t.Run("auth", func(t *testing.T) {
		_, h := newFixture(t, func(c *config.Config) { c.Server.AdminKey = "s3cret" })

		assert.Equal(t, http.StatusUnauthorized, do(h, http.MethodGet, "/api/admin/models", "").Code)
		assert.Equal(t, http.StatusUnauthorized,
			do(h, http.MethodGet, "/api/admin/models", "", "Authorization", "Bearer wrong").Code)
		assert.Equal(t, http.StatusUnauthorized,
			do(h, http.MethodGet, "/api/admin/models", "", "Authorization", "s3cret").Code)
		assert.Equal(t, http.StatusOK,
			do(h, http.MethodGet, "/api/admin/models", "", "Authorization", "Bearer s3cret").Code)
		// the public list stays open
		assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/api/models", "").Code)
	})

	t.Run("crud", func(t *testing.T) {
		f, h := newFixture(t)

		w := do(h, http.MethodPost, "/api/admin/models", `{"provider":"mistral","model":"mistral-large-latest","display":"Mistral Large","tier":"pro"}`)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(t, "pro", decode(t, w)["tier"])

		w = do(h, http.MethodPost, "/api/admin/models", `{"provider":"mistral","model":"mistral-large-latest"}`)
		assert.Equal(t, http.StatusConflict, w.Code)

		w = do(h, http.MethodPost, "/api/admin/models", `{"provider":"","model":"x"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = do(h, http.MethodPut, "/api/admin/models/mistral/mistral-large-latest", `{"display":"Mistral L"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		e, err := f.store.Get(context.Background(), "mistral", "mistral-large-latest")
		require.NoError(t, err)
		assert.Equal(t, "Mistral L", e.Display)

		w = do(h, http.MethodPut, "/api/admin/models/mistral/nope", `{"display":"x"}`)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = do(h, http.MethodDelete, "/api/admin/models/mistral/mistral-large-latest", "")
		assert.Equal(t, http.StatusNoContent, w.Code)
		w = do(h, http.MethodDelete, "/api/admin/models/mistral/mistral-large-latest", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("model ids with slashes", func(t *testing.T) {
		f, h := newFixture(t)

		w := do(h, http.MethodPost, "/api/admin/models", `{"provider":"ollama","model":"library/llama3.2:3b"}`)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		w = do(h, http.MethodPut, "/api/admin/models/ollama/library/llama3.2:3b", `{"display":"Llama"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		e, err := f.store.Get(context.Background(), "ollama", "library/llama3.2:3b")
		require.NoError(t, err)
		assert.Equal(t, "Llama", e.Display)

		// the admin page escapes the id
		w = do(h, http.MethodDelete, "/api/admin/models/ollama/library%2Fllama3.2:3b", "")
		assert.Equal(t, http.StatusNoContent, w.Code)
		_, err = f.store.Get(context.Background(), "ollama", "library/llama3.2:3b")
		assert.ErrorIs(t, err, catalog.ErrNotFound)
	})

	t.Run("providers", func(t *testing.T) {
		_, h := newFixture(t)
		w := do(h, http.MethodGet, "/api/admin/providers", "")
		assert.JSONEq(t, `{"providers":["anthropic","ollama"]}`, w.Body.String())
	})

	t.Run("discover", func(t *testing.T) {
		f, h := newFixture(t)

		w := do(h, http.MethodGet, "/api/admin/discover/ollama", "")
		require.Equal(t, http.StatusOK, w.Code)
		models := decode(t, w)["models"].([]any)
		require.Len(t, models, 1)
		assert.Equal(t, "llama3.2:latest", models[0].(map[string]any)["model"])

		w = do(h, http.MethodGet, "/api/admin/discover/anthropic", "")
		assert.JSONEq(t, `{"models":[]}`, w.Body.String())

		w = do(h, http.MethodGet, "/api/admin/discover/cohere", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Unsupported provider: cohere. Supported: [anthropic, ollama]", decode(t, w)["detail"])

		f.disc.err = errors.New("Cannot connect to Ollama")
		w = do(h, http.MethodGet, "/api/admin/discover/ollama", "")
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("import", func(t *testing.T) {
		f, h := newFixture(t)

		w := do(h, http.MethodPost, "/api/admin/discover/ollama/import", "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.JSONEq(t, `{"added":1}`, w.Body.String())

		w = do(h, http.MethodPost, "/api/admin/discover/ollama/import", "")
		assert.JSONEq(t, `{"added":0}`, w.Body.String())

		entries, err := f.store.List(context.Background())
		require.NoError(t, err)
		assert.Len(t, entries, 4)
	})
}
