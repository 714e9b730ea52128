package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	ai "github.com/spetersoncode/llmgate"
	"github.com/spetersoncode/llmgate/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingProvider records the options of every call.
type recordingProvider struct {
	mu      sync.Mutex
	calls   []*ai.Options
	errs    []error
	content string
}

func (p *recordingProvider) record(opts []ai.Option) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, ai.ApplyOptions(opts...))
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		return err
	}
	return nil
}

func (p *recordingProvider) Chat(ctx context.Context, msgs []ai.Message, opts ...ai.Option) (*ai.Response, error) {
	if err := p.record(opts); err != nil {
		return nil, err
	}
	return &ai.Response{Content: p.content, Usage: ai.NewUsage(3, 4, 0)}, nil
}

func (p *recordingProvider) ChatStream(ctx context.Context, msgs []ai.Message, opts ...ai.Option) (<-chan ai.StreamEvent, error) {
	if err := p.record(opts); err != nil {
		return nil, err
	}
	ch := make(chan ai.StreamEvent, 3)
	ch <- ai.StreamEvent{Delta: "he"}
	ch <- ai.StreamEvent{Delta: "llo"}
	ch <- ai.StreamEvent{Done: true, Response: &ai.Response{Content: "hello", Usage: ai.NewUsage(1, 2, 0)}}
	close(ch)
	return ch, nil
}

func (p *recordingProvider) last() *ai.Options {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[len(p.calls)-1]
}

func fastRetry() *retry.Config {
	return &retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
}

func TestErrors(t *testing.T) {
	t.Run("missing key with model", func(t *testing.T) {
		err := &ErrMissingAPIKey{Provider: "anthropic", Model: "claude-3-5-haiku-20241022"}
		assert.Equal(t, `no API key configured for anthropic (required by model "claude-3-5-haiku-20241022")`, err.Error())
	})

	t.Run("missing key without model", func(t *testing.T) {
		assert.Equal(t, "no API key configured for openai", (&ErrMissingAPIKey{Provider: "openai"}).Error())
	})

	t.Run("no model", func(t *testing.T) {
		assert.Contains(t, (&ErrNoModel{Operation: "chat"}).Error(), "no model specified for chat")
	})
}

func TestChatRouting(t *testing.T) {
	ctx := context.Background()

	t.Run("forwards bare model name", func(t *testing.T) {
		p := &recordingProvider{content: "hi"}
		c := New(Config{}, WithProvider(ai.ProviderAnthropic, p))

		resp, err := c.Chat(ctx, []ai.Message{ai.UserMessage("hi")}, ai.WithModel("anthropic:claude-3-5-haiku-20241022"))
		require.NoError(t, err)
		assert.Equal(t, "hi", resp.Content)
		assert.Equal(t, "claude-3-5-haiku-20241022", p.last().Model)
	})

	t.Run("infers provider from bare name", func(t *testing.T) {
		p := &recordingProvider{}
		c := New(Config{}, WithProvider(ai.ProviderOpenAI, p))

		_, err := c.Chat(ctx, nil, ai.WithModel("gpt-4o-mini"))
		require.NoError(t, err)
		assert.Equal(t, "gpt-4o-mini", p.last().Model)
	})

	t.Run("uses default model", func(t *testing.T) {
		p := &recordingProvider{}
		c := New(Config{DefaultModel: "mistral/mistral-large-latest"}, WithProvider(ai.ProviderMistral, p))

		_, err := c.Chat(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, "mistral-large-latest", p.last().Model)
	})

	t.Run("gateway receives provider:model", func(t *testing.T) {
		p := &recordingProvider{}
		c := New(Config{}, ViaGateway(), WithProvider(ai.ProviderGateway, p))

		_, err := c.Chat(ctx, nil, ai.WithModel("gemini:gemini-2.5-flash-lite"), ai.WithUser("user-123"))
		require.NoError(t, err)
		assert.Equal(t, "gemini:gemini-2.5-flash-lite", p.last().Model)
		assert.Equal(t, "user-123", p.last().User)
	})

	t.Run("explicit gateway prefix", func(t *testing.T) {
		p := &recordingProvider{}
		c := New(Config{}, WithProvider(ai.ProviderGateway, p))

		_, err := c.Chat(ctx, nil, ai.WithModel("gateway:openai:gpt-4o"))
		require.NoError(t, err)
		assert.Equal(t, "openai:gpt-4o", p.last().Model)
	})

	t.Run("default options are overridden per request", func(t *testing.T) {
		p := &recordingProvider{}
		c := New(Config{}, WithProvider(ai.ProviderOpenAI, p), WithDefaultChatOptions(ai.WithMaxTokens(10)))

		_, err := c.Chat(ctx, nil, ai.WithModel("gpt-4o"), ai.WithMaxTokens(99))
		require.NoError(t, err)
		assert.Equal(t, 99, p.last().MaxTokens)
	})
}

func TestChatErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("no model", func(t *testing.T) {
		_, err := New(Config{}).Chat(ctx, nil)
		var nm *ErrNoModel
		assert.ErrorAs(t, err, &nm)
	})

	t.Run("missing key names the model", func(t *testing.T) {
		_, err := New(Config{}).Chat(ctx, nil, ai.WithModel("claude-3-5-haiku-20241022"))
		var mk *ErrMissingAPIKey
		require.ErrorAs(t, err, &mk)
		assert.Equal(t, "anthropic", mk.Provider)
		assert.Equal(t, "claude-3-5-haiku-20241022", mk.Model)
	})

	t.Run("gateway without master key", func(t *testing.T) {
		_, err := New(Config{Endpoints: Endpoints{GatewayURL: "http://localhost:8000"}}, ViaGateway()).
			Chat(ctx, nil, ai.WithModel("openai:gpt-4o"))
		var mk *ErrMissingAPIKey
		require.ErrorAs(t, err, &mk)
		assert.Equal(t, "gateway", mk.Provider)
	})

	t.Run("unknown model", func(t *testing.T) {
		_, err := New(Config{}).Chat(ctx, nil, ai.WithModel("llama3"))
		assert.ErrorContains(t, err, "cannot infer provider")
	})

	t.Run("retries transient errors", func(t *testing.T) {
		p := &recordingProvider{errs: []error{ai.NewTransientError("busy", 503, nil)}}
		c := New(Config{RetryConfig: fastRetry()}, WithProvider(ai.ProviderOpenAI, p))

		_, err := c.Chat(ctx, nil, ai.WithModel("gpt-4o"))
		require.NoError(t, err)
		assert.Len(t, p.calls, 2)
	})

	t.Run("does not retry permanent errors", func(t *testing.T) {
		perm := ai.NewPermanentError("bad key", 401, nil)
		p := &recordingProvider{errs: []error{perm}}
		c := New(Config{RetryConfig: fastRetry()}, WithProvider(ai.ProviderOpenAI, p))

		_, err := c.Chat(ctx, nil, ai.WithModel("gpt-4o"))
		assert.True(t, errors.Is(err, perm))
		assert.Len(t, p.calls, 1)
	})
}

func TestChatEvents(t *testing.T) {
	events := make(chan Event, 32)
	p := &recordingProvider{errs: []error{ai.NewTransientError("busy", 503, nil)}}
	c := New(Config{RetryConfig: fastRetry(), Events: events}, WithProvider(ai.ProviderOpenAI, p))

	_, err := c.Chat(context.Background(), nil, ai.WithModel("gpt-4o"))
	require.NoError(t, err)
	close(events)

	var types []EventType
	var complete Event
	for ev := range events {
		types = append(types, ev.Type)
		if ev.Type == EventRequestComplete {
			complete = ev
		}
	}
	assert.Equal(t, EventRequestStart, types[0])
	assert.Contains(t, types, EventRetry)
	assert.Equal(t, EventRequestComplete, types[len(types)-1])
	require.NotNil(t, complete.Usage)
	assert.Equal(t, 7, complete.Usage.TotalTokens)
	assert.Equal(t, ai.ProviderOpenAI, complete.Provider)
}

func TestChatStream(t *testing.T) {
	events := make(chan Event, 16)
	p := &recordingProvider{}
	c := New(Config{Events: events}, WithProvider(ai.ProviderAnthropic, p))

	ch, err := c.ChatStream(context.Background(), nil, ai.WithModel("claude-3-5-haiku-20241022"))
	require.NoError(t, err)

	resp, err := ai.CollectStream(ch, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)

	close(events)
	var last Event
	for ev := range events {
		last = ev
	}
	assert.Equal(t, EventRequestComplete, last.Type)
	assert.Equal(t, "chat_stream", last.Operation)
	assert.Equal(t, 3, last.Usage.TotalTokens)
}

func TestKeyStatus(t *testing.T) {
	c := New(Config{APIKeys: APIKeys{OpenAI: "sk", Google: "g"}})
	status := c.KeyStatus()
	require.Len(t, status, 4)
	assert.Equal(t, "OpenAI", status[0].Label)
	assert.True(t, status[0].Configured)
	assert.False(t, status[1].Configured)
	assert.False(t, status[2].Configured)
	assert.Equal(t, "Google", status[3].Label)
	assert.True(t, status[3].Configured)
}

func TestLazyInit(t *testing.T) {
	c := New(Config{APIKeys: APIKeys{OpenAI: "sk-test"}})

	var wg sync.WaitGroup
	results := make([]ai.ChatProvider, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cp, err := c.provider(context.Background(), ai.ProviderOpenAI)
			assert.NoError(t, err)
			results[i] = cp
		}(i)
	}
	wg.Wait()

	for _, cp := range results[1:] {
		assert.Same(t, results[0], cp)
	}

	ollama, err := c.provider(context.Background(), ai.ProviderOllama)
	require.NoError(t, err)
	assert.NotNil(t, ollama)
}

func TestGatewayAPIBase(t *testing.T) {
	assert.Equal(t, "http://localhost:8000/v1", GatewayAPIBase("http://localhost:8000"))
	assert.Equal(t, "http://gw/v1", GatewayAPIBase("http://gw/"))
}

func TestChatJSON(t *testing.T) {
	p := &recordingProvider{content: "```json\n{\"status\":\"ok\"}\n```"}
	c := New(Config{}, WithProvider(ai.ProviderOpenAI, p))

	out, _, err := ChatJSON[map[string]string](context.Background(), c, nil, ai.WithModel("gpt-4o"))
	require.NoError(t, err)
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, ai.ResponseFormatJSON, p.last().ResponseFormat)
}
