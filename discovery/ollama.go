package discovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/tidwall/gjson"
)

// DefaultOllamaURL is where a local Ollama server listens.
const DefaultOllamaURL = "http://localhost:11434"

// Ollama lists the models pulled into an Ollama server via GET /api/tags.
type Ollama struct {
	BaseURL string
	HTTP    *http.Client
}

// NewOllama creates an Ollama discoverer. baseURL may be empty, and a
// trailing /v1 (the OpenAI-compatible root) is dropped.
func NewOllama(baseURL string, timeout time.Duration) *Ollama {
	base := strings.TrimRight(baseURL, "/")
	base = strings.TrimSuffix(base, "/v1")
	if base == "" {
		base = DefaultOllamaURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Ollama{BaseURL: base, HTTP: &http.Client{Timeout: timeout}}
}

// Discover fetches and converts the server's model tags.
func (o *Ollama) Discover(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.BaseURL+"/api/tags", nil)
	if err != nil {
		return nil, o.fail(err)
	}
	resp, err := o.HTTP.Do(req)
	if err != nil {
		return nil, o.classify(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, o.classify(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, o.fail(fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}
	if !gjson.ValidBytes(body) {
		return nil, o.fail(errors.New("invalid JSON response"))
	}
	return parseTags(body), nil
}

func parseTags(body []byte) []ModelInfo {
	var models []ModelInfo
	gjson.GetBytes(body, "models").ForEach(func(_, m gjson.Result) bool {
		name := m.Get("name").String()
		if name == "" {
			return true
		}
		details := m.Get("details")
		paramSize := details.Get("parameter_size").String()

		display := "Ollama - " + name
		if paramSize != "" {
			display = fmt.Sprintf("Ollama - %s (%s)", name, paramSize)
		}

		models = append(models, ModelInfo{
			Model:    name,
			Provider: "ollama",
			Display:  display,
			Metadata: map[string]any{
				"tools_support":  false,
				"size":           m.Get("size").Int(),
				"family":         details.Get("family").String(),
				"parameter_size": paramSize,
				"quantization":   details.Get("quantization_level").String(),
			},
		})
		return true
	})
	if models == nil {
		models = []ModelInfo{}
	}
	return models
}

func (o *Ollama) classify(err error) error {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return &Error{Provider: "ollama", Message: "Ollama is not running or not accessible at " + o.BaseURL, Err: err}
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{Provider: "ollama", Message: "Timeout connecting to Ollama at " + o.BaseURL, Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return &Error{Provider: "ollama", Message: "Ollama is not running or not accessible at " + o.BaseURL, Err: err}
	}
	return o.fail(err)
}

func (o *Ollama) fail(err error) error {
	return &Error{Provider: "ollama", Message: "Failed to discover Ollama models: " + err.Error(), Err: err}
}
