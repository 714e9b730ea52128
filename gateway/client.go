package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// DefaultBaseURL is where a locally run gateway listens.
const DefaultBaseURL = "http://localhost:8000"

// KeyHeader carries the master key on every gateway request.
const KeyHeader = "X-AnyLLM-Key"

// APIError is a non-2xx gateway response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway returned %d %s: %s", e.Status, http.StatusText(e.Status), e.Body)
}

// StatusCode returns the HTTP status of the response.
func (e *APIError) StatusCode() int { return e.Status }

// Client talks to the gateway's management API.
type Client struct {
	BaseURL   string
	MasterKey string
	HTTP      *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.HTTP = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.HTTP = &http.Client{Timeout: d}
	}
}

// New creates a Client. An empty baseURL uses DefaultBaseURL.
func New(baseURL, masterKey string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		MasterKey: masterKey,
		HTTP:      &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UserUsage returns the usage records the gateway logged for a user.
func (c *Client) UserUsage(ctx context.Context, userID string) ([]UsageRecord, error) {
	body, err := c.get(ctx, "/v1/users/"+url.PathEscape(userID)+"/usage")
	if err != nil {
		return nil, err
	}
	return parseUsage(body)
}

// ListUsers returns the IDs of every user the gateway knows.
func (c *Client) ListUsers(ctx context.Context) ([]string, error) {
	body, err := c.get(ctx, "/v1/users")
	if err != nil {
		return nil, err
	}
	items, err := listItems(body, "users")
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		id := item.String()
		if item.IsObject() {
			id = firstString(item, "user_id", "id")
		}
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set(KeyHeader, "Bearer "+c.MasterKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

// listItems returns the elements of a top-level array, or of the array under
// one of the usual envelope keys.
func listItems(body []byte, envelope string) ([]gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("gateway returned invalid JSON")
	}
	root := gjson.ParseBytes(body)
	if root.IsArray() {
		return root.Array(), nil
	}
	for _, key := range []string{envelope, "data", "items"} {
		if v := root.Get(key); v.IsArray() {
			return v.Array(), nil
		}
	}
	return nil, fmt.Errorf("gateway returned %s, want a list", root.Type)
}

func firstString(r gjson.Result, keys ...string) string {
	for _, k := range keys {
		if v := r.Get(k); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}
