package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	ai "github.com/spetersoncode/llmgate"
)

var (
	// ErrNotFound is returned when no entry has the requested key.
	ErrNotFound = errors.New("model not found")

	// ErrExists is returned when adding an entry whose key is taken.
	ErrExists = errors.New("model already exists")

	// ErrInvalidEntry is returned for entries that fail validation.
	ErrInvalidEntry = errors.New("invalid model entry")
)

// Entry is one selectable model. Metadata is flattened into the JSON object
// next to provider, model and display.
type Entry struct {
	Provider string
	Model    string
	Display  string
	Metadata map[string]any
}

// Key identifies an entry.
type Key struct {
	Provider string
	Model    string
}

func (k Key) String() string { return k.Provider + "/" + k.Model }

// Key returns the entry's (provider, model) key.
func (e Entry) Key() Key { return Key{Provider: e.Provider, Model: e.Model} }

// Ref returns the entry as a gateway model reference.
func (e Entry) Ref() ai.ModelRef {
	return ai.ModelRef{Provider: ai.Provider(e.Provider), Name: e.Model}
}

var reserved = []string{"provider", "model", "display"}

func (e Entry) MarshalJSON() ([]byte, error) {
	fields := lo.Assign(
		lo.OmitByKeys(e.Metadata, reserved),
		map[string]any{
			"provider": e.Provider,
			"model":    e.Model,
			"display":  e.Display,
		},
	)
	return json.Marshal(fields)
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	e.Provider, _ = fields["provider"].(string)
	e.Model, _ = fields["model"].(string)
	e.Display, _ = fields["display"].(string)
	e.Metadata = lo.OmitByKeys(fields, reserved)
	if len(e.Metadata) == 0 {
		e.Metadata = nil
	}
	return nil
}

// Normalize validates e and returns it with a canonical provider name and a
// default display of provider/model.
func Normalize(e Entry) (Entry, error) {
	e.Provider = strings.TrimSpace(e.Provider)
	e.Model = strings.TrimSpace(e.Model)
	if e.Provider == "" {
		return Entry{}, fmt.Errorf("%w: provider is required", ErrInvalidEntry)
	}
	if e.Model == "" {
		return Entry{}, fmt.Errorf("%w: model is required", ErrInvalidEntry)
	}
	p, err := ai.ParseProvider(e.Provider)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %w", ErrInvalidEntry, err)
	}
	e.Provider = string(p)
	if strings.TrimSpace(e.Display) == "" {
		e.Display = e.Provider + "/" + e.Model
	}
	return e, nil
}

// DefaultWebModels returns the models the web app offers out of the box.
func DefaultWebModels() []Entry {
	return []Entry{
		{Provider: "gemini", Model: "gemini-2.5-flash-lite", Display: "Gemini 2.5 Flash Lite"},
		{Provider: "anthropic", Model: "claude-3-5-haiku-20241022", Display: "Claude 3.5 Haiku"},
		{Provider: "anthropic", Model: "claude-3-5-sonnet-20241022", Display: "Claude 3.5 Sonnet"},
	}
}
