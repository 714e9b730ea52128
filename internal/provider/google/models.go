package google

import (
	"context"
	"strings"
)

// RemoteModel is a model listed by the Gemini Models API.
type RemoteModel struct {
	ID               string
	DisplayName      string
	Description      string
	InputTokenLimit  int
	OutputTokenLimit int
	Actions          []string
}

// ListModels returns the models the API key can use.
// Names are returned without the "models/" prefix.
func (c *Client) ListModels(ctx context.Context) ([]RemoteModel, error) {
	var models []RemoteModel
	for m, err := range c.client.Models.All(ctx) {
		if err != nil {
			return nil, wrapError(err)
		}
		models = append(models, RemoteModel{
			ID:               strings.TrimPrefix(m.Name, "models/"),
			DisplayName:      m.DisplayName,
			Description:      m.Description,
			InputTokenLimit:  int(m.InputTokenLimit),
			OutputTokenLimit: int(m.OutputTokenLimit),
			Actions:          m.SupportedActions,
		})
	}
	return models, nil
}
