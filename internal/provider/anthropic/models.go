package anthropic

import (
	"context"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
)

// RemoteModel is a model listed by the Anthropic Models API.
type RemoteModel struct {
	ID          string
	DisplayName string
	CreatedAt   time.Time
}

// ListModels returns every model available to the API key.
func (c *Client) ListModels(ctx context.Context) ([]RemoteModel, error) {
	var models []RemoteModel
	iter := c.client.Models.ListAutoPaging(ctx, anthropic.ModelListParams{})
	for iter.Next() {
		m := iter.Current()
		models = append(models, RemoteModel{
			ID:          m.ID,
			DisplayName: m.DisplayName,
			CreatedAt:   m.CreatedAt,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, wrapError(err)
	}
	return models, nil
}
