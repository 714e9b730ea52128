package openai

import (
	"context"
	"time"
)

// RemoteModel is a model advertised by an OpenAI-compatible /models endpoint.
type RemoteModel struct {
	ID      string
	OwnedBy string
	Created time.Time
}

// ListModels pages through the endpoint's model list.
func (c *Client) ListModels(ctx context.Context) ([]RemoteModel, error) {
	var models []RemoteModel
	iter := c.client.Models.ListAutoPaging(ctx)
	for iter.Next() {
		m := iter.Current()
		rm := RemoteModel{ID: m.ID, OwnedBy: m.OwnedBy}
		if m.Created > 0 {
			rm.Created = time.Unix(m.Created, 0).UTC()
		}
		models = append(models, rm)
	}
	if err := iter.Err(); err != nil {
		return nil, wrapError(err)
	}
	return models, nil
}
