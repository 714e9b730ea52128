package anthropic

import (
	"errors"

	"github.com/anthropics/anthropic-sdk-go"
	ai "github.com/spetersoncode/llmgate"
)

func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	if apiErr.Response != nil {
		return ai.NewStatusError(err.Error(), apiErr.StatusCode, ai.ParseRetryAfter(apiErr.Response.Header), err)
	}
	return ai.NewStatusError(err.Error(), apiErr.StatusCode, 0, err)
}
