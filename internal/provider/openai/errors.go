package openai

import (
	"errors"

	"github.com/openai/openai-go"
	ai "github.com/spetersoncode/llmgate"
)

// wrapError categorizes an OpenAI SDK error by status code and Retry-After.
// Non-API errors (network failures) are returned unchanged for the retry heuristics.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	if apiErr.Response != nil {
		return ai.NewStatusError(err.Error(), apiErr.StatusCode, ai.ParseRetryAfter(apiErr.Response.Header), err)
	}
	return ai.NewStatusError(err.Error(), apiErr.StatusCode, 0, err)
}
