package model

import ai "github.com/spetersoncode/llmgate"

// ChatPricing contains pricing per million tokens (USD) for chat models.
type ChatPricing struct {
	InputPerMillion  float64 `json:"input_per_million"`
	OutputPerMillion float64 `json:"output_per_million"`
}

// IsFree reports whether the model has no listed price.
func (p ChatPricing) IsFree() bool {
	return p.InputPerMillion == 0 && p.OutputPerMillion == 0
}

// Cost calculates the cost in USD for the given token usage.
func (p ChatPricing) Cost(u ai.Usage) float64 {
	return float64(u.PromptTokens)/1_000_000*p.InputPerMillion +
		float64(u.CompletionTokens)/1_000_000*p.OutputPerMillion
}

// EstimateCost prices usage for a model ID. Unknown models cost 0.
func EstimateCost(id string, u ai.Usage) float64 {
	m, ok := Lookup(id)
	if !ok {
		return 0
	}
	return m.Cost(u)
}
