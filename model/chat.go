package model

import ai "github.com/spetersoncode/llmgate"

// Capabilities lists the features a model is known to support.
type Capabilities struct {
	Tools     bool `json:"tools"`
	Streaming bool `json:"streaming"`
	Thinking  bool `json:"thinking"`
}

// ChatModel describes a chat model the apps know about.
type ChatModel struct {
	ID           string       `json:"id"`
	Provider     ai.Provider  `json:"provider"`
	Display      string       `json:"display"`
	Pricing      ChatPricing  `json:"pricing"`
	Capabilities Capabilities `json:"capabilities"`
	Notes        string       `json:"notes,omitempty"`
}

// String returns the API identifier for this model.
func (m ChatModel) String() string { return m.ID }

// Ref returns the provider-qualified reference, e.g. openai:gpt-4o.
func (m ChatModel) Ref() ai.ModelRef {
	return ai.ModelRef{Provider: m.Provider, Name: m.ID}
}

// Cost estimates the USD cost of usage on this model.
func (m ChatModel) Cost(u ai.Usage) float64 { return m.Pricing.Cost(u) }

var allTools = Capabilities{Tools: true, Streaming: true}

// OpenAI models.
// Pricing last verified: December 2024.
var (
	GPT4o     = ChatModel{ID: "gpt-4o", Provider: ai.ProviderOpenAI, Display: "GPT-4o", Pricing: ChatPricing{InputPerMillion: 2.50, OutputPerMillion: 10.00}, Capabilities: allTools, Notes: "Fast, capable general-purpose model"}
	GPT4oMini = ChatModel{ID: "gpt-4o-mini", Provider: ai.ProviderOpenAI, Display: "GPT-4o mini", Pricing: ChatPricing{InputPerMillion: 0.15, OutputPerMillion: 0.60}, Capabilities: allTools, Notes: "Smaller, faster, cheaper version"}
)

// Anthropic models.
var (
	Claude35Sonnet = ChatModel{ID: "claude-3-5-sonnet-20241022", Provider: ai.ProviderAnthropic, Display: "Claude 3.5 Sonnet", Pricing: ChatPricing{InputPerMillion: 3.00, OutputPerMillion: 15.00}, Capabilities: allTools, Notes: "Excellent reasoning and code generation"}
	Claude35Haiku  = ChatModel{ID: "claude-3-5-haiku-20241022", Provider: ai.ProviderAnthropic, Display: "Claude 3.5 Haiku", Pricing: ChatPricing{InputPerMillion: 0.80, OutputPerMillion: 4.00}, Capabilities: allTools, Notes: "Fast and efficient"}
)

// Mistral models.
var (
	MistralLarge = ChatModel{ID: "mistral-large-latest", Provider: ai.ProviderMistral, Display: "Mistral Large", Pricing: ChatPricing{InputPerMillion: 2.00, OutputPerMillion: 6.00}, Capabilities: allTools, Notes: "Strong European alternative"}
)

// Google Gemini models. Experimental models are free of charge.
var (
	Gemini20FlashExp  = ChatModel{ID: "gemini-2.0-flash-exp", Provider: ai.ProviderGemini, Display: "Gemini 2.0 Flash (experimental)", Capabilities: Capabilities{Tools: true, Streaming: true, Thinking: true}, Notes: "Fast multimodal model with thinking"}
	Gemini25FlashLite = ChatModel{ID: "gemini-2.5-flash-lite", Provider: ai.ProviderGemini, Display: "Gemini 2.5 Flash Lite", Pricing: ChatPricing{InputPerMillion: 0.10, OutputPerMillion: 0.40}, Capabilities: allTools, Notes: "Cheapest Gemini with tool support"}
)

var known = []ChatModel{
	GPT4o, GPT4oMini,
	Claude35Sonnet, Claude35Haiku,
	MistralLarge,
	Gemini20FlashExp, Gemini25FlashLite,
}

// All returns every known model.
func All() []ChatModel {
	return append([]ChatModel(nil), known...)
}

// Lookup finds a model by ID. A provider-qualified reference such as
// "anthropic:claude-3-5-haiku-20241022" is accepted too.
func Lookup(id string) (ChatModel, bool) {
	if ref, err := ai.ParseModel(id); err == nil {
		id = ref.Name
	}
	for _, m := range known {
		if m.ID == id {
			return m, true
		}
	}
	return ChatModel{}, false
}

// CLIModels returns the models offered by the interactive chat, in menu order.
func CLIModels() []ChatModel {
	return []ChatModel{GPT4o, GPT4oMini, Claude35Sonnet, Claude35Haiku, MistralLarge, Gemini20FlashExp}
}

// CompareModels returns the models of the basic comparison.
func CompareModels() []ChatModel {
	return []ChatModel{GPT4oMini, Claude35Haiku, MistralLarge}
}

// StreamModels returns the models of the streaming comparison.
func StreamModels() []ChatModel {
	return []ChatModel{GPT4oMini, Claude35Haiku}
}

// ToolModels returns the models of the tool-calling example.
func ToolModels() []ChatModel {
	return []ChatModel{GPT4oMini, Claude35Haiku}
}

// MatrixModels returns the models probed by the capability matrix.
func MatrixModels() []ChatModel {
	return []ChatModel{GPT4oMini, GPT4o, Claude35Haiku, Claude35Sonnet, MistralLarge, Gemini20FlashExp}
}

// ProviderLabel returns the display name of a provider.
func ProviderLabel(p ai.Provider) string {
	switch p {
	case ai.ProviderOpenAI:
		return "OpenAI"
	case ai.ProviderAnthropic:
		return "Anthropic"
	case ai.ProviderGemini:
		return "Google"
	case ai.ProviderMistral:
		return "Mistral"
	case ai.ProviderOllama:
		return "Ollama"
	case ai.ProviderGateway:
		return "Gateway"
	}
	return string(p)
}
