// Package openai adapts the OpenAI Go SDK to the llmgate chat interface.
//
// Mistral, Ollama and the any-llm gateway all speak the OpenAI chat completions
// protocol, so they are served by this package with a different base URL.
package openai
