// Package google provides a Gemini client implementing [llmgate.ChatProvider]
// on the Gemini API backend of google.golang.org/genai.
package google
