package google

import (
	"encoding/json"

	ai "github.com/spetersoncode/llmgate"
	"google.golang.org/genai"
)

const (
	roleUser  = "user"
	roleModel = "model"
)

// convertMessages maps the conversation onto Gemini contents.
// System messages are returned separately as the system instruction.
func convertMessages(messages []ai.Message) ([]*genai.Content, *genai.Content) {
	var contents []*genai.Content
	var system *genai.Content

	for _, msg := range messages {
		if msg.Role == ai.RoleSystem {
			if msg.Content == "" {
				continue
			}
			if system == nil {
				system = &genai.Content{Role: roleUser}
			}
			system.Parts = append(system.Parts, &genai.Part{Text: msg.Content})
			continue
		}

		role := roleUser
		if msg.Role == ai.RoleAssistant {
			role = roleModel
		}

		var parts []*genai.Part
		if msg.Content != "" {
			parts = append(parts, &genai.Part{Text: msg.Content})
		}
		for _, tc := range msg.ToolCalls {
			args := map[string]any{}
			if tc.Arguments != "" {
				_ = json.Unmarshal([]byte(tc.Arguments), &args)
			}
			parts = append(parts, &genai.Part{
				FunctionCall: &genai.FunctionCall{ID: tc.ID, Name: tc.Name, Args: args},
			})
		}
		for _, tr := range msg.ToolResults {
			parts = append(parts, &genai.Part{FunctionResponse: functionResponse(tr)})
		}

		if len(parts) > 0 {
			contents = append(contents, &genai.Content{Role: role, Parts: parts})
		}
	}

	return contents, system
}

// functionResponse matches the result to its call by function name.
// Non-object content is wrapped under "result", errors under "error".
func functionResponse(tr ai.ToolResult) *genai.FunctionResponse {
	name := tr.Name
	if name == "" {
		name = tr.ToolCallID
	}

	var response map[string]any
	if err := json.Unmarshal([]byte(tr.Content), &response); err != nil || response == nil {
		key := "result"
		if tr.IsError {
			key = "error"
		}
		response = map[string]any{key: tr.Content}
	}
	return &genai.FunctionResponse{ID: tr.ToolCallID, Name: name, Response: response}
}
