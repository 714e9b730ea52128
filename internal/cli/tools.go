package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	ai "github.com/spetersoncode/llmgate"
	"github.com/spetersoncode/llmgate/agent"
	"github.com/spetersoncode/llmgate/model"
	"github.com/spetersoncode/llmgate/tool"
	"github.com/spetersoncode/llmgate/toolbox"
)

const toolsPrompt = "What's the weather like in San Francisco? Should I bring an umbrella?"

var toolsModel string

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Demonstrate tool calling across providers",
	RunE:  runTools,
}

func init() {
	toolsCmd.Flags().StringVarP(&toolsModel, "model", "m", "", "Model to test, e.g. gpt-4o or anthropic:claude-3-5-haiku-20241022")
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, _ []string) error {
	models := model.ToolModels()
	if toolsModel != "" {
		m, err := resolveModel(toolsModel)
		if err != nil {
			return err
		}
		models = []model.ChatModel{m}
	}
	current.toolDemo(cmd.Context(), models, toolbox.ForecastRegistry())
	return nil
}

// resolveModel accepts a known model ID or any provider:model reference.
func resolveModel(s string) (model.ChatModel, error) {
	if m, ok := model.Lookup(s); ok {
		return m, nil
	}
	ref, err := ai.ParseModel(s)
	if err != nil {
		return model.ChatModel{}, fmt.Errorf("unknown model %q: use provider:model for models outside the built-in list", s)
	}
	return model.ChatModel{
		ID:           ref.Name,
		Provider:     ref.Provider,
		Capabilities: model.Capabilities{Tools: true, Streaming: true},
	}, nil
}

func (a *app) toolDemo(ctx context.Context, models []model.ChatModel, registry *tool.Registry) {
	fmt.Fprintln(a.out, banner("Tool Calling Demonstration", "Test function/tool calling across providers"))
	fmt.Fprintf(a.out, "\n%s %s\n", boldStyle.Render("Prompt:"), toolsPrompt)
	fmt.Fprintln(a.out, "\n"+boldStyle.Render("Available tools:"))
	for _, t := range registry.Tools() {
		fmt.Fprintf(a.out, "  • %s\n", t.Name)
	}

	for _, m := range models {
		fmt.Fprintln(a.out, "\n"+cyanStyle.Render("Testing tool calling: "+m.ID))
		a.toolRun(ctx, m, registry)
	}

	fmt.Fprintln(a.out, "\n"+greenStyle.Bold(true).Render("✓ Tool calling test complete!"))
}

func (a *app) toolRun(ctx context.Context, m model.ChatModel, registry *tool.Registry) {
	chatOpts := append([]ai.Option{ai.WithModel(m.Ref().String())}, a.chatOpts...)
	events := agent.New(a.chat, registry).RunStream(ctx, []ai.Message{ai.UserMessage(toolsPrompt)},
		agent.WithMaxRounds(1),
		agent.WithChatOptions(chatOpts...),
	)

	for ev := range events {
		switch ev.Type {
		case agent.EventStepComplete:
			if ev.Step != 1 {
				continue
			}
			if ev.Response.HasToolCalls() {
				fmt.Fprintln(a.out, greenStyle.Render(fmt.Sprintf("✓ Model used %d tool(s)", len(ev.Response.ToolCalls))))
			} else {
				fmt.Fprintln(a.out, yellowStyle.Render("! Model did not use tools"))
			}
		case agent.EventToolResult:
			fmt.Fprintln(a.out, "\n"+dimStyle.Render("Tool call:"))
			fmt.Fprintf(a.out, "  Function: %s\n", ev.ToolCall.Name)
			fmt.Fprintf(a.out, "  Arguments: %s\n", ev.ToolCall.Arguments)
			fmt.Fprintf(a.out, "  Result: %s\n", ev.ToolResult.Content)
		case agent.EventComplete:
			border := lipgloss.Color("11")
			if ev.Result.UsedTools() {
				fmt.Fprintln(a.out, "\n"+boldStyle.Render("Final response:"))
				border = lipgloss.Color("10")
			}
			fmt.Fprintln(a.out, panel("", a.md.Render(ev.Result.Response.Content), border))
		case agent.EventError:
			fmt.Fprintln(a.out, redStyle.Render(fmt.Sprintf("Error with %s: %v", m.ID, ev.Error)))
		}
	}
}
