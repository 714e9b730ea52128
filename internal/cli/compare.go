package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	ai "github.com/spetersoncode/llmgate"
	"github.com/spetersoncode/llmgate/model"
)

const comparePrompt = "In one sentence, explain what makes Python a popular programming language."

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Send the same prompt to several providers",
	RunE:  runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, _ []string) error {
	current.compare(cmd.Context(), model.CompareModels())
	return nil
}

// compare never fails: a model that errors is reported and skipped.
func (a *app) compare(ctx context.Context, models []model.ChatModel) {
	fmt.Fprintln(a.out, banner("Basic Model Comparison", "Testing the same prompt across different providers"))
	fmt.Fprintf(a.out, "\n%s %s\n", boldStyle.Render("Prompt:"), comparePrompt)

	for _, m := range models {
		fmt.Fprintln(a.out, "\n"+cyanStyle.Render("Testing: "+m.ID))

		opts := append([]ai.Option{ai.WithModel(m.Ref().String()), ai.WithMaxTokens(100)}, a.chatOpts...)
		resp, err := a.chat.Chat(ctx, []ai.Message{ai.UserMessage(comparePrompt)}, opts...)
		if err != nil {
			fmt.Fprintln(a.out, redStyle.Render(fmt.Sprintf("Error with %s: %v", m.ID, err)))
			fmt.Fprintln(a.out, dimStyle.Render("Make sure you have the required API key set."))
			continue
		}
		fmt.Fprintln(a.out, panel("Response from "+m.ID, a.md.Render(resp.Content), lipgloss.Color("10")))
	}

	fmt.Fprintln(a.out, "\n"+greenStyle.Bold(true).Render("✓ Comparison complete!"))
	fmt.Fprintln(a.out, dimStyle.Render("Notice how easy it was to switch between providers - just change the model name!"))
}
