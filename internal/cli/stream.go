package cli

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"
	ai "github.com/spetersoncode/llmgate"
	"github.com/spetersoncode/llmgate/model"
)

const streamPrompt = "Write a short haiku about coding."

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Compare streaming latency across providers",
	RunE:  runStream,
}

func init() {
	rootCmd.AddCommand(streamCmd)
}

func runStream(cmd *cobra.Command, _ []string) error {
	current.streamCompare(cmd.Context(), model.StreamModels())
	return nil
}

// streamTiming is what one streamed reply measured.
type streamTiming struct {
	FirstToken time.Duration
	Total      time.Duration
	Characters int
}

func (a *app) streamOnce(ctx context.Context, m model.ChatModel) (streamTiming, error) {
	start := time.Now()
	opts := append([]ai.Option{ai.WithModel(m.Ref().String())}, a.chatOpts...)
	ch, err := a.chat.ChatStream(ctx, []ai.Message{ai.UserMessage(streamPrompt)}, opts...)
	if err != nil {
		return streamTiming{}, err
	}

	var first time.Duration
	resp, err := ai.CollectStream(ch, func(delta string) {
		if first == 0 {
			first = time.Since(start)
		}
		fmt.Fprint(a.out, delta)
	})
	fmt.Fprintln(a.out)
	if err != nil {
		return streamTiming{}, err
	}
	return streamTiming{
		FirstToken: first,
		Total:      time.Since(start),
		Characters: utf8.RuneCountInString(resp.Content),
	}, nil
}

func (a *app) streamCompare(ctx context.Context, models []model.ChatModel) {
	fmt.Fprintln(a.out, banner("Streaming Comparison", "Compare streaming performance across providers"))
	fmt.Fprintf(a.out, "\n%s %s\n", boldStyle.Render("Prompt:"), streamPrompt)

	for _, m := range models {
		fmt.Fprintln(a.out, "\n"+cyanStyle.Render("Streaming from: "+m.ID))
		fmt.Fprint(a.out, dimStyle.Render("Response: "))

		timing, err := a.streamOnce(ctx, m)
		if err != nil {
			fmt.Fprintln(a.out, redStyle.Render(fmt.Sprintf("Error with %s: %v", m.ID, err)))
			continue
		}
		fmt.Fprintln(a.out, dimStyle.Render(fmt.Sprintf("Time to first token: %.2fs", timing.FirstToken.Seconds())))
		fmt.Fprintln(a.out, dimStyle.Render(fmt.Sprintf("Total time: %.2fs", timing.Total.Seconds())))
		fmt.Fprintln(a.out, dimStyle.Render(fmt.Sprintf("Characters: %d", timing.Characters)))
	}

	fmt.Fprintln(a.out, "\n"+greenStyle.Bold(true).Render("✓ Streaming test complete!"))
}
