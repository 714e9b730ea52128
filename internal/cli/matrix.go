package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	ai "github.com/spetersoncode/llmgate"
	"github.com/spetersoncode/llmgate/client"
	"github.com/spetersoncode/llmgate/model"
	"github.com/spetersoncode/llmgate/toolbox"
	"golang.org/x/sync/errgroup"
)

// matrixConcurrency bounds how many models are probed at once.
const matrixConcurrency = 3

var matrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "Probe which features each model supports",
	RunE:  runMatrix,
}

func init() {
	rootCmd.AddCommand(matrixCmd)
}

func runMatrix(cmd *cobra.Command, _ []string) error {
	current.matrix(cmd.Context(), model.MatrixModels())
	return nil
}

// capabilities is the probe outcome for one model.
type capabilities struct {
	Basic     bool
	Streaming bool
	Tools     bool
	JSONMode  bool
}

// probe runs the four feature checks against one model. A check passes when
// the call succeeds. The tools check also needs the reply to request a tool
// and the JSON check needs the reply to decode as a JSON object.
func probe(ctx context.Context, c ai.ChatProvider, ref string, extra []ai.Option) capabilities {
	opts := func(more ...ai.Option) []ai.Option {
		base := append([]ai.Option{ai.WithModel(ref), ai.WithMaxTokens(50)}, extra...)
		return append(base, more...)
	}
	var caps capabilities

	_, err := c.Chat(ctx, []ai.Message{ai.UserMessage("Say 'OK' if you can hear me.")}, opts()...)
	caps.Basic = err == nil

	if ch, err := c.ChatStream(ctx, []ai.Message{ai.UserMessage("Count to 3.")}, opts()...); err == nil {
		_, err = ai.CollectStream(ch, nil)
		caps.Streaming = err == nil
	}

	resp, err := c.Chat(ctx, []ai.Message{ai.UserMessage("Use the test_function to send 'hello'")},
		opts(ai.WithTools(toolbox.ProbeRegistry().Tools()), ai.WithMaxTokens(150))...)
	caps.Tools = err == nil && resp.HasToolCalls()

	_, _, err = client.ChatJSON[map[string]any](ctx, c, []ai.Message{
		ai.SystemMessage("You are a helpful assistant that outputs JSON."),
		ai.UserMessage("Output a JSON object with a 'status' field set to 'ok'."),
	}, opts()...)
	caps.JSONMode = err == nil

	return caps
}

func (a *app) matrix(ctx context.Context, models []model.ChatModel) {
	fmt.Fprintln(a.out, banner("Model Capability Matrix", "Testing features across different providers"))
	fmt.Fprintln(a.out, "\n"+dimStyle.Render("This may take a minute..."))

	results := make([]capabilities, len(models))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(matrixConcurrency)
	for i, m := range models {
		fmt.Fprintln(a.out, dimStyle.Render(fmt.Sprintf("Testing %s...", m.ID)))
		g.Go(func() error {
			results[i] = probe(gctx, a.chat, m.Ref().String(), a.chatOpts)
			a.logger.Debug("probed model", "model", m.ID, "capabilities", results[i])
			return nil
		})
	}
	_ = g.Wait()

	rows := make([][]string, len(models))
	for i, m := range models {
		r := results[i]
		rows[i] = []string{m.ID, check(r.Basic), check(r.Streaming), check(r.Tools), check(r.JSONMode)}
	}
	fmt.Fprintln(a.out, "\n"+renderTable("Feature Support Matrix",
		[]string{"Model", "Basic", "Streaming", "Tools", "JSON Mode"}, rows, 1, 2, 3, 4))

	fmt.Fprintln(a.out, "\n"+greenStyle.Bold(true).Render("✓ Capability matrix complete!"))
}
