// Package cli implements the llmgate command tree.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	ai "github.com/spetersoncode/llmgate"
	"github.com/spetersoncode/llmgate/client"
	"github.com/spetersoncode/llmgate/internal/config"
)

var (
	configPath  string
	useMarkdown bool
	viaGateway  bool
)

// app is what every command runs against.
type app struct {
	cfg    *config.Config
	chat   ai.ChatProvider
	keys   []client.KeyState
	in     *bufio.Reader
	out    io.Writer
	md     *markdown
	logger *slog.Logger
	// chatOpts apply to every request, e.g. the gateway user.
	chatOpts []ai.Option
}

var current *app

var rootCmd = &cobra.Command{
	Use:   "llmgate",
	Short: "Talk to many LLM providers through one interface",
	Long: `llmgate switches between OpenAI, Anthropic, Gemini, Mistral and Ollama
by changing one model string, optionally routing everything through an
any-llm gateway for per-user usage accounting.

Provider keys come from the environment (OPENAI_API_KEY, ANTHROPIC_API_KEY,
GOOGLE_API_KEY, MISTRAL_API_KEY), a .env file or llmgate.yaml.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              runChat,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to llmgate.yaml")
	rootCmd.PersistentFlags().BoolVar(&useMarkdown, "markdown", false, "Render replies as markdown when stdout is a terminal")
	rootCmd.PersistentFlags().BoolVar(&viaGateway, "gateway", false, "Route every model through the any-llm gateway")
}

func setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	var opts []client.ClientOption
	var chatOpts []ai.Option
	if viaGateway {
		if cfg.Gateway.MasterKey == "" {
			return fmt.Errorf("GATEWAY_MASTER_KEY not configured")
		}
		opts = append(opts, client.ViaGateway())
		chatOpts = append(chatOpts, ai.WithUser(cfg.Gateway.UserID))
	}
	c := client.New(cfg.ClientConfig(), opts...)

	current = &app{
		cfg:      cfg,
		chat:     c,
		keys:     c.KeyStatus(),
		in:       bufio.NewReader(cmd.InOrStdin()),
		out:      cmd.OutOrStdout(),
		md:       newMarkdown(useMarkdown, os.Stdout),
		logger:   logger,
		chatOpts: chatOpts,
	}
	return nil
}

// Execute runs the root command until it finishes or SIGINT/SIGTERM arrives.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
