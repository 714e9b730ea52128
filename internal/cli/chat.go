package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	ai "github.com/spetersoncode/llmgate"
	"github.com/spetersoncode/llmgate/agent"
	"github.com/spetersoncode/llmgate/mcp"
	"github.com/spetersoncode/llmgate/model"
	"github.com/spetersoncode/llmgate/tool"
	"github.com/spetersoncode/llmgate/toolbox"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat with model switching",
	Long: `Chat with any of the built-in models, switching between them mid-session.

Commands inside a chat:
  /switch   pick another model
  /tools    toggle tool calling
  /clear    clear the conversation
  /quit     exit`,
	RunE: runChat,
}

var chatMCP []string

func init() {
	chatCmd.Flags().StringArrayVar(&chatMCP, "mcp", nil, "Command of an MCP stdio server whose tools join the chat (repeatable)")
	rootCmd.Flags().StringArrayVar(&chatMCP, "mcp", nil, "Command of an MCP stdio server whose tools join the chat (repeatable)")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	registry := toolbox.ChatRegistry()
	for _, command := range chatMCP {
		remote, err := dialMCP(ctx, command)
		if err != nil {
			return err
		}
		defer remote.Close()
		for _, reg := range remote.Registrations() {
			if err := registry.Register(reg.Tool, reg.Handler); err != nil {
				current.logger.Warn("skipping MCP tool", "command", command, "error", err)
			}
		}
	}
	return current.interactiveChat(ctx, registry)
}

func dialMCP(ctx context.Context, command string) (*mcp.Remote, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty --mcp command")
	}
	remote, err := mcp.DialStdio(ctx, fields[0], os.Environ(), fields[1:]...)
	if err != nil {
		return nil, fmt.Errorf("starting MCP server %q: %w", command, err)
	}
	return remote, nil
}

func (a *app) printKeyStatus() {
	fmt.Fprintln(a.out, "\n"+boldStyle.Render("API Key Status:"))
	for _, k := range a.keys {
		style := redStyle
		if k.Configured {
			style = greenStyle
		}
		fmt.Fprintln(a.out, "  "+style.Render(check(k.Configured)+" "+k.Label))
	}
}

func modelTable(models []model.ChatModel) string {
	rows := make([][]string, len(models))
	for i, m := range models {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			m.ID,
			model.ProviderLabel(m.Provider),
			check(m.Capabilities.Tools),
			check(m.Capabilities.Streaming),
			check(m.Capabilities.Thinking),
			m.Notes,
		}
	}
	return renderTable("Available Models",
		[]string{"#", "Model", "Provider", "Tools", "Stream", "Thinking", "Notes"},
		rows, 3, 4, 5)
}

func (a *app) interactiveChat(ctx context.Context, registry *tool.Registry) error {
	fmt.Fprintln(a.out, banner("llmgate - Minimal CLI Chat", "Test model switching and feature differences"))
	a.printKeyStatus()

	models := model.CLIModels()
	choices := make([]string, 0, len(models)+1)
	for i := range models {
		choices = append(choices, strconv.Itoa(i+1))
	}
	choices = append(choices, "q")

	for {
		fmt.Fprintln(a.out, "\n"+modelTable(models))

		choice, err := a.ask(fmt.Sprintf("Select a model (1-%d) or 'q' to quit", len(models)), choices, "1")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if choice == "q" {
			fmt.Fprintln(a.out, yellowStyle.Render("Goodbye!"))
			return nil
		}
		idx, _ := strconv.Atoi(choice)

		tools, err := a.confirm("Enable tool calling?", true)
		if err != nil {
			return ignoreEOF(err)
		}
		stream, err := a.confirm("Enable streaming?", true)
		if err != nil {
			return ignoreEOF(err)
		}

		s := &chatSession{
			app:      a,
			model:    models[idx-1],
			tools:    tools,
			stream:   stream,
			registry: registry,
		}
		switched, err := s.run(ctx)
		if err != nil || !switched {
			return err
		}
	}
}

func ignoreEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// chatSession is one conversation with one model.
type chatSession struct {
	app      *app
	model    model.ChatModel
	tools    bool
	stream   bool
	registry *tool.Registry
	history  []ai.Message
}

func enabled(on bool) string {
	if on {
		return "Enabled"
	}
	return "Disabled"
}

func (s *chatSession) toolsOn() bool  { return s.tools && s.model.Capabilities.Tools }
func (s *chatSession) streamOn() bool { return s.stream && s.model.Capabilities.Streaming }

// run reads turns until /quit, /switch or end of input. It reports whether
// the user asked to switch models.
func (s *chatSession) run(ctx context.Context) (bool, error) {
	out := s.app.out
	fmt.Fprintln(out, panel("Current Model",
		greenStyle.Bold(true).Render(s.model.ID)+"\n"+
			"Provider: "+model.ProviderLabel(s.model.Provider)+"\n"+
			"Tools: "+enabled(s.toolsOn())+"\n"+
			"Streaming: "+enabled(s.streamOn()),
		lipgloss.Color("12")))
	fmt.Fprintln(out, "\n"+dimStyle.Render("Commands: /switch (change model), /tools (toggle tools), /clear (clear history), /quit (exit)"))

	for {
		if ctx.Err() != nil {
			fmt.Fprintln(out, "\n"+yellowStyle.Render("Chat interrupted"))
			return false, nil
		}

		fmt.Fprint(out, "\n"+cyanStyle.Render("You")+": ")
		input, err := s.app.readLine()
		if err != nil {
			return false, ignoreEOF(err)
		}

		switch strings.ToLower(strings.TrimSpace(input)) {
		case "":
			continue
		case "/quit":
			return false, nil
		case "/switch":
			return true, nil
		case "/tools":
			s.tools = !s.tools
			fmt.Fprintln(out, yellowStyle.Render("Tools "+strings.ToLower(enabled(s.tools))))
			continue
		case "/clear":
			s.history = nil
			fmt.Fprintln(out, yellowStyle.Render("Conversation history cleared"))
			continue
		}

		s.turn(ctx, input)
	}
}

// turn sends one user message. On failure the history is left as it was,
// dropping the message.
func (s *chatSession) turn(ctx context.Context, input string) {
	a := s.app
	out := a.out
	streaming := s.streamOn()

	// Tools switched off stay declared so earlier tool turns remain valid.
	registry := s.registry
	maxRounds := a.cfg.Agent.MaxRounds
	if !s.toolsOn() {
		maxRounds = 0
	}
	if !s.model.Capabilities.Tools {
		registry = nil
	}

	messages := append(append([]ai.Message(nil), s.history...), ai.UserMessage(input))
	chatOpts := append([]ai.Option{ai.WithModel(s.model.Ref().String())}, a.chatOpts...)

	fmt.Fprintln(out, "\n"+greenStyle.Bold(true).Render("Assistant"))

	var result *agent.Result
	var runErr error
	announced := 0
	printed := false
	for ev := range agent.New(a.chat, registry).RunStream(ctx, messages,
		agent.WithMaxRounds(maxRounds),
		agent.WithStreaming(streaming),
		agent.WithChatOptions(chatOpts...),
	) {
		switch ev.Type {
		case agent.EventStepStart:
			printed = false
			if ev.Step > 1 {
				fmt.Fprintln(out, "\n"+greenStyle.Bold(true).Render("Assistant (with tool results)"))
			}
		case agent.EventDelta:
			printed = true
			fmt.Fprint(out, ev.Delta)
		case agent.EventStepComplete:
			switch {
			case streaming && printed:
				fmt.Fprintln(out)
			case !streaming && ev.Response.Content != "":
				fmt.Fprintln(out, a.md.Render(ev.Response.Content))
			}
		case agent.EventToolCall:
			if announced < ev.Step {
				announced = ev.Step
				fmt.Fprintln(out, "\n"+yellowStyle.Render("🔧 Executing tools..."))
			}
			fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("→ %s(%s)", ev.ToolCall.Name, ev.ToolCall.Arguments)))
		case agent.EventComplete:
			result = ev.Result
		case agent.EventError:
			runErr = ev.Error
		}
	}

	if runErr != nil {
		a.logger.Debug("chat turn failed", "model", s.model.ID, "error", runErr)
		fmt.Fprintln(out, redStyle.Render("Error: "+runErr.Error()))
		fmt.Fprintln(out, dimStyle.Render("This might be due to missing API keys or model limitations."))
		return
	}
	if result != nil {
		s.history = result.Messages
	}
}
