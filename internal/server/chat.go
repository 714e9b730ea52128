package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	ai "github.com/spetersoncode/llmgate"
	"github.com/spetersoncode/llmgate/agent"
	"github.com/spetersoncode/llmgate/client"
	"github.com/spetersoncode/llmgate/internal/ledger"
	"github.com/spetersoncode/llmgate/internal/observability"
	"github.com/spetersoncode/llmgate/model"
	"github.com/spetersoncode/llmgate/tool"
	"github.com/spetersoncode/llmgate/toolbox"
)

type historyMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Provider string           `json:"provider" binding:"required"`
	Model    string           `json:"model" binding:"required"`
	Message  string           `json:"message" binding:"required"`
	Tools    bool             `json:"tools"`
	History  []historyMessage `json:"history"`
}

// ref is the provider:model string the client routes on.
func (r chatRequest) ref() string {
	return r.Provider + ":" + r.Model
}

func (r chatRequest) messages() []ai.Message {
	msgs := make([]ai.Message, 0, len(r.History)+1)
	for _, h := range r.History {
		switch ai.Role(strings.ToLower(h.Role)) {
		case ai.RoleSystem:
			msgs = append(msgs, ai.SystemMessage(h.Content))
		case ai.RoleAssistant:
			msgs = append(msgs, ai.AssistantMessage(h.Content))
		default:
			msgs = append(msgs, ai.UserMessage(h.Content))
		}
	}
	return append(msgs, ai.UserMessage(r.Message))
}

type chatToolCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
	Result    string `json:"result"`
	IsError   bool   `json:"is_error,omitempty"`
}

type chatResponse struct {
	Response         string         `json:"response"`
	PromptTokens     int            `json:"prompt_tokens"`
	CompletionTokens int            `json:"completion_tokens"`
	TotalTokens      int            `json:"total_tokens"`
	ToolCalls        []chatToolCall `json:"tool_calls,omitempty"`
	Model            string         `json:"model"`
}

func (s *Server) bindChat(c *gin.Context) (chatRequest, bool) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return req, false
	}
	if s.cfg.UseGateway() && !s.requireMasterKey(c) {
		return req, false
	}
	return req, true
}

// agentFor builds the round trip for req. Tools come from the gateway set.
func (s *Server) agentFor(req chatRequest, streaming bool) (*agent.Agent, []agent.Option) {
	var registry *tool.Registry
	if req.Tools {
		registry = toolbox.GatewayRegistry(tool.WithObserver(func(name string, isError bool, _ time.Duration) {
			observability.RecordToolExecution(name, isError)
		}))
	}

	chatOpts := []ai.Option{ai.WithModel(req.ref())}
	if s.cfg.UseGateway() {
		chatOpts = append(chatOpts, ai.WithUser(s.cfg.Gateway.UserID))
	}

	opts := []agent.Option{
		agent.WithMaxRounds(s.cfg.Agent.MaxRounds),
		agent.WithTimeout(s.cfg.Agent.Timeout),
		agent.WithStreaming(streaming),
		agent.WithChatOptions(chatOpts...),
	}
	return agent.New(s.deps.Chat, registry), opts
}

func (s *Server) chat(c *gin.Context) {
	req, ok := s.bindChat(c)
	if !ok {
		return
	}
	log := s.log(c).With("model", req.ref(), "tools", req.Tools)
	start := time.Now()

	a, opts := s.agentFor(req, false)
	result, err := a.Run(c.Request.Context(), req.messages(), opts...)
	if err != nil {
		log.Error("chat completion failed", "error", err, "transient", client.IsTransientError(err))
		detail(c, http.StatusInternalServerError, "Chat completion failed: "+err.Error())
		return
	}

	s.record(c, req, result, time.Since(start))
	log.Info("chat completed",
		"duration_ms", time.Since(start).Milliseconds(),
		"total_tokens", result.Usage.TotalTokens,
		"tool_rounds", result.Rounds,
	)

	resp := chatResponse{
		Response:         result.Response.Content,
		PromptTokens:     result.Usage.PromptTokens,
		CompletionTokens: result.Usage.CompletionTokens,
		TotalTokens:      result.Usage.TotalTokens,
		Model:            req.ref(),
	}
	if result.Response.Model != "" {
		resp.Model = result.Response.Model
	}
	for i, call := range result.ToolCalls {
		tc := chatToolCall{Name: call.Name, Arguments: call.Arguments}
		if i < len(result.ToolResults) {
			tc.Result = result.ToolResults[i].Content
			tc.IsError = result.ToolResults[i].IsError
		}
		resp.ToolCalls = append(resp.ToolCalls, tc)
	}
	c.JSON(http.StatusOK, resp)
}

type doneEvent struct {
	Usage     ai.Usage `json:"usage"`
	Model     string   `json:"model"`
	ElapsedMS int64    `json:"elapsed_ms"`
	TTFTMS    int64    `json:"ttft_ms"`
}

func (s *Server) chatStream(c *gin.Context) {
	req, ok := s.bindChat(c)
	if !ok {
		return
	}
	log := s.log(c).With("model", req.ref(), "tools", req.Tools)
	start := time.Now()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	observability.StreamingConnections.Inc()
	defer observability.StreamingConnections.Dec()

	a, opts := s.agentFor(req, true)
	var ttft time.Duration
	var eventCount int

	for ev := range a.RunStream(c.Request.Context(), req.messages(), opts...) {
		var err error
		switch ev.Type {
		case agent.EventDelta:
			if ttft == 0 {
				ttft = time.Since(start)
			}
			err = writeSSE(c, "delta", gin.H{"text": ev.Delta})
		case agent.EventToolCall:
			err = writeSSE(c, "tool_call", gin.H{"name": ev.ToolCall.Name, "arguments": ev.ToolCall.Arguments})
		case agent.EventToolResult:
			err = writeSSE(c, "tool_result", gin.H{
				"name":     ev.ToolCall.Name,
				"content":  ev.ToolResult.Content,
				"is_error": ev.ToolResult.IsError,
			})
		case agent.EventComplete:
			elapsed := time.Since(start)
			s.record(c, req, ev.Result, elapsed)
			done := doneEvent{
				Usage:     ev.Result.Usage,
				Model:     req.ref(),
				ElapsedMS: elapsed.Milliseconds(),
				TTFTMS:    ttft.Milliseconds(),
			}
			err = writeSSE(c, "done", done)
			log.Info("chat stream completed",
				"duration_ms", done.ElapsedMS,
				"ttft_ms", done.TTFTMS,
				"events_sent", eventCount+1,
			)
		case agent.EventError:
			log.Error("chat stream failed", "error", ev.Error, "transient", client.IsTransientError(ev.Error), "events_sent", eventCount)
			err = writeSSE(c, "error", gin.H{"detail": "Chat completion failed: " + ev.Error.Error()})
		default:
			continue
		}
		if err != nil {
			// client went away; drain so the agent goroutine can finish
			log.Warn("failed to write SSE event", "error", err, "event_type", ev.Type)
			continue
		}
		eventCount++
	}
}

// writeSSE writes one event in SSE format and flushes it.
func writeSSE(c *gin.Context, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}
	if _, err := fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	c.Writer.Flush()
	return nil
}

// record stores a served completion in the local ledger. Failures are logged only.
func (s *Server) record(c *gin.Context, req chatRequest, result *agent.Result, elapsed time.Duration) {
	if s.deps.Ledger == nil || result == nil {
		return
	}
	entry := ledger.Entry{
		UserID:           s.cfg.Gateway.UserID,
		Provider:         req.Provider,
		Model:            req.Model,
		PromptTokens:     result.Usage.PromptTokens,
		CompletionTokens: result.Usage.CompletionTokens,
		TotalTokens:      result.Usage.TotalTokens,
		Cost:             model.EstimateCost(req.Model, result.Usage),
		LatencyMS:        elapsed.Milliseconds(),
		ToolCalls:        len(result.ToolCalls),
	}
	if err := s.deps.Ledger.Record(c.Request.Context(), entry); err != nil {
		s.log(c).Warn("failed to record usage", "error", err)
	}
}
