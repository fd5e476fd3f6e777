package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/studioflow/canvasflow/agent/stream"
	"github.com/studioflow/canvasflow/interrupt"
	"github.com/studioflow/canvasflow/types"
)

// DefaultMaxTurns bounds the supervisor's model/tool loop.
const DefaultMaxTurns = 24

// SupervisorConfig tunes one supervisor run.
type SupervisorConfig struct {
	Model        string  `yaml:"model" json:"model"`
	MaxTurns     int     `yaml:"max_turns" json:"max_turns"`
	Temperature  float32 `yaml:"temperature" json:"temperature"`
	SystemPrompt string  `yaml:"system_prompt" json:"system_prompt"`
}

// Supervisor is the root "Director" agent: it drives the model loop,
// executes canvas tools, and delegates to registered sub-agents one at a
// time. Delegation is synchronous; the delegation tool returns only after
// the sub-agent's run fully completes.
type Supervisor struct {
	cfg        SupervisorConfig
	provider   ModelProvider
	toolset    *Toolset
	registry   *Registry
	interrupts *interrupt.Coordinator
	sink       types.EventSink
	resolver   *stream.Resolver
	logger     *zap.Logger
}

// NewSupervisor wires a supervisor for one workflow run. sink may be nil;
// interrupts may be nil when no cancellation surface exists (tests).
func NewSupervisor(cfg SupervisorConfig, provider ModelProvider, toolset *Toolset, registry *Registry, interrupts *interrupt.Coordinator, sink types.EventSink, logger *zap.Logger) *Supervisor {
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = DefaultMaxTurns
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = types.SinkFunc(func(types.StreamEvent) {})
	}
	return &Supervisor{
		cfg:        cfg,
		provider:   provider,
		toolset:    toolset,
		registry:   registry,
		interrupts: interrupts,
		sink:       sink,
		resolver:   stream.NewResolver(stream.RootAgentName, logger),
		logger:     logger.With(zap.String("component", "supervisor")),
	}
}

// Run executes one supervised conversation for threadID and returns the
// final assistant text. Interruption is cooperative: the persisted flag is
// checked fresh before every model call and tool call, and on a cached
// window between streamed tokens. An observed interrupt unwinds with
// INTERRUPT_REQUESTED after acknowledging the session state.
func (s *Supervisor) Run(ctx context.Context, threadID, userPrompt string) (string, error) {
	if s.interrupts != nil {
		if err := s.interrupts.Begin(ctx, threadID); err != nil {
			return "", err
		}
	}

	messages := []Message{}
	if s.cfg.SystemPrompt != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: s.cfg.SystemPrompt})
	}
	messages = append(messages, Message{Role: RoleUser, Content: userPrompt})

	for turn := 0; turn < s.cfg.MaxTurns; turn++ {
		if err := s.guard(ctx, threadID); err != nil {
			return "", s.unwind(ctx, threadID, err)
		}

		assistant, err := s.streamModelTurn(ctx, threadID, messages)
		if err != nil {
			if types.GetErrorCode(err) == types.ErrInterruptRequested {
				return "", s.unwind(ctx, threadID, err)
			}
			return "", err
		}
		messages = append(messages, *assistant)

		if len(assistant.ToolCalls) == 0 {
			if s.interrupts != nil {
				if err := s.interrupts.Finish(ctx, threadID); err != nil {
					s.logger.Warn("session finish mark failed", zap.Error(err))
				}
			}
			return assistant.Content, nil
		}

		for _, call := range assistant.ToolCalls {
			if err := s.guard(ctx, threadID); err != nil {
				return "", s.unwind(ctx, threadID, err)
			}
			result := s.executeTool(ctx, call)
			messages = append(messages, Message{
				Role:       RoleTool,
				Content:    result,
				ToolCallID: call.ID,
			})
		}
	}

	return "", fmt.Errorf("supervisor exceeded %d turns without a final answer", s.cfg.MaxTurns)
}

// guard runs the fresh pre-call interrupt check.
func (s *Supervisor) guard(ctx context.Context, threadID string) error {
	if s.interrupts == nil {
		return nil
	}
	return s.interrupts.Guard(ctx, threadID)
}

// unwind acknowledges an observed interrupt and surfaces the error.
func (s *Supervisor) unwind(ctx context.Context, threadID string, cause error) error {
	if s.interrupts != nil {
		if err := s.interrupts.Acknowledge(ctx, threadID); err != nil {
			s.logger.Warn("interrupt acknowledge failed", zap.Error(err))
		}
	}
	s.logger.Info("run interrupted", zap.String("thread_id", threadID))
	return cause
}

// streamModelTurn drives one streaming model call, forwarding text and
// thinking tokens to the sink. Between tokens the cached interrupt check
// runs; a pending interrupt stops consumption at the next window boundary.
func (s *Supervisor) streamModelTurn(ctx context.Context, threadID string, messages []Message) (*Message, error) {
	tools := s.toolset.Schemas()
	if s.registry != nil && len(s.registry.Names()) > 0 {
		tools = append(tools, DelegationSchema(s.registry))
	}
	req := &ChatRequest{
		Model:       s.cfg.Model,
		Messages:    messages,
		Tools:       tools,
		Temperature: s.cfg.Temperature,
	}

	chunks, err := s.provider.ChatStream(ctx, req)
	if err != nil {
		return nil, err
	}

	assistant := &Message{Role: RoleAssistant}
	for chunk := range chunks {
		if chunk.Err != nil {
			return nil, chunk.Err
		}

		if chunk.Text != "" {
			assistant.Content += chunk.Text
			s.emit(types.StreamEvent{Type: types.EventText, Text: chunk.Text}, nil, "")
		}
		if chunk.Thinking != "" {
			s.emit(types.StreamEvent{Type: types.EventThinking, Text: chunk.Thinking}, nil, "")
		}
		assistant.ToolCalls = append(assistant.ToolCalls, chunk.ToolCalls...)

		if s.interrupts != nil {
			interrupted, err := s.interrupts.CheckCached(ctx, threadID)
			if err != nil {
				s.logger.Warn("cached interrupt check failed", zap.Error(err))
			} else if interrupted {
				return nil, types.Errorf(types.ErrInterruptRequested,
					"session %s interrupted mid-stream", threadID)
			}
		}
	}
	return assistant, nil
}

// executeTool dispatches one tool call, emitting tool_start/tool_end. The
// delegation pseudo-tool is handled here rather than in the toolset because
// it needs the registry and per-call event attribution.
func (s *Supervisor) executeTool(ctx context.Context, call ToolCall) string {
	args := call.Args()

	s.emitTool(types.StreamEvent{
		Type:  types.EventToolStart,
		ID:    call.ID,
		Tool:  call.Name,
		Input: args,
	})

	var result string
	start := time.Now()
	if call.Name == stream.DelegationTool {
		result = s.delegate(ctx, call, args)
	} else if tool, ok := s.toolset.Get(call.Name); ok {
		result = tool.Invoke(ctx, args)
	} else {
		result = fmt.Sprintf("Error: unknown tool %q", call.Name)
	}

	status := "ok"
	if len(result) >= 6 && result[:6] == "Error:" {
		status = "error"
	}
	s.logger.Debug("tool executed",
		zap.String("tool", call.Name),
		zap.String("status", status),
		zap.Duration("duration", time.Since(start)),
	)

	s.emitTool(types.StreamEvent{
		Type:   types.EventToolEnd,
		ID:     call.ID,
		Tool:   call.Name,
		Result: result,
		Status: status,
	})
	return result
}

// delegate runs a registered sub-agent to completion. Events the sub-agent
// emits are attributed to its delegation namespace so the client can group
// them separately from the supervisor's own stream.
func (s *Supervisor) delegate(ctx context.Context, call ToolCall, args map[string]any) string {
	name, _ := args["agent"].(string)
	task, _ := args["task"].(string)
	if name == "" || task == "" {
		return "Error: task_delegation needs agent and task arguments"
	}

	if s.registry == nil {
		return "Error: no sub-agents are registered for this run"
	}
	sub, err := s.registry.Lookup(name)
	if err != nil {
		return toolError(err)
	}

	s.resolver.ObserveToolCall(call.ID, stream.DelegationTool, args)
	namespace := []string{stream.DelegationTool + ":" + call.ID}
	childSink := types.SinkFunc(func(ev types.StreamEvent) {
		s.resolver.Annotate(&ev, namespace, sub.Name())
		s.sink.Emit(ev)
	})

	s.logger.Info("delegating task",
		zap.String("agent", name),
		zap.String("tool_call_id", call.ID),
	)
	report, err := sub.Run(ctx, task, childSink)
	if err != nil {
		return toolError(err)
	}
	return report
}

// emit attributes and forwards a non-tool event from the supervisor's own
// (root) execution.
func (s *Supervisor) emit(ev types.StreamEvent, namespace []string, fallbackName string) {
	ev.Timestamp = time.Now()
	s.resolver.Annotate(&ev, namespace, fallbackName)
	s.sink.Emit(ev)
}

// emitTool attributes and forwards a tool lifecycle event. Delegation tool
// events are credited to the supervisor itself, never the spawned child.
func (s *Supervisor) emitTool(ev types.StreamEvent) {
	ev.Timestamp = time.Now()
	s.resolver.Annotate(&ev, nil, "")
	s.sink.Emit(ev)
}

// DelegationSchema is the model-facing declaration of the delegation
// pseudo-tool, exposed alongside the toolset's own schemas.
func DelegationSchema(registry *Registry) ToolSchema {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"agent": map[string]any{
				"type": "string",
				"enum": registry.Names(),
			},
			"task": map[string]any{
				"type":        "string",
				"description": "Complete instruction for the sub-agent, including workspace id when applicable",
			},
		},
		"required": []string{"agent", "task"},
	}
	raw, _ := json.Marshal(params)
	return ToolSchema{
		Name:        stream.DelegationTool,
		Description: "Delegate a task to a named specialist sub-agent and wait for its full completion.",
		Parameters:  raw,
	}
}
