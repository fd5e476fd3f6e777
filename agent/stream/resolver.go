// Package stream normalizes raw execution events into client-facing stream
// events. Its core is the per-stream identity resolver that attributes
// interleaved output from nested sub-agent invocations to a stable
// (agent name, agent id) pair.
package stream

import (
	"strings"

	"go.uber.org/zap"

	"github.com/studioflow/canvasflow/types"
)

// DelegationTool is the tool name the supervisor uses to hand work to a
// sub-agent. Its calls carry the target agent's name in the "agent"
// argument, which is how delegation ids become resolvable.
const DelegationTool = "task_delegation"

// RootAgentName labels events from the unnamespaced root execution.
const RootAgentName = "Director"

// Identity is a resolved attribution pair.
type Identity struct {
	Name string
	ID   string
}

// Resolver maps execution namespaces to agent identities. One Resolver
// serves one stream; it is not safe for concurrent use, matching the
// one-goroutine-per-stream event pipeline.
//
// Resolution is deterministic for a given event sequence and never fails:
// an unresolvable namespace degrades to a synthetic identity instead of
// halting the stream.
type Resolver struct {
	rootName string

	// toolAgents maps a delegation tool-call id to the target agent name,
	// learned from the delegation call's arguments.
	toolAgents map[string]string
	// namespaces memoizes resolved namespace prefixes. Only successful
	// resolutions are cached so a later delegation observation can upgrade
	// an earlier fallback.
	namespaces map[string]Identity

	logger *zap.Logger
}

// NewResolver creates a resolver for one stream. rootName defaults to
// "Director" when empty.
func NewResolver(rootName string, logger *zap.Logger) *Resolver {
	if rootName == "" {
		rootName = RootAgentName
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		rootName:   rootName,
		toolAgents: make(map[string]string),
		namespaces: make(map[string]Identity),
		logger:     logger.With(zap.String("component", "agent_identity_resolver")),
	}
}

// ObserveToolCall feeds a tool call into the resolver's caches. Only
// delegation calls carry identity information; everything else is ignored.
func (r *Resolver) ObserveToolCall(toolCallID, tool string, args map[string]any) {
	if tool != DelegationTool || toolCallID == "" {
		return
	}
	name, _ := args["agent"].(string)
	if name == "" {
		return
	}
	r.toolAgents[toolCallID] = name
	r.logger.Debug("delegation observed",
		zap.String("tool_call_id", toolCallID),
		zap.String("agent", name),
	)
}

// Resolve attributes a namespace to an identity. fallbackName is used when
// no delegation mapping is known, typically the raw execution-graph node
// name; empty falls back to the root name.
func (r *Resolver) Resolve(namespace []string, fallbackName string) Identity {
	if len(namespace) == 0 {
		return Identity{Name: r.rootName, ID: "root"}
	}

	prefix := namespace[0]
	if cached, ok := r.namespaces[prefix]; ok {
		return cached
	}

	if fallbackName == "" {
		fallbackName = r.rootName
	}

	// The first element often encodes the spawning delegation call as a
	// ":"-delimited suffix.
	if idx := strings.LastIndex(prefix, ":"); idx >= 0 && idx < len(prefix)-1 {
		callID := prefix[idx+1:]
		if name, ok := r.toolAgents[callID]; ok {
			id := Identity{Name: name, ID: callID}
			r.namespaces[prefix] = id
			return id
		}
		// The id is known but its name is not yet. Return it uncached so a
		// later delegation observation can still bind the name.
		return Identity{Name: fallbackName, ID: callID}
	}

	// No delegation id at all: the prefix itself is the synthetic id.
	return Identity{Name: fallbackName, ID: prefix}
}

// ResolveForTool attributes a tool event. Delegation tool calls are always
// credited to the delegating agent, not the namespace the delegation
// spawned: when the leading namespace element carries this very call's id,
// that element is stripped before resolution.
func (r *Resolver) ResolveForTool(namespace []string, tool, toolCallID, fallbackName string) Identity {
	if tool == DelegationTool && len(namespace) > 0 && toolCallID != "" {
		if strings.HasSuffix(namespace[0], ":"+toolCallID) {
			return r.Resolve(namespace[1:], fallbackName)
		}
	}
	return r.Resolve(namespace, fallbackName)
}

// Annotate stamps the resolved identity onto an outgoing event.
func (r *Resolver) Annotate(ev *types.StreamEvent, namespace []string, fallbackName string) {
	var id Identity
	switch ev.Type {
	case types.EventToolStart, types.EventToolEnd:
		if ev.Tool == DelegationTool {
			r.ObserveToolCall(ev.ID, ev.Tool, ev.Input)
		}
		id = r.ResolveForTool(namespace, ev.Tool, ev.ID, fallbackName)
	default:
		id = r.Resolve(namespace, fallbackName)
	}
	ev.Agent = id.Name
	ev.AgentID = id.ID
}
