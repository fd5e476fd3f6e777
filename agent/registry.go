package agent

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/studioflow/canvasflow/types"
)

// SubAgent is a delegatable specialist. Run blocks until the sub-agent's
// work is fully complete and returns its final report; streamed progress
// goes to the sink.
type SubAgent interface {
	Name() string
	Run(ctx context.Context, task string, sink types.EventSink) (string, error)
}

// SubAgentFunc adapts a function to the SubAgent interface.
type SubAgentFunc struct {
	AgentName string
	Fn        func(ctx context.Context, task string, sink types.EventSink) (string, error)
}

func (f SubAgentFunc) Name() string { return f.AgentName }

func (f SubAgentFunc) Run(ctx context.Context, task string, sink types.EventSink) (string, error) {
	return f.Fn(ctx, task, sink)
}

// Registry holds the sub-agents available to one workflow run. It is an
// explicit per-run object handed to the supervisor, created at run start
// and discarded at run end; there is no process-wide registry.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]SubAgent
}

// NewRegistry creates a registry seeded with the given agents.
func NewRegistry(agents ...SubAgent) *Registry {
	r := &Registry{agents: make(map[string]SubAgent, len(agents))}
	for _, a := range agents {
		r.agents[a.Name()] = a
	}
	return r
}

// Register adds or replaces a sub-agent.
func (r *Registry) Register(agent SubAgent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[agent.Name()] = agent
}

// Lookup returns the named sub-agent, failing with UNKNOWN_AGENT and the
// list of valid names so the model can self-correct.
func (r *Registry) Lookup(name string) (SubAgent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.agents[name]; ok {
		return a, nil
	}
	return nil, types.Errorf(types.ErrUnknownAgent,
		"no agent named %q; available agents: %s", name, strings.Join(r.namesLocked(), ", "))
}

// Names lists registered agent names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
