package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/studioflow/canvasflow/types"
)

// Tool is one capability exposed to the model. Invoke always returns a
// natural-language string; failures come back prefixed with "Error:" so the
// model can decide to retry, ask the user, or take another path. The model
// is part of the error-recovery loop, not just a caller.
type Tool interface {
	Name() string
	Description() string
	Schema() json.RawMessage
	Invoke(ctx context.Context, args map[string]any) string
}

// Toolset is a named collection of tools offered in one run.
type Toolset struct {
	tools map[string]Tool
	order []string
}

// NewToolset builds a toolset; later tools with duplicate names win.
func NewToolset(tools ...Tool) *Toolset {
	ts := &Toolset{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if _, seen := ts.tools[t.Name()]; !seen {
			ts.order = append(ts.order, t.Name())
		}
		ts.tools[t.Name()] = t
	}
	return ts
}

// Get returns the named tool.
func (ts *Toolset) Get(name string) (Tool, bool) {
	t, ok := ts.tools[name]
	return t, ok
}

// Schemas lists the model-facing declarations in registration order.
func (ts *Toolset) Schemas() []ToolSchema {
	out := make([]ToolSchema, 0, len(ts.order))
	for _, name := range ts.order {
		t := ts.tools[name]
		out = append(out, ToolSchema{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Schema(),
		})
	}
	return out
}

// toolError converts an internal error into the model-facing form.
// User-correctable failures surface their message verbatim; infrastructure
// faults keep the code prefix so retry decisions stay informed.
func toolError(err error) string {
	if e, ok := err.(*types.Error); ok && types.IsUserCorrectable(e) {
		return fmt.Sprintf("Error: %s", e.Message)
	}
	return fmt.Sprintf("Error: %v", err)
}

// stringArg reads a required string argument.
func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key].(string)
	return v, ok && v != ""
}
