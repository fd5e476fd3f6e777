package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/studioflow/canvasflow/canvas"
	"github.com/studioflow/canvasflow/dispatch"
	"github.com/studioflow/canvasflow/types"
)

// CanvasTools bundles the canvas-mutating tools offered to agents. One
// instance is scoped to a single project and workflow run; nothing here is
// shared process-wide.
type CanvasTools struct {
	projectID  string
	store      *canvas.Store
	dispatcher *dispatch.Dispatcher
	waiter     *dispatch.Waiter
	sink       types.EventSink
	logger     *zap.Logger
}

// NewCanvasTools wires the canvas toolset for one run. sink may be nil when
// no client is streaming.
func NewCanvasTools(projectID string, store *canvas.Store, dispatcher *dispatch.Dispatcher, waiter *dispatch.Waiter, sink types.EventSink, logger *zap.Logger) *CanvasTools {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CanvasTools{
		projectID:  projectID,
		store:      store,
		dispatcher: dispatcher,
		waiter:     waiter,
		sink:       sink,
		logger:     logger.With(zap.String("component", "canvas_tools")),
	}
}

// All returns the toolset in the order agents see them.
func (c *CanvasTools) All() []Tool {
	return []Tool{
		&createWorkspaceTool{c},
		&createGenerationNodeTool{c},
		&runGenerationNodeTool{c},
		&waitForGenerationTool{c},
	}
}

func (c *CanvasTools) propose(result canvas.CreateResult) {
	if c.sink == nil || result.Proposal == nil {
		return
	}
	c.sink.Emit(types.StreamEvent{
		Type:      types.EventNodeProposal,
		ID:        result.NodeID,
		Proposal:  result.Proposal,
		Timestamp: time.Now(),
	})
}

type createWorkspaceTool struct{ c *CanvasTools }

func (t *createWorkspaceTool) Name() string { return "create_workspace" }

func (t *createWorkspaceTool) Description() string {
	return "Create a group node on the canvas to scope this task's nodes. Returns the workspace id; pass it as parent_id to later node creations."
}

func (t *createWorkspaceTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"label": {"type": "string", "description": "Display name for the workspace group"}
		},
		"required": ["label"]
	}`)
}

func (t *createWorkspaceTool) Invoke(ctx context.Context, args map[string]any) string {
	label, ok := stringArg(args, "label")
	if !ok {
		return "Error: create_workspace needs a label"
	}

	node := &types.Node{
		ProjectID: t.c.projectID,
		Type:      types.NodeTypeGroup,
		Data:      types.NodeData{Label: label},
	}
	result, err := t.c.store.CreateNode(ctx, node)
	if err != nil {
		return toolError(err)
	}
	t.c.propose(result)
	return fmt.Sprintf("Created workspace %q with id %s. Use it as parent_id for nodes belonging to this task.", label, result.NodeID)
}

type createGenerationNodeTool struct{ c *CanvasTools }

func (t *createGenerationNodeTool) Name() string { return "create_generation_node" }

func (t *createGenerationNodeTool) Description() string {
	return "Create an action-badge node requesting an image or video generation. The node is created idle; call run_generation_node to dispatch it."
}

func (t *createGenerationNodeTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"action_type": {"type": "string", "enum": ["image-gen", "video-gen"]},
			"prompt": {"type": "string", "description": "Generation prompt text"},
			"parent_id": {"type": "string", "description": "Optional workspace group id"},
			"upstream_node_ids": {"type": "array", "items": {"type": "string"}, "description": "Nodes this generation depends on (e.g. source images for video)"}
		},
		"required": ["action_type"]
	}`)
}

func (t *createGenerationNodeTool) Invoke(ctx context.Context, args map[string]any) string {
	actionRaw, ok := stringArg(args, "action_type")
	if !ok {
		return "Error: create_generation_node needs an action_type of image-gen or video-gen"
	}
	action := types.ActionType(actionRaw)
	if !action.Valid() {
		return fmt.Sprintf("Error: unknown action_type %q, expected image-gen or video-gen", actionRaw)
	}

	node := &types.Node{
		ProjectID: t.c.projectID,
		Type:      types.NodeTypeActionBadge,
		Data: types.NodeData{
			ActionType: action,
		},
	}
	if prompt, ok := stringArg(args, "prompt"); ok {
		node.Data.Prompt = prompt
	}
	if parent, ok := stringArg(args, "parent_id"); ok {
		node.ParentID = parent
	}
	if ups, ok := args["upstream_node_ids"].([]any); ok {
		for _, u := range ups {
			if s, ok := u.(string); ok && s != "" {
				node.Data.UpstreamNodeIDs = append(node.Data.UpstreamNodeIDs, s)
			}
		}
	}

	result, err := t.c.store.CreateNode(ctx, node)
	if err != nil {
		return toolError(err)
	}
	t.c.propose(result)

	// Materialize the user-drawn style dependency edges so validators that
	// scan edges see the same graph as ones reading the embedded list.
	for _, upstream := range node.Data.UpstreamNodeIDs {
		edge := &types.Edge{
			ID:        fmt.Sprintf("%s-%s", upstream, result.NodeID),
			ProjectID: t.c.projectID,
			Source:    upstream,
			Target:    result.NodeID,
		}
		if _, err := t.c.store.EnsureEdge(ctx, edge); err != nil {
			t.c.logger.Warn("dependency edge creation failed",
				zap.String("node_id", result.NodeID),
				zap.String("upstream_id", upstream),
				zap.Error(err),
			)
		}
	}

	return fmt.Sprintf("Created %s node %s. Call run_generation_node with node_id=%s to start it.", action, result.NodeID, result.NodeID)
}

type runGenerationNodeTool struct{ c *CanvasTools }

func (t *runGenerationNodeTool) Name() string { return "run_generation_node" }

func (t *runGenerationNodeTool) Description() string {
	return "Dispatch an action-badge generation node: resolves its prompt, validates dependencies, and starts the generation. Returns the asset node id to wait on."
}

func (t *runGenerationNodeTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"node_id": {"type": "string", "description": "Id of the action-badge node to dispatch"}
		},
		"required": ["node_id"]
	}`)
}

func (t *runGenerationNodeTool) Invoke(ctx context.Context, args map[string]any) string {
	nodeID, ok := stringArg(args, "node_id")
	if !ok {
		return "Error: run_generation_node needs a node_id"
	}

	result, err := t.c.dispatcher.Run(ctx, t.c.projectID, nodeID)
	if err != nil {
		return toolError(err)
	}
	return fmt.Sprintf("Generation started. A %s asset node %s was created with status generating; call wait_for_generation with asset_id=%s to await the result.",
		result.Kind, result.AssetID, result.AssetID)
}

type waitForGenerationTool struct{ c *CanvasTools }

func (t *waitForGenerationTool) Name() string { return "wait_for_generation" }

func (t *waitForGenerationTool) Description() string {
	return "Wait for a generating asset node to finish, up to a bounded timeout. A timeout is not a failure; the generation keeps running and you can wait again."
}

func (t *waitForGenerationTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"asset_id": {"type": "string", "description": "Id of the asset node to wait on"},
			"timeout_seconds": {"type": "integer", "description": "Maximum seconds to wait (default 120)"}
		},
		"required": ["asset_id"]
	}`)
}

func (t *waitForGenerationTool) Invoke(ctx context.Context, args map[string]any) string {
	assetID, ok := stringArg(args, "asset_id")
	if !ok {
		return "Error: wait_for_generation needs an asset_id"
	}

	budget := time.Duration(0)
	if secs, ok := args["timeout_seconds"].(float64); ok && secs > 0 {
		budget = time.Duration(secs) * time.Second
	}

	var (
		result *dispatch.WaitResult
		err    error
	)
	if budget > 0 {
		result, err = t.c.waiter.WaitFor(ctx, t.c.projectID, assetID, budget)
	} else {
		result, err = t.c.waiter.Wait(ctx, t.c.projectID, assetID)
	}
	if err != nil {
		return toolError(err)
	}

	switch {
	case result.TimedOut:
		return fmt.Sprintf("Asset %s is still generating after %s. Retry wait_for_generation to keep waiting.", assetID, result.Elapsed.Round(time.Second))
	case result.Status == types.StatusFailed:
		return fmt.Sprintf("Error: generation of asset %s failed", assetID)
	case result.OutputRef != "":
		return fmt.Sprintf("Asset %s completed: %s", assetID, result.OutputRef)
	default:
		return fmt.Sprintf("Asset %s completed", assetID)
	}
}
