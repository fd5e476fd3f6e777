package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/studioflow/canvasflow/canvas"
	"github.com/studioflow/canvasflow/internal/metrics"
	"github.com/studioflow/canvasflow/types"
)

// Config carries provider defaults stamped onto pending video assets.
type Config struct {
	// DefaultVideoDuration is in seconds.
	DefaultVideoDuration int `yaml:"default_video_duration" json:"default_video_duration"`
	// DefaultVideoModel names the provider model for video generation.
	DefaultVideoModel string `yaml:"default_video_model" json:"default_video_model"`
}

// DefaultConfig returns the dispatcher defaults.
func DefaultConfig() Config {
	return Config{
		DefaultVideoDuration: 5,
		DefaultVideoModel:    "kling-v1-6",
	}
}

// DispatchResult reports a successful dispatch.
type DispatchResult struct {
	// AssetID is the freshly allocated id of the pending asset node.
	AssetID string
	// Kind is the asset node type (image or video).
	Kind types.NodeType
	// Atomic is false when the write degraded to the three-step fallback
	// path; a crash mid-fallback can leave a partially updated graph.
	Atomic bool
	// ReferenceImages is the ordered reference list passed to the video
	// provider (empty for image generation).
	ReferenceImages []string
	// Prompt is the resolved prompt text.
	Prompt string
}

// Dispatcher is the run-generation orchestration entry point.
type Dispatcher struct {
	store     *canvas.Store
	prompts   *PromptResolver
	deps      *DependencyValidator
	cfg       Config
	collector *metrics.Collector
	logger    *zap.Logger
}

// NewDispatcher wires the dispatcher. collector may be nil.
func NewDispatcher(store *canvas.Store, cfg Config, collector *metrics.Collector, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultVideoDuration <= 0 {
		cfg.DefaultVideoDuration = DefaultConfig().DefaultVideoDuration
	}
	if cfg.DefaultVideoModel == "" {
		cfg.DefaultVideoModel = DefaultConfig().DefaultVideoModel
	}
	return &Dispatcher{
		store:     store,
		prompts:   NewPromptResolver(store, logger),
		deps:      NewDependencyValidator(store, logger),
		cfg:       cfg,
		collector: collector,
		logger:    logger.With(zap.String("component", "generation_dispatcher")),
	}
}

// Run dispatches one action node:
//
//	[authored] -> validation -> [dispatching] -> write -> [generating]
//
// Any precondition failure returns an error with no state persisted; the
// node stays authored and the call is safe to retry. Run is NOT
// idempotent: a second call before the first asset materializes allocates
// a second asset and edge.
func (d *Dispatcher) Run(ctx context.Context, projectID, nodeID string) (*DispatchResult, error) {
	start := time.Now()

	node, err := d.readActionNode(ctx, projectID, nodeID)
	if err != nil {
		return nil, err
	}

	if !node.IsGenerationAction() {
		return nil, types.Errorf(types.ErrNotAGenerationNode,
			"node %s is %q/%q, not a dispatchable generation action",
			nodeID, node.Type, node.Data.ActionType).
			WithNodeID(nodeID)
	}
	action := node.Data.ActionType

	edges, err := d.store.ListEdges(ctx, projectID)
	if err != nil {
		return nil, err
	}
	upstreamIDs := ResolveUpstreamIDs(node, edges)

	prompt, err := d.prompts.Resolve(ctx, node, upstreamIDs)
	if err != nil {
		return nil, err
	}

	validation, err := d.deps.Validate(ctx, node, upstreamIDs)
	if err != nil {
		return nil, err
	}

	assetID, err := d.store.AllocateID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	asset := d.buildPendingAsset(node, assetID, prompt, validation)

	result := &DispatchResult{
		AssetID:         assetID,
		Kind:            asset.Type,
		ReferenceImages: validation.ReferenceImages,
		Prompt:          prompt,
	}

	// The write should not clobber fields of the action node this code
	// does not model, so merge into the complete current record. When that
	// record cannot be read, or no live document exists for the batch,
	// degrade to the non-atomic path rather than failing the dispatch.
	if err := d.writeAtomic(ctx, projectID, node, asset); err == nil {
		result.Atomic = true
	} else {
		d.logger.Warn("atomic dispatch path unavailable, degrading to sequential writes",
			zap.String("node_id", nodeID),
			zap.String("asset_id", assetID),
			zap.Error(err),
		)
		if err := d.writeFallback(ctx, node, asset); err != nil {
			d.record(action, "fallback", "failure", start)
			return nil, err
		}
	}

	path := "fallback"
	if result.Atomic {
		path = "atomic"
	}
	d.record(action, path, "success", start)
	d.logger.Info("generation dispatched",
		zap.String("node_id", nodeID),
		zap.String("asset_id", assetID),
		zap.String("action", string(action)),
		zap.Bool("atomic", result.Atomic),
		zap.Int("reference_images", len(validation.ReferenceImages)),
	)
	return result, nil
}

// readActionNode reads through the store's typed path and, when that
// reports absence, probes the document's underlying raw map before giving
// up. Records the typed path cannot deserialize are still dispatchable.
func (d *Dispatcher) readActionNode(ctx context.Context, projectID, nodeID string) (*types.Node, error) {
	node, err := d.store.GetNode(ctx, projectID, nodeID)
	if err == nil {
		return node, nil
	}
	if types.GetErrorCode(err) != types.ErrNodeNotFound {
		return nil, err
	}

	raw, ok := d.store.RawDocNode(nodeID)
	if !ok {
		return nil, err
	}
	node, rawErr := types.NodeFromMap(projectID, nodeID, raw)
	if rawErr != nil {
		d.logger.Warn("raw document record exists but cannot be coerced",
			zap.String("node_id", nodeID), zap.Error(rawErr))
		return nil, rawErr
	}
	return node, nil
}

func (d *Dispatcher) buildPendingAsset(action *types.Node, assetID, prompt string, validation *ValidationResult) *types.Node {
	kind := action.Data.ActionType.AssetKind()
	label := "Generating image..."
	if kind == types.NodeTypeVideo {
		label = "Generating video..."
	}

	asset := &types.Node{
		ID:        assetID,
		ProjectID: action.ProjectID,
		Type:      kind,
		ParentID:  action.ParentID,
		Data: types.NodeData{
			Label:        label,
			Prompt:       prompt,
			SourceNodeID: action.ID,
			Status:       types.StatusGenerating,
		},
	}
	if kind == types.NodeTypeVideo {
		asset.Data.ReferenceImages = validation.ReferenceImages
		asset.Data.Duration = d.cfg.DefaultVideoDuration
		asset.Data.Model = d.cfg.DefaultVideoModel
	}
	return asset
}

// writeAtomic performs the create-asset + update-action + create-edge
// triple as one document batch.
func (d *Dispatcher) writeAtomic(ctx context.Context, projectID string, action, asset *types.Node) error {
	full, err := d.store.FullNodeRecord(ctx, projectID, action.ID)
	if err != nil {
		return fmt.Errorf("full action record unavailable: %w", err)
	}

	merged := mergeActionPatch(full, asset.ID)

	nodes := map[string]map[string]any{
		asset.ID:  asset.ToMap(),
		action.ID: merged,
	}

	var edges map[string]map[string]any
	exists, err := d.store.EdgeExists(ctx, projectID, action.ID, asset.ID)
	if err != nil {
		return err
	}
	if !exists {
		edge := types.Edge{
			ID:        uuid.NewString(),
			ProjectID: projectID,
			Source:    action.ID,
			Target:    asset.ID,
		}
		edges = map[string]map[string]any{edge.ID: edge.ToMap()}
	}

	return d.store.BatchUpdateGraph(ctx, projectID, nodes, edges)
}

// writeFallback performs three separate writes in an order that never
// shows the action node as generating without its asset persisted: asset
// first, then the action update, then the edge. A crash between writes
// can still orphan the asset; the repair sweep detects that.
func (d *Dispatcher) writeFallback(ctx context.Context, action, asset *types.Node) error {
	if _, err := d.store.CreateNode(ctx, asset); err != nil {
		return types.NewError(types.ErrDispatchFailed, "pending asset write failed").
			WithCause(err).WithNodeID(action.ID)
	}

	action.Data.AssetID = asset.ID
	action.Data.Status = types.StatusGenerating
	if err := d.store.UpdateNode(ctx, action); err != nil {
		return types.NewError(types.ErrDispatchFailed,
			"action update failed after asset write; asset may be orphaned").
			WithCause(err).WithNodeID(action.ID)
	}

	edge := &types.Edge{
		ID:        uuid.NewString(),
		ProjectID: action.ProjectID,
		Source:    action.ID,
		Target:    asset.ID,
	}
	if _, err := d.store.EnsureEdge(ctx, edge); err != nil {
		return types.NewError(types.ErrDispatchFailed,
			"dependency edge write failed after asset and action writes").
			WithCause(err).WithNodeID(action.ID)
	}
	return nil
}

// mergeActionPatch overlays assetId and generating status onto the
// complete action record.
func mergeActionPatch(full map[string]any, assetID string) map[string]any {
	data, _ := full["data"].(map[string]any)
	if data == nil {
		data = map[string]any{}
		full["data"] = data
	}
	data["assetId"] = assetID
	data["status"] = string(types.StatusGenerating)
	return full
}

func (d *Dispatcher) record(action types.ActionType, path, status string, start time.Time) {
	d.collector.RecordDispatch(string(action), path, status, time.Since(start))
}
