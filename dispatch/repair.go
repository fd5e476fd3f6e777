package dispatch

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/studioflow/canvasflow/canvas"
	"github.com/studioflow/canvasflow/types"
)

// RepairReport summarizes one sweep over a project graph.
type RepairReport struct {
	// StuckActions is the number of action nodes found generating with no
	// persisted asset, failed so they can be redispatched.
	StuckActions int
	// OrphanedAssets is the number of in-flight assets whose source action
	// no longer points at them, failed to stop them dangling.
	OrphanedAssets int
	// MissingEdges is the number of action->asset dependency edges
	// recreated.
	MissingEdges int
}

// Repairer sweeps a project graph for the partial states a crashed or
// degraded dispatch can leave behind. Dispatch writes are sequenced so the
// asset lands before the action update, but the sequential fallback path
// and backend write-through lag can still leave orphans.
type Repairer struct {
	store       *canvas.Store
	concurrency int
	logger      *zap.Logger
}

// NewRepairer creates a sweep runner repairing up to concurrency nodes in
// parallel.
func NewRepairer(store *canvas.Store, concurrency int, logger *zap.Logger) *Repairer {
	if concurrency <= 0 {
		concurrency = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repairer{
		store:       store,
		concurrency: concurrency,
		logger:      logger.With(zap.String("component", "dispatch_repairer")),
	}
}

// Sweep scans every node in the project and repairs inconsistencies. The
// first repair write error aborts the sweep; the returned report covers
// repairs that finished before the abort.
func (r *Repairer) Sweep(ctx context.Context, projectID string) (*RepairReport, error) {
	nodes, err := r.store.ListNodes(ctx, projectID, canvas.ListFilter{})
	if err != nil {
		return nil, err
	}
	edges, err := r.store.ListEdges(ctx, projectID)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*types.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	edgeSet := make(map[[2]string]bool, len(edges))
	for _, e := range edges {
		edgeSet[[2]string{e.Source, e.Target}] = true
	}

	report := &RepairReport{}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	results := make(chan func(*RepairReport), len(nodes))
	for _, node := range nodes {
		node := node
		g.Go(func() error {
			outcome, err := r.repairNode(ctx, node, byID, edgeSet)
			if err != nil {
				return err
			}
			if outcome != nil {
				results <- outcome
			}
			return nil
		})
	}
	err = g.Wait()
	close(results)
	for apply := range results {
		apply(report)
	}
	if err != nil {
		return report, err
	}

	if report.StuckActions+report.OrphanedAssets+report.MissingEdges > 0 {
		r.logger.Info("repair sweep applied fixes",
			zap.String("project_id", projectID),
			zap.Int("stuck_actions", report.StuckActions),
			zap.Int("orphaned_assets", report.OrphanedAssets),
			zap.Int("missing_edges", report.MissingEdges),
		)
	}
	return report, nil
}

func (r *Repairer) repairNode(ctx context.Context, node *types.Node, byID map[string]*types.Node, edgeSet map[[2]string]bool) (func(*RepairReport), error) {
	switch {
	case node.IsGenerationAction() && node.Data.Status == types.StatusGenerating:
		return r.repairAction(ctx, node, byID, edgeSet)
	case (node.Type == types.NodeTypeImage || node.Type == types.NodeTypeVideo) && node.Data.Status == types.StatusGenerating:
		return r.repairAsset(ctx, node, byID)
	}
	return nil, nil
}

// repairAction handles an action node stuck in generating. When its asset
// never persisted the action is failed so a redispatch is possible; when
// only the dependency edge is missing the edge is recreated.
func (r *Repairer) repairAction(ctx context.Context, action *types.Node, byID map[string]*types.Node, edgeSet map[[2]string]bool) (func(*RepairReport), error) {
	assetID := action.Data.AssetID
	if assetID != "" {
		if _, ok := byID[assetID]; ok {
			if edgeSet[[2]string{action.ID, assetID}] {
				return nil, nil
			}
			edge := &types.Edge{
				ID:        action.ID + "-" + assetID,
				ProjectID: action.ProjectID,
				Source:    action.ID,
				Target:    assetID,
			}
			created, err := r.store.EnsureEdge(ctx, edge)
			if err != nil {
				return nil, err
			}
			if !created {
				return nil, nil
			}
			r.logger.Warn("recreated missing dependency edge",
				zap.String("action_id", action.ID),
				zap.String("asset_id", assetID),
			)
			return func(rep *RepairReport) { rep.MissingEdges++ }, nil
		}
	}

	action.Data.Status = types.StatusFailed
	if err := r.store.UpdateNode(ctx, action); err != nil {
		return nil, err
	}
	r.logger.Warn("failed stuck action with no persisted asset",
		zap.String("action_id", action.ID),
		zap.String("asset_id", assetID),
	)
	return func(rep *RepairReport) { rep.StuckActions++ }, nil
}

// repairAsset handles an in-flight asset whose source action no longer
// acknowledges it. Double dispatch is legal, so an asset is an orphan only
// when its source action is gone or has moved on to a different asset
// while not generating.
func (r *Repairer) repairAsset(ctx context.Context, asset *types.Node, byID map[string]*types.Node) (func(*RepairReport), error) {
	sourceID := asset.Data.SourceNodeID
	if sourceID == "" {
		return nil, nil
	}
	source, ok := byID[sourceID]
	if ok && (source.Data.Status == types.StatusGenerating || source.Data.AssetID == asset.ID) {
		return nil, nil
	}

	asset.Data.Status = types.StatusFailed
	if err := r.store.UpdateNode(ctx, asset); err != nil {
		return nil, err
	}
	r.logger.Warn("failed orphaned in-flight asset",
		zap.String("asset_id", asset.ID),
		zap.String("source_id", sourceID),
	)
	return func(rep *RepairReport) { rep.OrphanedAssets++ }, nil
}
