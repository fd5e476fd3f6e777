package dispatch

import (
	"context"

	"go.uber.org/zap"

	"github.com/studioflow/canvasflow/canvas"
	"github.com/studioflow/canvasflow/types"
)

// DependencyValidator resolves and validates upstream dependencies for an
// action node before dispatch.
type DependencyValidator struct {
	store  *canvas.Store
	logger *zap.Logger
}

// NewDependencyValidator creates a validator reading through the store.
func NewDependencyValidator(store *canvas.Store, logger *zap.Logger) *DependencyValidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DependencyValidator{
		store:  store,
		logger: logger.With(zap.String("component", "dependency_validator")),
	}
}

// ResolveUpstreamIDs prefers the node's embedded upstream list; when that
// was never populated (user-drawn connections exist only as edges) it
// scans edges whose target is this node and collects their sources.
func ResolveUpstreamIDs(node *types.Node, edges []*types.Edge) []string {
	if len(node.Data.UpstreamNodeIDs) > 0 {
		out := make([]string, len(node.Data.UpstreamNodeIDs))
		copy(out, node.Data.UpstreamNodeIDs)
		return out
	}
	var out []string
	for _, e := range edges {
		if e.Target == node.ID {
			out = append(out, e.Source)
		}
	}
	return out
}

// ValidationResult carries what dependency validation learned.
type ValidationResult struct {
	// ReferenceImages holds the materialized output of every validated
	// upstream image node, in upstream iteration order. Passed to the
	// video provider as reference frames.
	ReferenceImages []string
	// Checked is how many upstream candidates were examined.
	Checked int
}

// Validate applies the action-type-specific preconditions.
//
// image-gen has no upstream requirement; dependencies are optional
// context. video-gen requires at least one upstream image node whose
// output is materialized, and fails with MISSING_SOURCE_IMAGE (reporting
// how many candidates were checked) otherwise. The user-facing remedy is
// to connect an image node, which is a different fix than a missing
// prompt.
func (v *DependencyValidator) Validate(ctx context.Context, node *types.Node, upstreamIDs []string) (*ValidationResult, error) {
	result := &ValidationResult{Checked: len(upstreamIDs)}

	if node.Data.ActionType != types.ActionVideoGen {
		return result, nil
	}

	qualified := 0
	for _, id := range upstreamIDs {
		upstream, err := v.store.GetNode(ctx, node.ProjectID, id)
		if err != nil {
			v.logger.Debug("upstream unreadable during validation",
				zap.String("node_id", node.ID),
				zap.String("upstream_id", id),
				zap.Error(err),
			)
			continue
		}
		if upstream.Type != types.NodeTypeImage {
			continue
		}
		if !upstream.Data.Materialized() {
			continue
		}
		qualified++
		if ref := upstream.Data.OutputRef(); ref != "" {
			result.ReferenceImages = append(result.ReferenceImages, ref)
		}
	}

	if qualified == 0 {
		return nil, types.Errorf(types.ErrMissingSourceImage,
			"video generation for %s needs a completed upstream image; checked %d upstream node(s)",
			node.ID, result.Checked).
			WithNodeID(node.ID)
	}
	return result, nil
}
