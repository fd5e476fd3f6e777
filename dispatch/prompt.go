package dispatch

import (
	"context"

	"go.uber.org/zap"

	"github.com/studioflow/canvasflow/canvas"
	"github.com/studioflow/canvasflow/types"
)

// PlaceholderPrompt is the untouched editor template. A content field equal
// to it means the user never wrote a prompt, so it must be treated as
// absent rather than sent to a provider.
const PlaceholderPrompt = "Enter your prompt here..."

// PromptResolver computes the effective generation prompt for an action
// node.
type PromptResolver struct {
	store  *canvas.Store
	logger *zap.Logger
}

// NewPromptResolver creates a resolver reading upstream nodes through the
// given store.
func NewPromptResolver(store *canvas.Store, logger *zap.Logger) *PromptResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PromptResolver{
		store:  store,
		logger: logger.With(zap.String("component", "prompt_resolver")),
	}
}

// Resolve walks the priority chain: the node's own content (placeholder
// treated as absent), the node's own prompt, then the first upstream
// prompt-bearing node that yields text. Fails with NO_PROMPT_AVAILABLE when
// every step comes up empty.
func (r *PromptResolver) Resolve(ctx context.Context, node *types.Node, upstreamIDs []string) (string, error) {
	if node.Data.Content != "" && node.Data.Content != PlaceholderPrompt {
		return node.Data.Content, nil
	}
	if node.Data.Prompt != "" {
		return node.Data.Prompt, nil
	}

	for _, id := range upstreamIDs {
		upstream, err := r.store.GetNode(ctx, node.ProjectID, id)
		if err != nil {
			// A missing upstream is not fatal for prompt resolution; the
			// next candidate may still yield text.
			r.logger.Debug("upstream unreadable during prompt resolution",
				zap.String("node_id", node.ID),
				zap.String("upstream_id", id),
				zap.Error(err),
			)
			continue
		}
		if !upstream.PromptBearing() {
			continue
		}
		if text := upstreamText(upstream); text != "" {
			return text, nil
		}
	}

	return "", types.Errorf(types.ErrNoPromptAvailable,
		"no prompt on node %s or any of its %d upstream nodes", node.ID, len(upstreamIDs)).
		WithNodeID(node.ID)
}

// upstreamText extracts prompt text from an upstream node, first present
// field wins: content, text, value, prompt.
func upstreamText(node *types.Node) string {
	for _, candidate := range []string{
		node.Data.Content,
		node.Data.Text,
		node.Data.Value,
		node.Data.Prompt,
	} {
		if candidate != "" && candidate != PlaceholderPrompt {
			return candidate
		}
	}
	return ""
}
