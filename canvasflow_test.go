package canvasflow

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/studioflow/canvasflow/config"
	"github.com/studioflow/canvasflow/types"
)

func openTestPlatform(t *testing.T) *Platform {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Database.Name = filepath.Join(t.TempDir(), "canvas.db")

	p, err := Open(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func TestOpenAndDispatchEndToEnd(t *testing.T) {
	p := openTestPlatform(t)
	ctx := context.Background()

	_, err := p.Store.CreateNode(ctx, &types.Node{
		ID:        "badge-1",
		ProjectID: "proj-1",
		Type:      types.NodeTypeActionBadge,
		Data:      types.NodeData{ActionType: types.ActionImageGen, Prompt: "a lighthouse at night"},
	})
	require.NoError(t, err)

	result, err := p.Dispatcher.Run(ctx, "proj-1", "badge-1")
	require.NoError(t, err)
	assert.Equal(t, types.NodeTypeImage, result.Kind)

	asset, err := p.Store.GetNode(ctx, "proj-1", result.AssetID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusGenerating, asset.Data.Status)
	assert.Equal(t, "badge-1", asset.Data.SourceNodeID)
}

func TestOpenAllocatesSemanticIDs(t *testing.T) {
	p := openTestPlatform(t)

	result, err := p.Store.CreateNode(context.Background(), &types.Node{
		ProjectID: "proj-1",
		Type:      types.NodeTypeText,
		Data:      types.NodeData{Content: "scene outline"},
	})
	require.NoError(t, err)
	assert.Regexp(t, `^[a-z]+-[a-z]+-[a-z]+$`, result.NodeID)
}

func TestInterruptsAreWired(t *testing.T) {
	p := openTestPlatform(t)
	ctx := context.Background()

	require.NoError(t, p.Interrupts.Begin(ctx, "thread-1"))
	won, err := p.Interrupts.RequestInterrupt(ctx, "thread-1")
	require.NoError(t, err)
	assert.True(t, won)
}
