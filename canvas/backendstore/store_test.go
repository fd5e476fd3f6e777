package backendstore

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/studioflow/canvasflow/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	store, err := New(db, zap.NewNop())
	require.NoError(t, err)
	return store
}

func textNode(projectID, id, content string) *types.Node {
	return &types.Node{
		ID:        id,
		ProjectID: projectID,
		Type:      types.NodeTypeText,
		Data:      types.NodeData{Content: content},
	}
}

func TestStore_CreateAndReadNode(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateNode(ctx, textNode("proj", "brave-amber-otter", "hello")))

	node, err := store.ReadNode(ctx, "proj", "brave-amber-otter")
	require.NoError(t, err)
	assert.Equal(t, types.NodeTypeText, node.Type)
	assert.Equal(t, "hello", node.Data.Content)
}

func TestStore_ReadNode_NotFound(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	_, err := store.ReadNode(context.Background(), "proj", "missing")
	assert.Equal(t, types.ErrNodeNotFound, types.GetErrorCode(err))
}

func TestStore_CreateNode_DuplicateID(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateNode(ctx, textNode("proj", "dup", "a")))
	err := store.CreateNode(ctx, textNode("proj", "dup", "b"))
	assert.Error(t, err, "unique (project, node) index rejects reuse")

	// Same id in a different project is fine.
	assert.NoError(t, store.CreateNode(ctx, textNode("other", "dup", "c")))
}

func TestStore_UpdateNode(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	node := &types.Node{
		ID:        "badge-1",
		ProjectID: "proj",
		Type:      types.NodeTypeActionBadge,
		Data:      types.NodeData{ActionType: types.ActionImageGen, Prompt: "a red fox"},
	}
	require.NoError(t, store.CreateNode(ctx, node))

	node.Data.Status = types.StatusGenerating
	node.Data.AssetID = "calm-jade-heron"
	require.NoError(t, store.UpdateNode(ctx, node))

	got, err := store.ReadNode(ctx, "proj", "badge-1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusGenerating, got.Data.Status)
	assert.Equal(t, "calm-jade-heron", got.Data.AssetID)
	assert.Equal(t, "a red fox", got.Data.Prompt)
}

func TestStore_UpdateNode_Missing(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	err := store.UpdateNode(context.Background(), textNode("proj", "ghost", "x"))
	assert.Equal(t, types.ErrNodeNotFound, types.GetErrorCode(err))
}

func TestStore_ListNodes(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateNode(ctx, textNode("proj", "a", "1")))
	require.NoError(t, store.CreateNode(ctx, textNode("proj", "b", "2")))
	require.NoError(t, store.CreateNode(ctx, textNode("other", "c", "3")))

	nodes, err := store.ListNodes(ctx, "proj")
	require.NoError(t, err)
	assert.Len(t, nodes, 2)
}

func TestStore_SearchNodes(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateNode(ctx, textNode("proj", "a", "the quick brown fox")))
	require.NoError(t, store.CreateNode(ctx, textNode("proj", "b", "lazy dog")))

	nodes, err := store.SearchNodes(ctx, "proj", "brown fox")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "a", nodes[0].ID)
}

func TestStore_Edges(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateEdge(ctx, &types.Edge{
		ID: "e1", ProjectID: "proj", Source: "a", Target: "b",
	}))

	edges, err := store.ListEdges(ctx, "proj")
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "a", edges[0].Source)
	assert.Equal(t, "b", edges[0].Target)
}

func TestStore_ExistsChecker(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	taken, err := store.Exists(ctx, "brave-amber-otter", "proj")
	require.NoError(t, err)
	assert.False(t, taken)

	require.NoError(t, store.CreateNode(ctx, textNode("proj", "brave-amber-otter", "")))

	taken, err = store.Exists(ctx, "brave-amber-otter", "proj")
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = store.Exists(ctx, "brave-amber-otter", "other")
	require.NoError(t, err)
	assert.False(t, taken)
}
