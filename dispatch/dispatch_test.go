package dispatch

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/studioflow/canvasflow/canvas"
	"github.com/studioflow/canvasflow/canvas/crdt"
	"github.com/studioflow/canvasflow/identity"
	"github.com/studioflow/canvasflow/types"
)

const testProject = "proj-1"

type memBackend struct {
	mu    sync.Mutex
	nodes map[string]*types.Node
	edges []*types.Edge

	createNodeErr error
	updateNodeErr error
	createEdgeErr error
}

func newMemBackend() *memBackend {
	return &memBackend{nodes: make(map[string]*types.Node)}
}

func (b *memBackend) ReadNode(_ context.Context, _, nodeID string) (*types.Node, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok := b.nodes[nodeID]
	if !ok {
		return nil, types.Errorf(types.ErrNodeNotFound, "node %s not found", nodeID)
	}
	cp := *n
	return &cp, nil
}

func (b *memBackend) ListNodes(_ context.Context, _ string) ([]*types.Node, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*types.Node, 0, len(b.nodes))
	for _, n := range b.nodes {
		cp := *n
		out = append(out, &cp)
	}
	return out, nil
}

func (b *memBackend) CreateNode(_ context.Context, node *types.Node) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.createNodeErr != nil {
		return b.createNodeErr
	}
	cp := *node
	b.nodes[node.ID] = &cp
	return nil
}

func (b *memBackend) UpdateNode(_ context.Context, node *types.Node) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.updateNodeErr != nil {
		return b.updateNodeErr
	}
	if _, ok := b.nodes[node.ID]; !ok {
		return types.Errorf(types.ErrNodeNotFound, "node %s not found", node.ID)
	}
	cp := *node
	b.nodes[node.ID] = &cp
	return nil
}

func (b *memBackend) SearchNodes(_ context.Context, _, query string) ([]*types.Node, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*types.Node
	for _, n := range b.nodes {
		if n.Data.Label == query {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (b *memBackend) ListEdges(_ context.Context, _ string) ([]*types.Edge, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*types.Edge, len(b.edges))
	for i, e := range b.edges {
		cp := *e
		out[i] = &cp
	}
	return out, nil
}

func (b *memBackend) CreateEdge(_ context.Context, edge *types.Edge) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.createEdgeErr != nil {
		return b.createEdgeErr
	}
	cp := *edge
	b.edges = append(b.edges, &cp)
	return nil
}

func (b *memBackend) node(id string) *types.Node {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nodes[id]
}

func (b *memBackend) edgeCount(source string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.edges {
		if e.Source == source {
			n++
		}
	}
	return n
}

func (b *memBackend) put(n *types.Node) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := *n
	b.nodes[n.ID] = &cp
}

func (b *memBackend) addEdge(source, target string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.edges = append(b.edges, &types.Edge{
		ID:        fmt.Sprintf("e-%d", len(b.edges)),
		ProjectID: testProject,
		Source:    source,
		Target:    target,
	})
}

// newTestStore wires a store against the in-memory backend. withDoc adds a
// connected document replica so batch writes take the atomic path.
func newTestStore(t *testing.T, backend *memBackend, withDoc bool) (*canvas.Store, *crdt.Doc) {
	t.Helper()
	checker := identity.CheckerFunc(func(_ context.Context, id, _ string) (bool, error) {
		return backend.node(id) != nil, nil
	})
	alloc := identity.NewAllocator(checker, zap.NewNop(), identity.WithSeed(42))

	var doc *crdt.Doc
	var docIface canvas.Doc
	if withDoc {
		doc = crdt.NewDoc()
		doc.SetConnected(true)
		docIface = doc
	}
	return canvas.NewStore(backend, docIface, alloc, zap.NewNop()), doc
}

func actionNode(id string, action types.ActionType) *types.Node {
	return &types.Node{
		ID:        id,
		ProjectID: testProject,
		Type:      types.NodeTypeActionBadge,
		Data: types.NodeData{
			ActionType: action,
			Content:    "a castle at dusk",
		},
	}
}

func completedImage(id, src string) *types.Node {
	return &types.Node{
		ID:        id,
		ProjectID: testProject,
		Type:      types.NodeTypeImage,
		Data: types.NodeData{
			Status: types.StatusCompleted,
			Src:    src,
		},
	}
}

func seed(backend *memBackend, doc *crdt.Doc, nodes ...*types.Node) {
	for _, n := range nodes {
		backend.put(n)
		if doc != nil {
			doc.ApplyRemote(crdt.Update{Nodes: map[string]map[string]any{n.ID: n.ToMap()}})
		}
	}
}

func TestDispatchImageGenAtomic(t *testing.T) {
	backend := newMemBackend()
	store, doc := newTestStore(t, backend, true)
	seed(backend, doc, actionNode("act-1", types.ActionImageGen))

	d := NewDispatcher(store, DefaultConfig(), nil, zap.NewNop())
	result, err := d.Run(context.Background(), testProject, "act-1")
	require.NoError(t, err)
	assert.True(t, result.Atomic)
	assert.Equal(t, types.NodeTypeImage, result.Kind)
	assert.Equal(t, "a castle at dusk", result.Prompt)
	assert.NotEmpty(t, result.AssetID)

	asset := backend.node(result.AssetID)
	require.NotNil(t, asset, "asset must be written through to the backend")
	assert.Equal(t, types.NodeTypeImage, asset.Type)
	assert.Equal(t, types.StatusGenerating, asset.Data.Status)
	assert.Equal(t, "Generating image...", asset.Data.Label)
	assert.Equal(t, "act-1", asset.Data.SourceNodeID)

	action := backend.node("act-1")
	assert.Equal(t, result.AssetID, action.Data.AssetID)
	assert.Equal(t, types.StatusGenerating, action.Data.Status)

	assert.Equal(t, 1, backend.edgeCount("act-1"))

	// The document batch carried the same triple.
	raw, ok := doc.GetNode(result.AssetID)
	require.True(t, ok)
	data := raw["data"].(map[string]any)
	assert.Equal(t, string(types.StatusGenerating), data["status"])
}

func TestDispatchVideoGenCollectsReferences(t *testing.T) {
	backend := newMemBackend()
	store, doc := newTestStore(t, backend, true)
	act := actionNode("act-1", types.ActionVideoGen)
	seed(backend, doc, act,
		completedImage("img-1", "s3://frame-1.png"),
		completedImage("img-2", "s3://frame-2.png"),
	)
	backend.addEdge("img-1", "act-1")
	backend.addEdge("img-2", "act-1")
	doc.ApplyRemote(crdt.Update{Edges: map[string]map[string]any{
		"e-0": {"id": "e-0", "source": "img-1", "target": "act-1"},
		"e-1": {"id": "e-1", "source": "img-2", "target": "act-1"},
	}})

	d := NewDispatcher(store, DefaultConfig(), nil, zap.NewNop())
	result, err := d.Run(context.Background(), testProject, "act-1")
	require.NoError(t, err)
	assert.Equal(t, types.NodeTypeVideo, result.Kind)
	assert.ElementsMatch(t, []string{"s3://frame-1.png", "s3://frame-2.png"}, result.ReferenceImages)

	asset := backend.node(result.AssetID)
	require.NotNil(t, asset)
	assert.Equal(t, "Generating video...", asset.Data.Label)
	assert.Equal(t, DefaultConfig().DefaultVideoDuration, asset.Data.Duration)
	assert.Equal(t, DefaultConfig().DefaultVideoModel, asset.Data.Model)
	assert.ElementsMatch(t, []string{"s3://frame-1.png", "s3://frame-2.png"}, asset.Data.ReferenceImages)
}

func TestDispatchVideoGenWithoutSourceImageFails(t *testing.T) {
	backend := newMemBackend()
	store, doc := newTestStore(t, backend, true)
	act := actionNode("act-1", types.ActionVideoGen)
	pendingImg := &types.Node{
		ID: "img-1", ProjectID: testProject, Type: types.NodeTypeImage,
		Data: types.NodeData{Status: types.StatusPending},
	}
	seed(backend, doc, act, pendingImg)
	backend.addEdge("img-1", "act-1")

	d := NewDispatcher(store, DefaultConfig(), nil, zap.NewNop())
	_, err := d.Run(context.Background(), testProject, "act-1")
	require.Error(t, err)
	assert.Equal(t, types.ErrMissingSourceImage, types.GetErrorCode(err))

	// Validation failure persists nothing.
	assert.Empty(t, backend.node("act-1").Data.Status)
	assert.Empty(t, backend.node("act-1").Data.AssetID)
	assert.Len(t, backend.nodes, 2)
}

func TestDispatchNonGenerationNodeRejected(t *testing.T) {
	backend := newMemBackend()
	store, doc := newTestStore(t, backend, true)
	seed(backend, doc, &types.Node{
		ID: "txt-1", ProjectID: testProject, Type: types.NodeTypeText,
		Data: types.NodeData{Content: "hello"},
	})

	d := NewDispatcher(store, DefaultConfig(), nil, zap.NewNop())
	_, err := d.Run(context.Background(), testProject, "txt-1")
	require.Error(t, err)
	assert.Equal(t, types.ErrNotAGenerationNode, types.GetErrorCode(err))
}

func TestDispatchMissingNode(t *testing.T) {
	backend := newMemBackend()
	store, _ := newTestStore(t, backend, true)

	d := NewDispatcher(store, DefaultConfig(), nil, zap.NewNop())
	_, err := d.Run(context.Background(), testProject, "ghost")
	require.Error(t, err)
	assert.Equal(t, types.ErrNodeNotFound, types.GetErrorCode(err))
}

func TestDispatchNoPrompt(t *testing.T) {
	backend := newMemBackend()
	store, doc := newTestStore(t, backend, true)
	act := actionNode("act-1", types.ActionImageGen)
	act.Data.Content = PlaceholderPrompt
	seed(backend, doc, act)

	d := NewDispatcher(store, DefaultConfig(), nil, zap.NewNop())
	_, err := d.Run(context.Background(), testProject, "act-1")
	require.Error(t, err)
	assert.Equal(t, types.ErrNoPromptAvailable, types.GetErrorCode(err))
}

func TestDispatchUpstreamPromptFallback(t *testing.T) {
	backend := newMemBackend()
	store, doc := newTestStore(t, backend, true)
	act := actionNode("act-1", types.ActionImageGen)
	act.Data.Content = PlaceholderPrompt
	prompt := &types.Node{
		ID: "p-1", ProjectID: testProject, Type: types.NodeTypePrompt,
		Data: types.NodeData{Text: "a lighthouse in fog"},
	}
	seed(backend, doc, act, prompt)
	backend.addEdge("p-1", "act-1")
	doc.ApplyRemote(crdt.Update{Edges: map[string]map[string]any{
		"e-0": {"id": "e-0", "source": "p-1", "target": "act-1"},
	}})

	d := NewDispatcher(store, DefaultConfig(), nil, zap.NewNop())
	result, err := d.Run(context.Background(), testProject, "act-1")
	require.NoError(t, err)
	assert.Equal(t, "a lighthouse in fog", result.Prompt)
}

func TestDispatchFallbackPathWithoutDoc(t *testing.T) {
	backend := newMemBackend()
	store, _ := newTestStore(t, backend, false)
	seed(backend, nil, actionNode("act-1", types.ActionImageGen))

	d := NewDispatcher(store, DefaultConfig(), nil, zap.NewNop())
	result, err := d.Run(context.Background(), testProject, "act-1")
	require.NoError(t, err)
	assert.False(t, result.Atomic)

	asset := backend.node(result.AssetID)
	require.NotNil(t, asset)
	assert.Equal(t, types.StatusGenerating, asset.Data.Status)
	assert.Equal(t, types.StatusGenerating, backend.node("act-1").Data.Status)
	assert.Equal(t, 1, backend.edgeCount("act-1"))
}

func TestDispatchFallbackNoGeneratingLeakOnAssetFailure(t *testing.T) {
	backend := newMemBackend()
	store, _ := newTestStore(t, backend, false)
	seed(backend, nil, actionNode("act-1", types.ActionImageGen))
	backend.createNodeErr = fmt.Errorf("disk full")

	d := NewDispatcher(store, DefaultConfig(), nil, zap.NewNop())
	_, err := d.Run(context.Background(), testProject, "act-1")
	require.Error(t, err)
	assert.Equal(t, types.ErrDispatchFailed, types.GetErrorCode(err))

	// The asset write failed first, so the action never advanced.
	action := backend.node("act-1")
	assert.Empty(t, action.Data.Status)
	assert.Empty(t, action.Data.AssetID)
	assert.Equal(t, 0, backend.edgeCount("act-1"))
}

// Dispatch is intentionally not idempotent: a second call before the first
// asset materializes produces a second asset and a second edge.
func TestDispatchTwiceProducesTwoAssets(t *testing.T) {
	backend := newMemBackend()
	store, doc := newTestStore(t, backend, true)
	seed(backend, doc, actionNode("act-1", types.ActionImageGen))

	d := NewDispatcher(store, DefaultConfig(), nil, zap.NewNop())
	first, err := d.Run(context.Background(), testProject, "act-1")
	require.NoError(t, err)
	second, err := d.Run(context.Background(), testProject, "act-1")
	require.NoError(t, err)

	assert.NotEqual(t, first.AssetID, second.AssetID)
	assert.NotNil(t, backend.node(first.AssetID))
	assert.NotNil(t, backend.node(second.AssetID))
	assert.Equal(t, 2, backend.edgeCount("act-1"))

	// The action tracks the latest dispatch.
	assert.Equal(t, second.AssetID, backend.node("act-1").Data.AssetID)
}

func TestDispatchPreservesUnmodeledActionFields(t *testing.T) {
	backend := newMemBackend()
	store, doc := newTestStore(t, backend, true)
	act := actionNode("act-1", types.ActionImageGen)
	seed(backend, doc, act)
	// A field only other clients understand lives in the doc record.
	doc.ApplyRemote(crdt.Update{Nodes: map[string]map[string]any{
		"act-1": {"data": map[string]any{"theme": "noir"}},
	}})

	d := NewDispatcher(store, DefaultConfig(), nil, zap.NewNop())
	_, err := d.Run(context.Background(), testProject, "act-1")
	require.NoError(t, err)

	raw, ok := doc.GetNode("act-1")
	require.True(t, ok)
	data := raw["data"].(map[string]any)
	assert.Equal(t, "noir", data["theme"])
	assert.Equal(t, string(types.StatusGenerating), data["status"])
}
