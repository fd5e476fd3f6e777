package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanAdvance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		from AssetStatus
		to   AssetStatus
		want bool
	}{
		{"none to pending", StatusNone, StatusPending, true},
		{"none to generating", StatusNone, StatusGenerating, true},
		{"pending to generating", StatusPending, StatusGenerating, true},
		{"generating to completed", StatusGenerating, StatusCompleted, true},
		{"generating to failed", StatusGenerating, StatusFailed, true},
		{"generating to pending", StatusGenerating, StatusPending, false},
		{"completed to generating", StatusCompleted, StatusGenerating, false},
		{"failed to generating", StatusFailed, StatusGenerating, false},
		{"completed to failed", StatusCompleted, StatusFailed, false},
		{"same state", StatusGenerating, StatusGenerating, false},
		{"unknown status", AssetStatus("bogus"), StatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanAdvance(tt.from, tt.to))
		})
	}
}

func TestNodeFromMap(t *testing.T) {
	t.Parallel()

	raw := map[string]any{
		"id":   "brave-crimson-otter",
		"type": "action-badge",
		"data": map[string]any{
			"actionType":      "video-gen",
			"prompt":          "a red fox",
			"upstreamNodeIds": []any{"calm-azure-heron"},
			"status":          "pending",
			"duration":        float64(5),
		},
		"position": map[string]any{"x": 10.0, "y": 20.0},
	}

	node, err := NodeFromMap("proj-1", "brave-crimson-otter", raw)
	require.NoError(t, err)
	assert.Equal(t, NodeTypeActionBadge, node.Type)
	assert.Equal(t, ActionVideoGen, node.Data.ActionType)
	assert.Equal(t, "a red fox", node.Data.Prompt)
	assert.Equal(t, []string{"calm-azure-heron"}, node.Data.UpstreamNodeIDs)
	assert.Equal(t, StatusPending, node.Data.Status)
	assert.Equal(t, 5, node.Data.Duration)
	assert.Equal(t, 10.0, node.X)
	assert.True(t, node.IsGenerationAction())
}

func TestNodeFromMap_FlattenedData(t *testing.T) {
	t.Parallel()

	// Some canvas authors write data keys directly onto the record.
	raw := map[string]any{
		"id":      "n1",
		"type":    "text",
		"content": "hello",
	}
	node, err := NodeFromMap("p", "n1", raw)
	require.NoError(t, err)
	assert.Equal(t, "hello", node.Data.Content)
}

func TestNodeFromMap_Malformed(t *testing.T) {
	t.Parallel()

	_, err := NodeFromMap("p", "n1", nil)
	assert.Equal(t, ErrMalformedNode, GetErrorCode(err))

	_, err = NodeFromMap("p", "n1", map[string]any{"id": "n1"})
	assert.Equal(t, ErrMalformedNode, GetErrorCode(err))
}

func TestNodeRoundTrip(t *testing.T) {
	t.Parallel()

	node := &Node{
		ID:        "calm-azure-heron",
		ProjectID: "proj-1",
		Type:      NodeTypeImage,
		Data: NodeData{
			Label:        "Generating image...",
			Prompt:       "a red fox",
			SourceNodeID: "brave-crimson-otter",
			Status:       StatusGenerating,
		},
	}

	back, err := NodeFromMap("proj-1", "", node.ToMap())
	require.NoError(t, err)
	assert.Equal(t, node.ID, back.ID)
	assert.Equal(t, node.Type, back.Type)
	assert.Equal(t, node.Data.Prompt, back.Data.Prompt)
	assert.Equal(t, node.Data.SourceNodeID, back.Data.SourceNodeID)
	assert.Equal(t, node.Data.Status, back.Data.Status)
}

func TestEdgeFromMap(t *testing.T) {
	t.Parallel()

	edge, err := EdgeFromMap("p", "e1", map[string]any{
		"source": "a",
		"target": "b",
	})
	require.NoError(t, err)
	assert.Equal(t, "a", edge.Source)
	assert.Equal(t, "b", edge.Target)
	assert.True(t, edge.SameEndpoints(Edge{Source: "a", Target: "b"}))
	assert.False(t, edge.SameEndpoints(Edge{Source: "b", Target: "a"}))

	_, err = EdgeFromMap("p", "e2", map[string]any{"source": "a"})
	assert.Error(t, err)
}

func TestMaterialized(t *testing.T) {
	t.Parallel()

	assert.False(t, NodeData{Status: StatusGenerating}.Materialized())
	assert.True(t, NodeData{Src: "http://x/y.png"}.Materialized())
	assert.True(t, NodeData{URL: "http://x/y.png"}.Materialized())
	assert.True(t, NodeData{Status: StatusCompleted}.Materialized())
	assert.Equal(t, "http://a", NodeData{Src: "http://a", URL: "http://b"}.OutputRef())
}
