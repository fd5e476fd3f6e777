package api

import "github.com/studioflow/canvasflow/types"

// CreateNodeRequest creates a canvas node. ID is optional; when empty the
// server allocates a semantic id.
type CreateNodeRequest struct {
	ID       string         `json:"id,omitempty"`
	Type     types.NodeType `json:"type"`
	ParentID string         `json:"parent_id,omitempty"`
	Data     types.NodeData `json:"data"`
}

// CreateNodeResponse reports a created node.
type CreateNodeResponse struct {
	NodeID      string `json:"node_id"`
	SyncedToDoc bool   `json:"synced_to_doc"`
}

// CreateEdgeRequest connects two existing nodes. Duplicate (source, target)
// pairs are suppressed rather than rejected.
type CreateEdgeRequest struct {
	ID           string `json:"id,omitempty"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"source_handle,omitempty"`
	TargetHandle string `json:"target_handle,omitempty"`
}

// CreateEdgeResponse reports whether a new edge row was written.
type CreateEdgeResponse struct {
	Created bool `json:"created"`
}

// DispatchResponse reports a generation dispatch.
type DispatchResponse struct {
	AssetID         string         `json:"asset_id"`
	Kind            types.NodeType `json:"kind"`
	Atomic          bool           `json:"atomic"`
	Prompt          string         `json:"prompt"`
	ReferenceImages []string       `json:"reference_images,omitempty"`
}

// WaitRequest bounds how long a wait call may block.
type WaitRequest struct {
	TimeoutSeconds float64 `json:"timeout_seconds,omitempty"`
}

// WaitResponse reports the asset state observed when waiting ended.
type WaitResponse struct {
	AssetID   string            `json:"asset_id"`
	Status    types.AssetStatus `json:"status"`
	OutputRef string            `json:"output_ref,omitempty"`
	TimedOut  bool              `json:"timed_out"`
	ElapsedMS int64             `json:"elapsed_ms"`
}

// RepairResponse summarizes a consistency sweep over one project.
type RepairResponse struct {
	StuckActions   int `json:"stuck_actions"`
	OrphanedAssets int `json:"orphaned_assets"`
	MissingEdges   int `json:"missing_edges"`
}

// InterruptResponse reports whether this caller won the interrupt race.
type InterruptResponse struct {
	Accepted bool `json:"accepted"`
}

// ThreadStatusResponse reports the cooperative cancellation state of an
// agent thread.
type ThreadStatusResponse struct {
	ThreadID    string `json:"thread_id"`
	Interrupted bool   `json:"interrupted"`
}
