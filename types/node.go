package types

import "fmt"

// NodeType identifies what a canvas node is.
type NodeType string

const (
	NodeTypeText        NodeType = "text"
	NodeTypeGroup       NodeType = "group"
	NodeTypeVideoEditor NodeType = "video-editor"
	NodeTypeImage       NodeType = "image"
	NodeTypeVideo       NodeType = "video"
	NodeTypeActionBadge NodeType = "action-badge"
)

// Prompt-bearing node types. An upstream node of one of these types may
// supply the effective prompt for a generation node.
const (
	NodeTypePrompt     NodeType = "prompt"
	NodeTypeTextInput  NodeType = "text-input"
	NodeTypePromptNode NodeType = "prompt-node"
)

// ActionType identifies the generation a badge node requests.
type ActionType string

const (
	ActionImageGen ActionType = "image-gen"
	ActionVideoGen ActionType = "video-gen"
)

// Valid reports whether the action type is a known generation action.
func (a ActionType) Valid() bool {
	return a == ActionImageGen || a == ActionVideoGen
}

// AssetKind returns the node type an action materializes as.
func (a ActionType) AssetKind() NodeType {
	if a == ActionVideoGen {
		return NodeTypeVideo
	}
	return NodeTypeImage
}

// AssetStatus is the lifecycle state of a generation asset. It only moves
// forward: "" -> pending -> generating -> completed|failed.
type AssetStatus string

const (
	StatusNone       AssetStatus = ""
	StatusPending    AssetStatus = "pending"
	StatusGenerating AssetStatus = "generating"
	StatusCompleted  AssetStatus = "completed"
	StatusFailed     AssetStatus = "failed"
)

// statusRank orders statuses along the forward-only lifecycle.
var statusRank = map[AssetStatus]int{
	StatusNone:       0,
	StatusPending:    1,
	StatusGenerating: 2,
	StatusCompleted:  3,
	StatusFailed:     3,
}

// CanAdvance reports whether moving from one status to another is a legal
// forward transition. Terminal states accept no further transitions.
func CanAdvance(from, to AssetStatus) bool {
	fr, ok := statusRank[from]
	if !ok {
		return false
	}
	tr, ok := statusRank[to]
	if !ok {
		return false
	}
	if from == StatusCompleted || from == StatusFailed {
		return false
	}
	return tr > fr
}

// Terminal reports whether the status is an end state.
func (s AssetStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// NodeData is the typed attribute bag of a canvas node. Raw store
// representations (CRDT maps, backend JSON) are coerced into this form
// exactly once, at the store boundary; everything downstream operates on
// NodeData only.
type NodeData struct {
	Label           string            `json:"label,omitempty"`
	Content         string            `json:"content,omitempty"`
	Prompt          string            `json:"prompt,omitempty"`
	Text            string            `json:"text,omitempty"`
	Value           string            `json:"value,omitempty"`
	ActionType      ActionType        `json:"actionType,omitempty"`
	UpstreamNodeIDs []string          `json:"upstreamNodeIds,omitempty"`
	AssetID         string            `json:"assetId,omitempty"`
	SourceNodeID    string            `json:"sourceNodeId,omitempty"`
	Status          AssetStatus       `json:"status,omitempty"`
	Src             string            `json:"src,omitempty"`
	URL             string            `json:"url,omitempty"`
	Base64          string            `json:"base64,omitempty"`
	ReferenceImages []string          `json:"referenceImages,omitempty"`
	Duration        int               `json:"duration,omitempty"`
	Model           string            `json:"model,omitempty"`
	Extra           map[string]string `json:"extra,omitempty"`
}

// Materialized reports whether the node's output exists somewhere a
// downstream consumer can fetch it.
func (d NodeData) Materialized() bool {
	return d.Src != "" || d.URL != "" || d.Status == StatusCompleted
}

// OutputRef returns the preferred reference to the materialized output.
func (d NodeData) OutputRef() string {
	if d.Src != "" {
		return d.Src
	}
	return d.URL
}

// Node is a canvas entity. IDs are human-readable semantic identifiers,
// unique within their project for the node's entire lifetime.
type Node struct {
	ID        string   `json:"id"`
	ProjectID string   `json:"project_id"`
	Type      NodeType `json:"type"`
	Data      NodeData `json:"data"`
	ParentID  string   `json:"parent_id,omitempty"`

	// Presentation only; carried through untouched.
	X, Y          float64 `json:"-"`
	Width, Height float64 `json:"-"`
}

// IsGenerationAction reports whether the node is a dispatchable
// generation badge.
func (n *Node) IsGenerationAction() bool {
	return n.Type == NodeTypeActionBadge && n.Data.ActionType.Valid()
}

// PromptBearing reports whether the node type can supply a prompt to a
// downstream generation node.
func (n *Node) PromptBearing() bool {
	switch n.Type {
	case NodeTypePrompt, NodeTypeText, NodeTypeTextInput, NodeTypePromptNode, NodeTypeActionBadge:
		return true
	}
	return false
}

// Edge is a directed relation between two nodes. Edge IDs are not
// guaranteed globally unique across authors, so duplicate suppression is
// keyed on (source, target), not on ID.
type Edge struct {
	ID           string `json:"id"`
	ProjectID    string `json:"project_id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"source_handle,omitempty"`
	TargetHandle string `json:"target_handle,omitempty"`
}

// SameEndpoints reports whether two edges connect the same ordered pair.
func (e Edge) SameEndpoints(other Edge) bool {
	return e.Source == other.Source && e.Target == other.Target
}

// String implements fmt.Stringer for log output.
func (e Edge) String() string {
	return fmt.Sprintf("%s->%s", e.Source, e.Target)
}
