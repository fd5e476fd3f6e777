package canvas

import (
	"context"

	"go.uber.org/zap"

	"github.com/studioflow/canvasflow/identity"
	"github.com/studioflow/canvasflow/types"
)

// Backend is the authoritative CRUD surface, keyed by (project, node).
// Implementations must return a types.Error with code NODE_NOT_FOUND for
// absent records so the store can distinguish absence from failure.
type Backend interface {
	ReadNode(ctx context.Context, projectID, nodeID string) (*types.Node, error)
	ListNodes(ctx context.Context, projectID string) ([]*types.Node, error)
	CreateNode(ctx context.Context, node *types.Node) error
	UpdateNode(ctx context.Context, node *types.Node) error
	SearchNodes(ctx context.Context, projectID, query string) ([]*types.Node, error)
	ListEdges(ctx context.Context, projectID string) ([]*types.Edge, error)
	CreateEdge(ctx context.Context, edge *types.Edge) error
}

// Doc is the replicated document handle the store reads through when
// connected. Satisfied by *crdt.Doc.
type Doc interface {
	GetNode(id string) (map[string]any, bool)
	GetAllNodes() map[string]map[string]any
	GetAllEdges() map[string]map[string]any
	AddNode(id string, raw map[string]any)
	UpdateNode(id string, patch map[string]any)
	AddEdge(id string, raw map[string]any)
	BatchUpdateGraph(nodes, edges map[string]map[string]any)
	Connected() bool
}

// CreateResult reports a node creation. Proposal is the serializable record
// propagated to clients. SyncedToDoc is false when the best-effort document
// write did not happen (disconnected or absent handle); creation itself
// still succeeded.
type CreateResult struct {
	NodeID      string
	Proposal    map[string]any
	SyncedToDoc bool
}

// ListFilter narrows ListNodes results.
type ListFilter struct {
	Type   types.NodeType
	Parent string
}

// Store reconciles the backend and the replicated document into one graph
// view.
type Store struct {
	backend Backend
	doc     Doc
	alloc   *identity.Allocator
	logger  *zap.Logger
}

// NewStore creates a Store. doc may be nil when no replication is
// configured; every read then consults the backend only.
func NewStore(backend Backend, doc Doc, alloc *identity.Allocator, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		backend: backend,
		doc:     doc,
		alloc:   alloc,
		logger:  logger.With(zap.String("component", "canvas_store")),
	}
}

func (s *Store) docLive() bool {
	return s.doc != nil && s.doc.Connected()
}

// AllocateID draws a fresh project-scoped semantic id.
func (s *Store) AllocateID(ctx context.Context, projectID string) (string, error) {
	return s.alloc.Allocate(ctx, projectID)
}

// GetNode reads one node, document first when live, backend otherwise.
// Reports NODE_NOT_FOUND only when every consulted store lacks the node.
func (s *Store) GetNode(ctx context.Context, projectID, nodeID string) (*types.Node, error) {
	if s.docLive() {
		if raw, ok := s.doc.GetNode(nodeID); ok {
			node, err := types.NodeFromMap(projectID, nodeID, raw)
			if err == nil {
				return node, nil
			}
			// A record the typed path cannot coerce is not absence; try
			// the backend before giving up.
			s.logger.Warn("doc record failed coercion, falling back to backend",
				zap.String("node_id", nodeID), zap.Error(err))
		}
	}

	node, err := s.backend.ReadNode(ctx, projectID, nodeID)
	if err != nil {
		if types.GetErrorCode(err) == types.ErrNodeNotFound {
			return nil, types.Errorf(types.ErrNodeNotFound, "node %s not found", nodeID).
				WithNodeID(nodeID)
		}
		return nil, types.NewError(types.ErrBackendFailure, "backend read failed").
			WithCause(err).WithNodeID(nodeID)
	}
	return node, nil
}

// RawDocNode returns the raw document record for a node, bypassing typed
// coercion. Used as the dispatcher's last-resort read when the typed path
// cannot deserialize.
func (s *Store) RawDocNode(nodeID string) (map[string]any, bool) {
	if s.doc == nil {
		return nil, false
	}
	return s.doc.GetNode(nodeID)
}

// ListNodes lists nodes with optional filters, preferring the fresher
// document view when live.
func (s *Store) ListNodes(ctx context.Context, projectID string, filter ListFilter) ([]*types.Node, error) {
	var nodes []*types.Node
	if s.docLive() {
		for id, raw := range s.doc.GetAllNodes() {
			node, err := types.NodeFromMap(projectID, id, raw)
			if err != nil {
				s.logger.Warn("skipping malformed doc record", zap.String("node_id", id), zap.Error(err))
				continue
			}
			nodes = append(nodes, node)
		}
	} else {
		backendNodes, err := s.backend.ListNodes(ctx, projectID)
		if err != nil {
			return nil, types.NewError(types.ErrBackendFailure, "backend list failed").WithCause(err)
		}
		nodes = backendNodes
	}

	out := nodes[:0]
	for _, n := range nodes {
		if filter.Type != "" && n.Type != filter.Type {
			continue
		}
		if filter.Parent != "" && n.ParentID != filter.Parent {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// CreateNode allocates identity, persists the node authoritatively, and
// best-effort replicates it into the document. A failed document write is
// reported via SyncedToDoc, never as an error.
func (s *Store) CreateNode(ctx context.Context, node *types.Node) (CreateResult, error) {
	if node.ID == "" {
		id, err := s.alloc.Allocate(ctx, node.ProjectID)
		if err != nil {
			return CreateResult{}, err
		}
		node.ID = id
	}

	if err := s.backend.CreateNode(ctx, node); err != nil {
		return CreateResult{}, types.NewError(types.ErrBackendFailure, "backend create failed").
			WithCause(err).WithNodeID(node.ID)
	}

	result := CreateResult{NodeID: node.ID, Proposal: node.ToMap()}
	if s.docLive() {
		s.doc.AddNode(node.ID, node.ToMap())
		result.SyncedToDoc = true
	} else {
		s.logger.Debug("document unavailable, node created without replication",
			zap.String("node_id", node.ID))
	}
	return result, nil
}

// UpdateNode writes a node to the backend and patches the document.
func (s *Store) UpdateNode(ctx context.Context, node *types.Node) error {
	if err := s.backend.UpdateNode(ctx, node); err != nil {
		return types.NewError(types.ErrBackendFailure, "backend update failed").
			WithCause(err).WithNodeID(node.ID)
	}
	if s.docLive() {
		s.doc.UpdateNode(node.ID, node.ToMap())
	}
	return nil
}

// ListEdges merges the document edge view (when live) with the backend.
func (s *Store) ListEdges(ctx context.Context, projectID string) ([]*types.Edge, error) {
	if s.docLive() {
		var edges []*types.Edge
		for id, raw := range s.doc.GetAllEdges() {
			edge, err := types.EdgeFromMap(projectID, id, raw)
			if err != nil {
				s.logger.Warn("skipping malformed edge record", zap.String("edge_id", id), zap.Error(err))
				continue
			}
			edges = append(edges, edge)
		}
		return edges, nil
	}

	edges, err := s.backend.ListEdges(ctx, projectID)
	if err != nil {
		return nil, types.NewError(types.ErrBackendFailure, "backend edge list failed").WithCause(err)
	}
	return edges, nil
}

// EdgeExists reports whether any current edge connects source to target.
func (s *Store) EdgeExists(ctx context.Context, projectID, source, target string) (bool, error) {
	edges, err := s.ListEdges(ctx, projectID)
	if err != nil {
		return false, err
	}
	for _, e := range edges {
		if e.Source == source && e.Target == target {
			return true, nil
		}
	}
	return false, nil
}

// EnsureEdge creates an edge only if no edge with the same (source, target)
// pair exists. Edge ids are not unique across authors, so idempotence is
// keyed on endpoints.
func (s *Store) EnsureEdge(ctx context.Context, edge *types.Edge) (created bool, err error) {
	exists, err := s.EdgeExists(ctx, edge.ProjectID, edge.Source, edge.Target)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	if err := s.backend.CreateEdge(ctx, edge); err != nil {
		return false, types.NewError(types.ErrBackendFailure, "backend edge create failed").WithCause(err)
	}
	if s.docLive() {
		s.doc.AddEdge(edge.ID, edge.ToMap())
	}
	return true, nil
}

// FullNodeRecord returns the complete current representation of a node,
// not just its typed projection, so a merge-style update does not clobber
// fields this codebase does not model. Prefers the live document record;
// falls back to the backend's serialized form.
func (s *Store) FullNodeRecord(ctx context.Context, projectID, nodeID string) (map[string]any, error) {
	if s.docLive() {
		if raw, ok := s.doc.GetNode(nodeID); ok {
			return raw, nil
		}
	}
	node, err := s.backend.ReadNode(ctx, projectID, nodeID)
	if err != nil {
		return nil, err
	}
	return node.ToMap(), nil
}

// BatchUpdateGraph applies node/edge upserts as a single document
// transaction and writes them through to the backend. The document batch is
// the atomicity boundary; returns SYNC_UNAVAILABLE when no live document
// handle exists so the caller can choose its fallback.
func (s *Store) BatchUpdateGraph(ctx context.Context, projectID string, nodes map[string]map[string]any, edges map[string]map[string]any) error {
	if !s.docLive() {
		return types.NewError(types.ErrSyncUnavailable, "no live document for batch update").
			WithRetryable(true)
	}

	s.doc.BatchUpdateGraph(nodes, edges)

	// Write-through for durability. The batch is already visible to every
	// replica; backend lag here is reconciled by the repair sweep.
	for id, raw := range nodes {
		node, err := types.NodeFromMap(projectID, id, raw)
		if err != nil {
			s.logger.Warn("write-through skipped for malformed record",
				zap.String("node_id", id), zap.Error(err))
			continue
		}
		if err := s.upsertBackendNode(ctx, node); err != nil {
			s.logger.Error("write-through node upsert failed",
				zap.String("node_id", id), zap.Error(err))
		}
	}
	for id, raw := range edges {
		edge, err := types.EdgeFromMap(projectID, id, raw)
		if err != nil {
			continue
		}
		if err := s.backend.CreateEdge(ctx, edge); err != nil {
			s.logger.Error("write-through edge create failed",
				zap.String("edge_id", id), zap.Error(err))
		}
	}
	return nil
}

func (s *Store) upsertBackendNode(ctx context.Context, node *types.Node) error {
	_, err := s.backend.ReadNode(ctx, node.ProjectID, node.ID)
	if types.GetErrorCode(err) == types.ErrNodeNotFound {
		return s.backend.CreateNode(ctx, node)
	}
	if err != nil {
		return err
	}
	return s.backend.UpdateNode(ctx, node)
}
