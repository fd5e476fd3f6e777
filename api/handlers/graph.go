package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/studioflow/canvasflow/api"
	"github.com/studioflow/canvasflow/canvas"
	"github.com/studioflow/canvasflow/types"
)

// GraphHandler serves canvas graph reads and writes. All routes carry a
// {project} path segment; node and edge ids are scoped to it.
type GraphHandler struct {
	store  *canvas.Store
	logger *zap.Logger
}

// NewGraphHandler creates the graph handler.
func NewGraphHandler(store *canvas.Store, logger *zap.Logger) *GraphHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GraphHandler{
		store:  store,
		logger: logger.With(zap.String("component", "graph_api")),
	}
}

// HandleCreateNode creates a node, allocating a semantic id when the
// request does not carry one.
func (h *GraphHandler) HandleCreateNode(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project")

	var req api.CreateNodeRequest
	if !DecodeJSONBody(w, r, &req) {
		return
	}
	if req.Type == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrMalformedNode, "node type is required")
		return
	}

	node := &types.Node{
		ID:        req.ID,
		ProjectID: projectID,
		Type:      req.Type,
		ParentID:  req.ParentID,
		Data:      req.Data,
	}
	result, err := h.store.CreateNode(r.Context(), node)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	WriteSuccess(w, api.CreateNodeResponse{
		NodeID:      result.NodeID,
		SyncedToDoc: result.SyncedToDoc,
	})
}

// HandleGetNode reads one node, doc-first when the replica is live.
func (h *GraphHandler) HandleGetNode(w http.ResponseWriter, r *http.Request) {
	node, err := h.store.GetNode(r.Context(), r.PathValue("project"), r.PathValue("node"))
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, node)
}

// HandleListNodes lists project nodes, optionally filtered by ?type= and
// ?parent=.
func (h *GraphHandler) HandleListNodes(w http.ResponseWriter, r *http.Request) {
	filter := canvas.ListFilter{
		Type:   types.NodeType(r.URL.Query().Get("type")),
		Parent: r.URL.Query().Get("parent"),
	}
	nodes, err := h.store.ListNodes(r.Context(), r.PathValue("project"), filter)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, nodes)
}

// HandleCreateEdge connects two nodes. Repeats of the same (source,
// target) pair report created=false instead of failing.
func (h *GraphHandler) HandleCreateEdge(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project")

	var req api.CreateEdgeRequest
	if !DecodeJSONBody(w, r, &req) {
		return
	}
	if req.Source == "" || req.Target == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrMalformedNode, "edge source and target are required")
		return
	}

	created, err := h.store.EnsureEdge(r.Context(), &types.Edge{
		ID:           req.ID,
		ProjectID:    projectID,
		Source:       req.Source,
		Target:       req.Target,
		SourceHandle: req.SourceHandle,
		TargetHandle: req.TargetHandle,
	})
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, api.CreateEdgeResponse{Created: created})
}

// HandleListEdges lists every edge of a project.
func (h *GraphHandler) HandleListEdges(w http.ResponseWriter, r *http.Request) {
	edges, err := h.store.ListEdges(r.Context(), r.PathValue("project"))
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, edges)
}
