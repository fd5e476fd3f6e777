package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/studioflow/canvasflow/api"
	"github.com/studioflow/canvasflow/dispatch"
)

// DispatchHandler serves generation dispatch, waiting, and repair.
type DispatchHandler struct {
	dispatcher *dispatch.Dispatcher
	waiter     *dispatch.Waiter
	repairer   *dispatch.Repairer
	executor   *dispatch.Executor
	logger     *zap.Logger
}

// NewDispatchHandler creates the dispatch handler. executor may be nil;
// dispatched assets then wait for an external worker or a repair pass.
func NewDispatchHandler(dispatcher *dispatch.Dispatcher, waiter *dispatch.Waiter, repairer *dispatch.Repairer, executor *dispatch.Executor, logger *zap.Logger) *DispatchHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DispatchHandler{
		dispatcher: dispatcher,
		waiter:     waiter,
		repairer:   repairer,
		executor:   executor,
		logger:     logger.With(zap.String("component", "dispatch_api")),
	}
}

// HandleDispatch runs a generation action node. Each call allocates a new
// asset; dispatching the same node twice yields two assets. The provider
// round trip runs in the background; poll the asset or call wait to
// observe its outcome.
func (h *DispatchHandler) HandleDispatch(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project")
	result, err := h.dispatcher.Run(r.Context(), projectID, r.PathValue("node"))
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	if h.executor != nil {
		go func(assetID string) {
			if err := h.executor.Execute(context.Background(), projectID, assetID); err != nil {
				h.logger.Warn("background generation did not finish",
					zap.String("asset_id", assetID),
					zap.Error(err))
			}
		}(result.AssetID)
	}
	WriteSuccess(w, api.DispatchResponse{
		AssetID:         result.AssetID,
		Kind:            result.Kind,
		Atomic:          result.Atomic,
		Prompt:          result.Prompt,
		ReferenceImages: result.ReferenceImages,
	})
}

// HandleWait blocks until the asset reaches a terminal status or the
// budget expires. A timeout is a normal response, not an error.
func (h *DispatchHandler) HandleWait(w http.ResponseWriter, r *http.Request) {
	var req api.WaitRequest
	if r.ContentLength > 0 && !DecodeJSONBody(w, r, &req) {
		return
	}

	projectID := r.PathValue("project")
	assetID := r.PathValue("asset")

	var (
		result *dispatch.WaitResult
		err    error
	)
	if req.TimeoutSeconds > 0 {
		budget := time.Duration(req.TimeoutSeconds * float64(time.Second))
		result, err = h.waiter.WaitFor(r.Context(), projectID, assetID, budget)
	} else {
		result, err = h.waiter.Wait(r.Context(), projectID, assetID)
	}
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	WriteSuccess(w, api.WaitResponse{
		AssetID:   result.AssetID,
		Status:    result.Status,
		OutputRef: result.OutputRef,
		TimedOut:  result.TimedOut,
		ElapsedMS: result.Elapsed.Milliseconds(),
	})
}

// HandleRepair sweeps the project graph for dispatch leftovers: stuck
// actions, orphaned assets, and missing dependency edges.
func (h *DispatchHandler) HandleRepair(w http.ResponseWriter, r *http.Request) {
	report, err := h.repairer.Sweep(r.Context(), r.PathValue("project"))
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, api.RepairResponse{
		StuckActions:   report.StuckActions,
		OrphanedAssets: report.OrphanedAssets,
		MissingEdges:   report.MissingEdges,
	})
}
