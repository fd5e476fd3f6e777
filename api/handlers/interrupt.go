package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/studioflow/canvasflow/api"
	"github.com/studioflow/canvasflow/interrupt"
)

// InterruptHandler exposes cooperative cancellation of agent threads.
type InterruptHandler struct {
	coordinator *interrupt.Coordinator
	logger      *zap.Logger
}

// NewInterruptHandler creates the interrupt handler.
func NewInterruptHandler(coordinator *interrupt.Coordinator, logger *zap.Logger) *InterruptHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InterruptHandler{
		coordinator: coordinator,
		logger:      logger.With(zap.String("component", "interrupt_api")),
	}
}

// HandleInterrupt requests a graceful stop of a running thread. Exactly
// one concurrent caller wins the running to completing transition; the
// rest get accepted=false.
func (h *InterruptHandler) HandleInterrupt(w http.ResponseWriter, r *http.Request) {
	accepted, err := h.coordinator.RequestInterrupt(r.Context(), r.PathValue("thread"))
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, api.InterruptResponse{Accepted: accepted})
}

// HandleThreadStatus reports whether the thread has a pending or
// acknowledged interrupt. The read is always fresh.
func (h *InterruptHandler) HandleThreadStatus(w http.ResponseWriter, r *http.Request) {
	threadID := r.PathValue("thread")
	interrupted, err := h.coordinator.CheckFresh(r.Context(), threadID)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, api.ThreadStatusResponse{ThreadID: threadID, Interrupted: interrupted})
}
