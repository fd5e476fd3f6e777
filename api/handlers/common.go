package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/studioflow/canvasflow/types"
)

// Response is the envelope every endpoint returns.
type Response struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorInfo `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// ErrorInfo is the serialized form of a types.Error.
type ErrorInfo struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	NodeID    string `json:"node_id,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// WriteJSON writes data as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful envelope.
func WriteSuccess(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// WriteError writes err as an error envelope. Unstructured errors are
// reported as BACKEND_FAILURE without leaking their message details to
// the client.
func WriteError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var se *types.Error
	if !errors.As(err, &se) {
		se = types.NewError(types.ErrBackendFailure, "internal error").WithCause(err)
	}

	if logger != nil {
		logger.Error("request failed",
			zap.String("code", string(se.Code)),
			zap.String("message", se.Message),
			zap.Error(se.Cause),
		)
	}

	WriteJSON(w, statusForCode(se.Code), Response{
		Success: false,
		Error: &ErrorInfo{
			Code:      string(se.Code),
			Message:   se.Message,
			NodeID:    se.NodeID,
			Retryable: se.Retryable,
		},
		Timestamp: time.Now(),
	})
}

// WriteErrorMessage writes a plain error envelope without a domain error.
func WriteErrorMessage(w http.ResponseWriter, status int, code types.ErrorCode, message string) {
	WriteJSON(w, status, Response{
		Success:   false,
		Error:     &ErrorInfo{Code: string(code), Message: message},
		Timestamp: time.Now(),
	})
}

// statusForCode maps domain error codes onto HTTP statuses.
func statusForCode(code types.ErrorCode) int {
	switch code {
	case types.ErrNodeNotFound:
		return http.StatusNotFound
	case types.ErrMalformedNode:
		return http.StatusBadRequest
	case types.ErrNotAGenerationNode, types.ErrNoPromptAvailable,
		types.ErrMissingSourceImage, types.ErrUnknownAgent:
		return http.StatusUnprocessableEntity
	case types.ErrInvalidTransition, types.ErrInterruptRequested:
		return http.StatusConflict
	case types.ErrSyncUnavailable, types.ErrCheckerFailure:
		return http.StatusServiceUnavailable
	case types.ErrGenerationTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSONBody decodes the request body into dst, rejecting unknown
// fields. On failure the error response has already been written.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrMalformedNode, "request body is empty")
		return false
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrMalformedNode, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}
