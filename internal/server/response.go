package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dkaus1/vscode-ai-ext/internal/orchestrator"
	"github.com/dkaus1/vscode-ai-ext/internal/vcs"
	"github.com/dkaus1/vscode-ai-ext/pkg/types"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Aborted bool   `json:"aborted,omitempty"`
}

// Error codes
const (
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeAuthError      = "AUTH_ERROR"
	ErrCodeAborted        = "ABORTED"
	ErrCodeProviderError  = "PROVIDER_ERROR"
	ErrCodeInternalError  = "INTERNAL_ERROR"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// writeSuccess writes a success response.
func writeSuccess(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// writeCommandError maps a dispatch failure onto a status code. The
// message is the same text the failure event carries.
func writeCommandError(w http.ResponseWriter, err error) {
	status, code := http.StatusInternalServerError, ErrCodeInternalError
	aborted := false

	var apiErr *types.APIError
	switch {
	case errors.Is(err, orchestrator.ErrUnknownCommand):
		status, code = http.StatusBadRequest, ErrCodeInvalidRequest
	case errors.Is(err, orchestrator.ErrNoSelection),
		errors.Is(err, orchestrator.ErrNoChanges),
		errors.Is(err, vcs.ErrNotRepository):
		status, code = http.StatusUnprocessableEntity, ErrCodeInvalidRequest
	case errors.As(err, &apiErr):
		switch {
		case apiErr.Aborted:
			status, code, aborted = http.StatusConflict, ErrCodeAborted, true
		case apiErr.Kind == types.ErrorKindAuth:
			status, code = http.StatusUnauthorized, ErrCodeAuthError
		default:
			status, code = http.StatusBadGateway, ErrCodeProviderError
		}
	}

	writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{Code: code, Message: err.Error(), Aborted: aborted},
	})
}
