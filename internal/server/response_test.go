package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dkaus1/vscode-ai-ext/internal/orchestrator"
	"github.com/dkaus1/vscode-ai-ext/internal/vcs"
	"github.com/dkaus1/vscode-ai-ext/pkg/types"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"message": "hello"}

	writeJSON(w, http.StatusOK, data)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	contentType := w.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %s", contentType)
	}

	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if result["message"] != "hello" {
		t.Errorf("Expected message 'hello', got '%s'", result["message"])
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()

	writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid input")

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}

	var result ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if result.Error.Code != ErrCodeInvalidRequest {
		t.Errorf("Expected code %s, got %s", ErrCodeInvalidRequest, result.Error.Code)
	}
	if result.Error.Message != "Invalid input" {
		t.Errorf("Expected message 'Invalid input', got '%s'", result.Error.Message)
	}
}

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()

	writeSuccess(w)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var result map[string]bool
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !result["success"] {
		t.Error("Expected success to be true")
	}
}

func TestWriteCommandError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		aborted bool
	}{
		{"unknown command", fmt.Errorf("%w: %q", orchestrator.ErrUnknownCommand, "x"), http.StatusBadRequest, ErrCodeInvalidRequest, false},
		{"no selection", orchestrator.ErrNoSelection, http.StatusUnprocessableEntity, ErrCodeInvalidRequest, false},
		{"no changes", orchestrator.ErrNoChanges, http.StatusUnprocessableEntity, ErrCodeInvalidRequest, false},
		{"not a repository", vcs.ErrNotRepository, http.StatusUnprocessableEntity, ErrCodeInvalidRequest, false},
		{"aborted", types.NewAbortError(""), http.StatusConflict, ErrCodeAborted, true},
		{"auth", types.NewAuthError(0, types.MsgNoAccessToken), http.StatusUnauthorized, ErrCodeAuthError, false},
		{"provider", types.NewProviderError(types.MsgContextLength), http.StatusBadGateway, ErrCodeProviderError, false},
		{"no response", types.NewNoResponseError(""), http.StatusBadGateway, ErrCodeProviderError, false},
		{"other", errors.New("disk full"), http.StatusInternalServerError, ErrCodeInternalError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeCommandError(w, tt.err)

			if w.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, w.Code)
			}
			var result ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if result.Error.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, result.Error.Code)
			}
			if result.Error.Message != tt.err.Error() {
				t.Errorf("Expected message %q, got %q", tt.err.Error(), result.Error.Message)
			}
			if result.Error.Aborted != tt.aborted {
				t.Errorf("Expected aborted %v, got %v", tt.aborted, result.Error.Aborted)
			}
		})
	}
}
