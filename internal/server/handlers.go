package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dkaus1/vscode-ai-ext/internal/logging"
	"github.com/dkaus1/vscode-ai-ext/internal/orchestrator"
)

// health handles GET /health
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	requests := s.orch.Requests()
	inFlight := map[string]int{}
	for _, ch := range requests.Channels() {
		inFlight[ch] = requests.Count(ch)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"provider": s.orch.Config().Provider,
		"variants": s.orch.Providers().Kinds(),
		"inFlight": inFlight,
	})
}

// listCommands handles GET /command
func (s *Server) listCommands(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.orch.Commands())
}

// postCommand handles POST /command. The command runs to completion even if
// the client goes away; abortAPIRequest is the only way to cancel it.
func (s *Server) postCommand(w http.ResponseWriter, r *http.Request) {
	var cmd orchestrator.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}
	if cmd.Command == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "command is required")
		return
	}

	ctx := context.WithoutCancel(r.Context())
	if err := s.orch.Dispatch(ctx, &cmd); err != nil {
		logging.Debug().Err(err).Str("command", cmd.Command).Msg("command failed")
		writeCommandError(w, err)
		return
	}
	writeSuccess(w)
}

// getConfig handles GET /config. Secrets are never returned.
func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	cfg := *s.orch.Config()
	cfg.AccessToken = ""
	cfg.EncryptionKey = ""
	writeJSON(w, http.StatusOK, &cfg)
}

// switchProvider handles PUT /provider/{providerKey}
func (s *Server) switchProvider(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "providerKey")
	if err := s.orch.SwitchProvider(key); err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
		return
	}
	writeSuccess(w)
}

// SetAuthRequest is the body of PUT /auth.
type SetAuthRequest struct {
	Token string `json:"token"`
}

// setAuth handles PUT /auth
func (s *Server) setAuth(w http.ResponseWriter, r *http.Request) {
	var req SetAuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "token is required")
		return
	}
	if err := s.orch.SetAccessToken(r.Context(), req.Token); err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeSuccess(w)
}

// removeAuth handles DELETE /auth
func (s *Server) removeAuth(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.RemoveAccessToken(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeSuccess(w)
}

// getHistory handles GET /history
func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	h, err := s.orch.FetchHistory(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h)
}
