package web

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"webgpt-server/internal/domain"
	"webgpt-server/internal/domain/model"
	"webgpt-server/internal/infra/logging"
)

// handleListSessions degrades to an empty list on storage trouble so the UI
// keeps working without history.
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	claims := CurrentUser(r)
	sessions, err := s.sessions.LoadAll(r.Context(), claims.UserID())
	if err != nil {
		logging.With(r.Context(), s.log).Error().Err(err).Msg("load sessions failed")
		sessions = nil
	}
	if sessions == nil {
		sessions = []*model.ChatSession{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) handleSaveSessions(w http.ResponseWriter, r *http.Request) {
	claims := CurrentUser(r)
	var req struct {
		Sessions []*model.ChatSession `json:"sessions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidArgument)
		return
	}
	if err := s.sessions.SaveAll(r.Context(), claims.UserID(), req.Sessions); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearSessions(w http.ResponseWriter, r *http.Request) {
	claims := CurrentUser(r)
	if err := s.sessions.ClearAll(r.Context(), claims.UserID()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSessionStats(w http.ResponseWriter, r *http.Request) {
	claims := CurrentUser(r)
	stats, err := s.sessions.Stats(r.Context(), claims.UserID())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	claims := CurrentUser(r)
	sess, err := s.sessions.GetOne(r.Context(), claims.UserID(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	claims := CurrentUser(r)
	var sess model.ChatSession
	if err := json.NewDecoder(r.Body).Decode(&sess); err != nil {
		writeError(w, domain.ErrInvalidArgument)
		return
	}
	sess.ID = chi.URLParam(r, "sessionID")
	if err := s.sessions.UpdateOne(r.Context(), claims.UserID(), &sess); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	claims := CurrentUser(r)
	if err := s.sessions.DeleteOne(r.Context(), claims.UserID(), chi.URLParam(r, "sessionID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
