package web

import (
	"encoding/json"
	"net/http"

	"webgpt-server/internal/domain"
	"webgpt-server/internal/infra/logging"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Token    string `json:"token,omitempty"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidArgument)
		return
	}

	u, err := s.authUC.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := s.auth.Mint(w, u); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": toUserDTO(u)})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidArgument)
		return
	}

	u, err := s.authUC.Register(r.Context(), req.Username, req.Password, req.Token)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := s.auth.Mint(w, u); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": toUserDTO(u)})
}

// handleMe reports the signed-in account, or {"user":null} for anonymous
// visitors; it never errors on a missing cookie.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, err := s.auth.ParseFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"user": nil})
		return
	}
	u, err := s.authUC.Get(r.Context(), claims.UserID())
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"user": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": toUserDTO(u)})
}

func (s *Server) handleRenew(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidArgument)
		return
	}

	claims := CurrentUser(r)
	u, err := s.authUC.Renew(r.Context(), claims.UserID(), req.Token)
	if err != nil {
		writeError(w, err)
		return
	}
	logging.With(r.Context(), s.log).Info().Time("expires_at", u.ExpiresAt).Msg("access renewed")
	writeJSON(w, http.StatusOK, map[string]any{"user": toUserDTO(u)})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}
