package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"webgpt-server/internal/domain"
)

func (s *Server) handleMintToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DurationHours int `json:"durationHours"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidArgument)
		return
	}

	claims := CurrentUser(r)
	tok, err := s.adminUC.MintToken(r.Context(), claims.UserID(), req.DurationHours)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTokenDTO(tok))
}

func (s *Server) handleListTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := s.adminUC.ListTokens(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]tokenDTO, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, toTokenDTO(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"tokens": out})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 20)

	users, total, err := s.adminUC.ListUsers(r.Context(), page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]userDTO, 0, len(users))
	for _, u := range users {
		out = append(out, toUserDTO(u))
	}
	totalPages := (total + limit - 1) / limit
	writeJSON(w, http.StatusOK, map[string]any{
		"users":      out,
		"total":      total,
		"page":       page,
		"totalPages": totalPages,
	})
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}
