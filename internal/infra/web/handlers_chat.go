package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"

	"webgpt-server/internal/domain"
	"webgpt-server/internal/domain/model"
	"webgpt-server/internal/domain/ports/adapter"
	"webgpt-server/internal/infra/logging"
	"webgpt-server/internal/usecase"
)

// chatRequest carries one turn. Two renditions are accepted: a server-side
// session turn (sessionId + text/images) or a client-held transcript
// (messages) relayed without touching stored sessions.
type chatRequest struct {
	SessionID string          `json:"sessionId,omitempty"`
	Model     string          `json:"model,omitempty"`
	Text      string          `json:"text,omitempty"`
	Images    []string        `json:"images,omitempty"`
	Messages  []model.Message `json:"messages,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	claims := CurrentUser(r)
	u, err := s.authUC.Get(r.Context(), claims.UserID())
	if err != nil {
		writeError(w, err)
		return
	}
	if !u.IsAdmin() && u.Expired(time.Now()) {
		writeError(w, domain.ErrAccountExpired)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidArgument)
		return
	}

	ctx := logging.WithSessID(r.Context(), req.SessionID)

	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, _ := w.(http.Flusher)
	wrote := false
	sink := adapter.StreamHandler(func(delta string) {
		if !wrote {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			wrote = true
		}
		_, _ = w.Write([]byte(delta))
		if flusher != nil {
			flusher.Flush()
		}
	})

	var streamErr error
	if len(req.Messages) > 0 && req.SessionID == "" {
		streamErr = s.chatUC.Relay(ctx, req.Model, req.Messages, sink)
	} else {
		// The session identity rides on headers, so it must be fixed
		// before the first body write.
		sessionID := req.SessionID
		if sessionID == "" {
			sessionID = ulid.Make().String()
		}
		w.Header().Set("X-Session-Id", sessionID)

		turn := usecase.Turn{Text: req.Text, Images: req.Images, Model: req.Model}
		_, streamErr = s.chatUC.StreamTurn(ctx, claims.UserID(), sessionID, turn, sink)
	}

	if streamErr != nil && !wrote {
		var ue *adapter.UpstreamError
		if errors.As(streamErr, &ue) {
			// relay the provider's failure verbatim
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(ue.StatusCode)
			_, _ = w.Write([]byte(ue.Body))
			return
		}
		writeError(w, streamErr)
		return
	}
	if streamErr != nil {
		logging.With(ctx, s.log).Warn().Err(streamErr).Msg("stream aborted mid-flight")
	}
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	models, err := s.chatUC.ListModels(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": models})
}
