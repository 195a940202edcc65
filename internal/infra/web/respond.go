package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"webgpt-server/internal/domain"
	"webgpt-server/internal/domain/model"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusOf(err), map[string]string{"error": err.Error()})
}

// statusOf maps domain sentinels to HTTP statuses.
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrTokenUsed),
		errors.Is(err, domain.ErrTokenNotFound):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrAccountExpired):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrTurnInFlight),
		errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// userDTO is the wire shape of an account.
type userDTO struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserDTO(u *model.User) userDTO {
	return userDTO{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role,
		ExpiresAt: u.ExpiresAt,
		CreatedAt: u.CreatedAt,
	}
}

type tokenDTO struct {
	Code          string    `json:"code"`
	DurationHours int       `json:"durationHours"`
	IsUsed        bool      `json:"isUsed"`
	CreatedBy     string    `json:"createdBy"`
	CreatedAt     time.Time `json:"createdAt"`
}

func toTokenDTO(t *model.InviteToken) tokenDTO {
	return tokenDTO{
		Code:          t.Code,
		DurationHours: t.DurationHours,
		IsUsed:        t.IsUsed,
		CreatedBy:     t.CreatedBy,
		CreatedAt:     t.CreatedAt,
	}
}
