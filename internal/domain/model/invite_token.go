package model

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"webgpt-server/internal/domain"
)

// InviteToken is a single-use code that grants (or extends) timed access.
// Registration consumes one; renewal consumes another.
type InviteToken struct {
	Code          string
	DurationHours int
	IsUsed        bool
	CreatedBy     string
	CreatedAt     time.Time
}

// NewInviteToken mints a token with a random 16-hex-char uppercase code.
func NewInviteToken(durationHours int, createdBy string) (*InviteToken, error) {
	if durationHours <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return &InviteToken{
		Code:          strings.ToUpper(hex.EncodeToString(buf)),
		DurationHours: durationHours,
		CreatedBy:     createdBy,
		CreatedAt:     time.Now(),
	}, nil
}

// Duration returns the access window the token grants.
func (t *InviteToken) Duration() time.Duration {
	return time.Duration(t.DurationHours) * time.Hour
}
