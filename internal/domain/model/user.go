package model

import (
	"time"

	"webgpt-server/internal/domain"

	"github.com/google/uuid"
)

const (
	RoleAdminUser   = "admin"
	RoleRegularUser = "user"
)

// AdminExpiry is the practically-unbounded expiry given to the bootstrapped
// admin account.
var AdminExpiry = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

// User is an account that may hold a signed session cookie. Access is
// time-boxed: every account carries an expiry extended by invite tokens.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         string
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

func NewUser(id, username, passwordHash, role string, expiresAt time.Time) (*User, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if username == "" || passwordHash == "" {
		return nil, domain.ErrInvalidArgument
	}
	if role == "" {
		role = RoleRegularUser
	}
	return &User{
		ID:           id,
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		ExpiresAt:    expiresAt,
		CreatedAt:    time.Now(),
	}, nil
}

func (u *User) IsZero() bool  { return u == nil || u.ID == "" }
func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdminUser }

// Expired reports whether the account's access window has closed.
func (u *User) Expired(now time.Time) bool {
	return now.After(u.ExpiresAt)
}

// ExtendAccess pushes the expiry forward by d, counted from the current
// expiry when it is still in the future, otherwise from now.
func (u *User) ExtendAccess(now time.Time, d time.Duration) {
	base := u.ExpiresAt
	if base.Before(now) {
		base = now
	}
	u.ExpiresAt = base.Add(d)
}
