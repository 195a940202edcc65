package adapter

import "context"

// LoginThrottle bounds authentication attempts per username.
type LoginThrottle interface {
	// AllowLogin reports whether another attempt for this username is
	// within budget.
	AllowLogin(ctx context.Context, username string) (bool, error)
}
