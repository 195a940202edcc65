package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrTurnInFlight       = errors.New("a turn is already in flight for this session")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountExpired     = errors.New("account expired")
	ErrTokenUsed          = errors.New("invite token already used")
	ErrTokenNotFound      = errors.New("invite token not found")
	ErrRateLimited        = errors.New("too many attempts")
)
