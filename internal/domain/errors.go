package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("status conflict")
	ErrNoMatch         = errors.New("no matching artifact")
	ErrAlreadyTerminal = errors.New("task already terminal")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrCancelled       = errors.New("cancelled by caller")
	ErrRateLimited     = errors.New("provider rate limited")
	ErrUnavailable     = errors.New("provider unavailable")
	ErrProviderFailure = errors.New("provider failure")
)
