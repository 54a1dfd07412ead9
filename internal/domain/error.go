package domain

import "errors"

var (
	// Common domain errors
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidPhone    = errors.New("invalid phone number")
	ErrConfiguration   = errors.New("provider not configured")
	ErrNoCandidates    = errors.New("no send-capable method found on client")
	ErrUpstream        = errors.New("upstream provider error")
	ErrSessionRejected = errors.New("provider session rejected")
	ErrRateLimited     = errors.New("rate limit exceeded")
	ErrDuplicateSend   = errors.New("duplicate send suppressed")
	ErrNotFound        = errors.New("entity not found")
)
