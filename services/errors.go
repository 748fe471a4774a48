package services

import "errors"

// Failure taxonomy shared by all engine operations. Every sentinel is
// terminal: retrying with the same arguments cannot succeed. Storage errors
// are never surfaced to clients — handlers map anything that is not one of
// these to a generic unavailable response and log the cause.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotFound        = errors.New("not found")
	ErrInvalidDelta    = errors.New("invalid xp delta")
	ErrNotEligible     = errors.New("not eligible")
	ErrAlreadyClaimed  = errors.New("already claimed")
	ErrExpired         = errors.New("expired")
)
