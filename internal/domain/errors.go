package domain

import "errors"

var (
	// ErrDecode covers every malformed-payload failure; cipher detail is never exposed.
	ErrDecode              = errors.New("malformed submission payload")
	ErrNotFound            = errors.New("not found")
	ErrDuplicateSubmission = errors.New("duplicate submission")
	ErrOracleUnavailable   = errors.New("performance oracle unavailable")
	ErrPersistence         = errors.New("persistence failure")
	ErrUnauthorized        = errors.New("invalid credentials")
)
