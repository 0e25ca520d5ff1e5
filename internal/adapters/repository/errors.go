package repository

import "errors"

// Sentinel kinds for session store errors.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNilRecord       = errors.New("nil shot record")
	ErrEmptySessionID  = errors.New("empty session id")
)
