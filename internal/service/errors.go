package service

import "errors"

// Lifecycle errors surfaced to callers. The caller decides the user-facing
// messaging; none of these are retried automatically.
var (
	// ErrConflict means the status/holder precondition no longer held at
	// the moment of the atomic write. Refresh state before retrying the
	// user action.
	ErrConflict = errors.New("session state changed, refresh and retry")
	// ErrExpired means the soft-lock TTL passed; the reservation flow must
	// restart.
	ErrExpired = errors.New("reservation hold expired")
	// ErrForbidden means the actor is not the recorded holder or owner.
	ErrForbidden = errors.New("actor is not the holder of this session")
	// ErrNotFound means the session or station id is unknown.
	ErrNotFound = errors.New("session not found")
)
