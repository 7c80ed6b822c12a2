package liveactivity

import "errors"

// Precondition errors raised by the session state machine. They are
// surfaced to the caller before any relay call is made.
var (
	// ErrBusy is returned when a start/update/end call is already in flight.
	ErrBusy = errors.New("live activity call already in progress")

	// ErrAlreadyActive is returned by Start while a session is active.
	ErrAlreadyActive = errors.New("a live activity is already active")

	// ErrNotActive is returned by Update and End when no session is active.
	ErrNotActive = errors.New("no active live activity")

	// ErrNoStartToken is returned by Start when token initialization
	// resolved without a usable start token.
	ErrNoStartToken = errors.New("start token not available")

	// ErrNoUpdateToken is returned by Update and End before the platform
	// has confirmed the activity and minted an update token.
	ErrNoUpdateToken = errors.New("update token not available")
)

// ErrNotCached is returned by TokenCache implementations when the
// requested key has no stored value.
var ErrNotCached = errors.New("token not cached")

// ValidationError reports a malformed content or request field. It never
// results in a relay or provider call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
