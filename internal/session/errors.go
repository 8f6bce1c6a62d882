package session

import "errors"

var (
	// ErrCapacity is returned when opening another document would exceed the
	// tab limit. Nothing changes.
	ErrCapacity = errors.New("too many open documents")

	ErrTabNotFound = errors.New("document tab not found")

	// ErrNotLive rejects background results aimed at a parked document.
	ErrNotLive = errors.New("document is not live")

	ErrNoLiveDocument = errors.New("no live document")

	ErrRowNotFound = errors.New("cue no longer exists")

	ErrNoBackingStore = errors.New("no backing store configured")
)
