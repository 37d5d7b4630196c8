package game

import "errors"

var (
	// ErrNotReady is returned while the game object is absent or not flagged ready.
	ErrNotReady = errors.New("game not ready")
	// ErrMissingField is returned when an expected field is absent from the game object.
	ErrMissingField = errors.New("missing game field")
	// ErrUnknownUpgradeKind means the kind has no registered mutator.
	// The kind list and the mutator table are out of sync.
	ErrUnknownUpgradeKind = errors.New("unknown upgrade kind")
	// ErrStopped is returned when an operation is attempted after the session ended.
	ErrStopped = errors.New("session stopped")
	// ErrAlreadyStarted is returned by Run when the session loop is already running or has run.
	ErrAlreadyStarted = errors.New("session already started")
)
