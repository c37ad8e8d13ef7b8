// Package apperr holds the sentinel errors shared across pfnbot packages.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAmbiguous     = errors.New("ambiguous ref")
	ErrAlreadyExists = errors.New("already exists")

	ErrConfigMissing    = errors.New("config file missing")
	ErrConfigIncomplete = errors.New("config incomplete")

	// ErrNoObservations means the watch directory yielded no entries at all,
	// which points at a misconfigured or unmounted watch_dir.
	ErrNoObservations  = errors.New("no observations found in watch_dir")
	ErrCorruptCache    = errors.New("corrupt cache")
	ErrUnreadableImage = errors.New("unreadable image")
)
