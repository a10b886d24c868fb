package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound     = errors.New("participant not found")
	ErrInvalidLimit = errors.New("invalid limit")
	ErrMatchApplied = errors.New("match already applied")
	ErrInvalidApply = errors.New("invalid apply")
	ErrClosed       = errors.New("store closed")
)

// errApplyAborted marks errors returned by an ApplyFunc.
var errApplyAborted = errors.New("apply aborted")
