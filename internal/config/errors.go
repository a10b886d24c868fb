package config

import (
	"errors"
)

// Sentinel error kinds for this package.
var (
	// ErrInvalidConfig marks a setting that failed validation.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig marks a file, env or decoding failure.
	ErrLoadConfig = errors.New("load config failed")
)
