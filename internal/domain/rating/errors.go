package rating

import "errors"

// Sentinel error kinds for the rating engine. Callers match them with errors.Is.
var (
	ErrInvalidOutcome     = errors.New("invalid outcome")
	ErrNonFinite          = errors.New("non-finite input")
	ErrNegativeExperience = errors.New("negative experience count")
	ErrInvalidExpected    = errors.New("expected score out of range")
	ErrInvalidSensitivity = errors.New("invalid sensitivity")
	ErrInvalidMultiplier  = errors.New("invalid multiplier")
	ErrEmptySeries        = errors.New("series has no games")
	ErrTooManyGames       = errors.New("series has more games than the format allows")
	ErrSeriesUndecided    = errors.New("series is not decided")
	ErrInvalidSide        = errors.New("invalid side")
	ErrUnsupportedFormat  = errors.New("unsupported series format")
	ErrUnknownTeamModel   = errors.New("unknown team model")
	ErrUnknownSweepPolicy = errors.New("unknown sweep policy")
	ErrInvalidConfig      = errors.New("invalid rating config")
	ErrInvalidMatch       = errors.New("invalid match")
	ErrUnknownDiscipline  = errors.New("unknown discipline")
)
