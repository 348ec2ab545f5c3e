package model

import "errors"

var (
	// ErrConfig marks a configuration error: a missing parameter for a selected
	// model variant, an unknown model or function name, or an out-of-range value.
	// Raised before any day is simulated.
	ErrConfig = errors.New("invalid configuration")

	// ErrDataContract marks a violation of the driver/day contract: a driver
	// vector shorter than the horizon, a non-positive price, or a day index
	// outside [0, T).
	ErrDataContract = errors.New("data contract violation")
)
