package ticksim

import "errors"

// Sentinel kinds for simulation failures.
var (
	ErrUnhealthy         = errors.New("robot unhealthy")
	ErrManifest          = errors.New("manifest invalid")
	ErrTicksFailed       = errors.New("ticks failed")
	ErrMissingDelivery   = errors.New("delivery missing")
	ErrDuplicateDelivery = errors.New("delivery duplicated")
	ErrInvalidArguments  = errors.New("invalid arguments")
)
