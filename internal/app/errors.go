package service

import "errors"

// Tick failure kinds. The HTTP layer maps them to status codes.
var (
	ErrBadRequest      = errors.New("bad request")
	ErrUpstreamFailure = errors.New("upstream failure")
	ErrDeliveryFailure = errors.New("delivery failure")
)
