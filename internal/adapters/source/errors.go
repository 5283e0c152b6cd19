package source

import "errors"

// Sentinel kinds for data source errors.
var (
	// ErrSourceUnavailable covers network failures, timeouts and transient
	// upstream statuses.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrSourceMalformed means the payload lacks the expected route shape.
	ErrSourceMalformed = errors.New("source response malformed")
	// ErrSourceConfigMissing is fatal: the source can never succeed.
	ErrSourceConfigMissing = errors.New("source configuration missing")
)
