package model

import "time"

// Classification is the evaluator verdict for a route report.
type Classification int

const (
	Clear Classification = iota
	Congested
)

// String returns the wire form of the classification.
func (c Classification) String() string {
	if c == Congested {
		return "congested"
	}
	return "clear"
}

// Stage is a step of the tick state machine.
type Stage string

const (
	StageReceived            Stage = "received"
	StageFetching            Stage = "fetching"
	StageClassifying         Stage = "classifying"
	StageDeliveringPrimary   Stage = "delivering_primary"
	StageDeliveringSecondary Stage = "delivering_secondary"
	StageCompleted           Stage = "completed"
	StageErrored             Stage = "errored"
)

// TickRequest is the inbound tick payload. It lives only for one tick.
type TickRequest struct {
	ReturnURL string `json:"return_url"`
}

// DeliveryOutcome describes a single notification attempt.
type DeliveryOutcome struct {
	Delivered  bool
	Attempts   int
	StatusCode int
	LastError  string
	Latency    time.Duration
}

// TickResult is what one tick produced, successful or not.
type TickResult struct {
	TickID         string
	Stage          Stage // last stage reached; StageErrored carries FailedAt
	FailedAt       Stage
	Classification Classification
	Message        string
	Primary        DeliveryOutcome
}

// Status values for the secondary status channel.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// StatusEvent is the payload of the secondary status webhook.
type StatusEvent struct {
	EventName string `json:"event_name"`
	Message   string `json:"message"`
	Status    string `json:"status"`
	Username  string `json:"username"`
}
