package ticksim

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL      string        // Base URL of the robot
	Ticks        int           // Number of ticks to fire
	Workers      int           // Number of concurrent tick senders
	Timeout      time.Duration // HTTP request timeout
	ReceiverAddr string        // Listen address of the local return_url receiver
	Wait         time.Duration // How long to wait for late deliveries
	Verbose      bool          // Log every tick
}

// TickRequest is the body posted to /tick.
type TickRequest struct {
	ReturnURL string `json:"return_url"`
}

// Message is the body the robot posts back to return_url.
type Message struct {
	Message string `json:"message"`
}

// Manifest is the subset of the integration manifest the simulator checks.
type Manifest struct {
	Data struct {
		IntegrationType string `json:"integration_type"`
		TickURL         string `json:"tick_url"`
		Settings        []struct {
			Label   string `json:"label"`
			Default string `json:"default"`
		} `json:"settings"`
	} `json:"data"`
}

// Stats holds simulation statistics.
type Stats struct {
	TicksSent        int
	TicksSucceeded   int
	TicksFailed      int
	MessagesReceived int
	Congested        int
	Clear            int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
