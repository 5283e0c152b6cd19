package ticksim

import "time"

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	DefaultWait          = 10 * time.Second
	PercentageMultiplier = 100
)
