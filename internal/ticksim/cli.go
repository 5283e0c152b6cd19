package ticksim

import "os"

// ShowHelp prints usage information for the tick simulator.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Traffic Robot Tick Simulator
============================

Fires ticks at a running traffic robot and receives the verdicts on a local
return_url, the way the hosting platform would.

Usage:
  go run ./cmd/tick-sim [options]

Options:
  -url string
        Base URL of the robot (default "http://localhost:5000")
  -ticks int
        Number of ticks to fire (default 10)
  -workers int
        Number of concurrent tick senders (default 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -receiver string
        Listen address of the local return_url receiver (default "127.0.0.1:0")
  -wait duration
        How long to wait for deliveries after the last tick (default 10s)
  -log-format string
        Log format: text or json (default "text")
  -verbose
        Log every tick
  -help
        Show this help message

Examples:
  # Run a robot on the static fixture, then simulate ten ticks
  TRAFFIC_SOURCE=static go run ./cmd &
  go run ./cmd/tick-sim -ticks 10
`)
}
