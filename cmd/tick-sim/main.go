package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/trafficrobot/internal/ticksim"
	"github.com/okian/trafficrobot/pkg/logger"
)

// Default configuration constants.
const (
	defaultTicks       = 10
	defaultWorkers     = 2
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 5 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:5000", "Base URL of the robot")
		ticks     = flag.Int("ticks", defaultTicks, "Number of ticks to fire")
		workers   = flag.Int("workers", defaultWorkers, "Number of concurrent tick senders")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		receiver  = flag.String("receiver", "127.0.0.1:0", "Listen address of the local return_url receiver")
		wait      = flag.Duration("wait", ticksim.DefaultWait, "How long to wait for deliveries after the last tick")
		logFormat = flag.String("log-format", logger.FormatText, "Log format: text or json")
		verbose   = flag.Bool("verbose", false, "Log every tick")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		ticksim.ShowHelp()
		return
	}

	if err := logger.Init(logger.WithFormat(*logFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	cfg := &ticksim.Config{
		BaseURL:      *baseURL,
		Ticks:        *ticks,
		Workers:      *workers,
		Timeout:      *timeout,
		ReceiverAddr: *receiver,
		Wait:         *wait,
		Verbose:      *verbose,
	}

	if _, err := ticksim.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "simulation failed", logger.Error(err))
		cancel()
		os.Exit(1)
	}
}
