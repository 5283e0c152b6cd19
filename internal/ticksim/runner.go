// Package ticksim drives a running traffic robot the way its hosting
// platform would: it fires ticks at /tick and receives the verdicts on a
// local return_url.
package ticksim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/okian/trafficrobot/pkg/logger"
)

// Run executes a complete simulation.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if cfg.Ticks < 1 || cfg.Workers < 1 {
		return nil, fmt.Errorf("%w: ticks and workers must be positive", ErrInvalidArguments)
	}
	if cfg.Wait <= 0 {
		cfg.Wait = DefaultWait
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	log := logger.Get().Named("ticksim")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting tick simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("ticks", cfg.Ticks),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
	)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, cfg); err != nil {
		return stats, err
	}

	// Step 2: Check the manifest the platform would install
	if err := checkManifest(ctx, cfg); err != nil {
		return stats, err
	}

	// Step 3: Start the return_url receiver
	recv, err := NewReceiver(cfg.ReceiverAddr)
	if err != nil {
		return stats, fmt.Errorf("failed to start receiver: %w", err)
	}
	defer func() { _ = recv.Close() }()

	// Step 4: Fire ticks concurrently
	acked := fireTicks(ctx, cfg, recv.URL(), stats)

	// Step 5: Deliveries are synchronous with the tick; the wait only
	// covers slow receivers.
	waitCtx, cancel := context.WithTimeout(ctx, cfg.Wait)
	defer cancel()
	recv.WaitFor(waitCtx, len(acked))

	// Step 6: Verify every acknowledged tick delivered exactly its message
	stats.MessagesReceived = recv.Count()
	stats.Congested, stats.Clear = recv.Tally()
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	return stats, verifyResults(acked, recv, stats)
}

// checkServiceHealth verifies the robot is serving.
func checkServiceHealth(ctx context.Context, cfg *Config) error {
	resp, err := newHTTPClient(cfg.Timeout).Get(ctx, cfg.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

// checkManifest verifies the manifest describes an interval integration
// whose tick_url points at /tick.
func checkManifest(ctx context.Context, cfg *Config) error {
	resp, err := newHTTPClient(cfg.Timeout).Get(ctx, cfg.BaseURL+"/integration.json")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrManifest, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrManifest, resp.StatusCode)
	}
	var m Manifest
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return fmt.Errorf("%w: %w", ErrManifest, err)
	}
	switch {
	case m.Data.IntegrationType != "interval":
		return fmt.Errorf("%w: integration_type %q", ErrManifest, m.Data.IntegrationType)
	case !strings.HasSuffix(m.Data.TickURL, "/tick"):
		return fmt.Errorf("%w: tick_url %q", ErrManifest, m.Data.TickURL)
	case len(m.Data.Settings) == 0 || m.Data.Settings[0].Label != "interval":
		return fmt.Errorf("%w: missing interval setting", ErrManifest)
	}
	return nil
}

// verifyResults checks each acknowledged tick against the receiver.
func verifyResults(acked []string, recv *Receiver, stats *Stats) error {
	var missing, duplicated []string
	for _, id := range acked {
		switch n := recv.Deliveries(id); {
		case n == 0:
			missing = append(missing, id)
		case n > 1:
			duplicated = append(duplicated, id)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %d of %d acknowledged ticks (first %s)", ErrMissingDelivery, len(missing), len(acked), missing[0])
	}
	if len(duplicated) > 0 {
		return fmt.Errorf("%w: %d of %d acknowledged ticks (first %s)", ErrDuplicateDelivery, len(duplicated), len(acked), duplicated[0])
	}
	if stats.TicksFailed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrTicksFailed, stats.TicksFailed, stats.TicksSent)
	}
	return nil
}

// displayFinalStats logs the final statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, ticksPerSecond float64
	if stats.TicksSent > 0 {
		successRate = float64(stats.TicksSucceeded) / float64(stats.TicksSent) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		ticksPerSecond = float64(stats.TicksSent) / stats.Duration.Seconds()
	}

	logger.Get().Named("ticksim").Info(ctx, "final statistics",
		logger.Int("ticksSent", stats.TicksSent),
		logger.Int("ticksSucceeded", stats.TicksSucceeded),
		logger.Int("ticksFailed", stats.TicksFailed),
		logger.Int("messagesReceived", stats.MessagesReceived),
		logger.Int("congested", stats.Congested),
		logger.Int("clear", stats.Clear),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("ticksPerSecond", ticksPerSecond),
	)
}
