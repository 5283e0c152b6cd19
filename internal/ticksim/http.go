package ticksim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/trafficrobot/pkg/logger"
)

// Result labels for a single tick.
const (
	resultSuccess = "success"
	resultFailed  = "failed"
)

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// PostTick posts a tick carrying requestID as X-Request-ID.
func (c *HTTPClient) PostTick(ctx context.Context, url, requestID string, body TickRequest) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	return c.client.Do(req)
}

// fireTicks posts cfg.Ticks ticks with cfg.Workers senders and returns the
// ids of the ticks the robot acknowledged.
func fireTicks(ctx context.Context, cfg *Config, returnURL string, stats *Stats) []string {
	log := logger.Get().Named("ticksim")
	client := newHTTPClient(cfg.Timeout)
	url := cfg.BaseURL + "/tick"

	var (
		sent, succeeded, failed int64
		mu                      sync.Mutex
		acked                   []string
	)

	ids := make(chan string, cfg.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range ids {
				atomic.AddInt64(&sent, 1)
				result := sendTick(ctx, client, url, id, returnURL)
				if result == resultSuccess {
					atomic.AddInt64(&succeeded, 1)
					mu.Lock()
					acked = append(acked, id)
					mu.Unlock()
				} else {
					atomic.AddInt64(&failed, 1)
				}
				if cfg.Verbose {
					log.Info(ctx, "tick sent", logger.String("tick_id", id), logger.String("result", result))
				}
			}
		}()
	}

	go func() {
		defer close(ids)
		for i := 0; i < cfg.Ticks; i++ {
			select {
			case <-ctx.Done():
				return
			case ids <- uuid.NewString():
			}
		}
	}()

	wg.Wait()

	stats.TicksSent = int(atomic.LoadInt64(&sent))
	stats.TicksSucceeded = int(atomic.LoadInt64(&succeeded))
	stats.TicksFailed = int(atomic.LoadInt64(&failed))
	return acked
}

// sendTick posts one tick and reports success or failure.
func sendTick(ctx context.Context, client *HTTPClient, url, id, returnURL string) string {
	resp, err := client.PostTick(ctx, url, id, TickRequest{ReturnURL: returnURL})
	if err != nil {
		return resultFailed
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

	if resp.StatusCode != http.StatusOK || string(body) != "Done!" {
		return resultFailed
	}
	return resultSuccess
}
