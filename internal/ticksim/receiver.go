package ticksim

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/okian/trafficrobot/pkg/logger"
)

const (
	congestedPrefix  = "🚨"
	clearPrefix      = "✅"
	maxMessageBytes  = 16 << 10
	receiverShutdown = 5 * time.Second
)

// Receiver is a local stand-in for the platform's return_url.
type Receiver struct {
	srv      *http.Server
	ln       net.Listener
	mu       sync.Mutex
	messages map[string][]string // tick id -> every message delivered for it
	anon     []string            // messages without a tick id
	notify   chan struct{}
}

// NewReceiver listens on addr. Use "127.0.0.1:0" for an ephemeral port.
func NewReceiver(addr string) (*Receiver, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	r := &Receiver{
		ln:       ln,
		messages: make(map[string][]string),
		notify:   make(chan struct{}, 1),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/return", r.handle)
	r.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := r.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Get().Error(context.Background(), "receiver stopped", logger.Error(err))
		}
	}()
	return r, nil
}

// URL is the return_url to hand to the robot.
func (r *Receiver) URL() string {
	return "http://" + r.ln.Addr().String() + "/return"
}

func (r *Receiver) handle(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.NotFound(w, req)
		return
	}
	var m Message
	if err := json.NewDecoder(io.LimitReader(req.Body, maxMessageBytes)).Decode(&m); err != nil {
		http.Error(w, "bad message", http.StatusBadRequest)
		return
	}
	r.mu.Lock()
	if id := req.Header.Get("X-Tick-ID"); id != "" {
		r.messages[id] = append(r.messages[id], m.Message)
	} else {
		r.anon = append(r.anon, m.Message)
	}
	r.mu.Unlock()
	select {
	case r.notify <- struct{}{}:
	default:
	}
	w.WriteHeader(http.StatusOK)
}

// Message returns the first message delivered for tickID.
func (r *Receiver) Message(tickID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ms := r.messages[tickID]
	if len(ms) == 0 {
		return "", false
	}
	return ms[0], true
}

// Deliveries returns how many messages arrived for tickID.
func (r *Receiver) Deliveries(tickID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages[tickID])
}

// Count returns the number of messages received, duplicates included.
func (r *Receiver) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.anon)
	for _, ms := range r.messages {
		n += len(ms)
	}
	return n
}

// WaitFor blocks until n messages arrived or ctx ends.
func (r *Receiver) WaitFor(ctx context.Context, n int) bool {
	for r.Count() < n {
		select {
		case <-ctx.Done():
			return false
		case <-r.notify:
		}
	}
	return true
}

// Tally counts congested and clear messages.
func (r *Receiver) Tally() (congested, clear int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := func(m string) {
		switch {
		case strings.HasPrefix(m, congestedPrefix):
			congested++
		case strings.HasPrefix(m, clearPrefix):
			clear++
		}
	}
	for _, ms := range r.messages {
		for _, m := range ms {
			count(m)
		}
	}
	for _, m := range r.anon {
		count(m)
	}
	return congested, clear
}

// Close stops the receiver.
func (r *Receiver) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), receiverShutdown)
	defer cancel()
	return r.srv.Shutdown(ctx)
}
