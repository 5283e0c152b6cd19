package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/okian/trafficrobot/internal/adapters/notifier"
	service "github.com/okian/trafficrobot/internal/app"
	"github.com/okian/trafficrobot/internal/domain/model"
	"github.com/okian/trafficrobot/pkg/errkind"
	"github.com/okian/trafficrobot/pkg/logger"
)

const (
	// RequestIDHeader is reused as the tick id when it holds a UUID.
	RequestIDHeader = "X-Request-ID"
	// TickIDHeader echoes the tick id on the response.
	TickIDHeader = notifier.TickIDHeader

	maxTickBodyBytes = 64 << 10
	tickDoneBody     = "Done!"
)

// TickHandler handles tick requests.
type TickHandler struct {
	runner TickRunner
	logger logger.Logger
}

// NewTickHandler creates a new tick handler.
func NewTickHandler(runner TickRunner) *TickHandler {
	return &TickHandler{runner: runner, logger: logger.Get().Named("api.tick")}
}

// HandleTick handles POST /tick requests.
func (h *TickHandler) HandleTick(w http.ResponseWriter, r *http.Request) {
	const op = "api.tick"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	id := tickID(r)
	w.Header().Set(TickIDHeader, id)
	ctx := logger.WithTickID(r.Context(), id)

	var req model.TickRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTickBodyBytes)).Decode(&req); err != nil {
		h.logger.Warn(ctx, "undecodable tick payload", logger.Error(err))
		writeError(w, http.StatusBadRequest, "bad_request", errkind.Wrap(op, ErrBadRequest, err))
		return
	}

	if _, err := h.runner.Tick(ctx, req); err != nil {
		status, code := classify(err)
		writeError(w, status, code, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(tickDoneBody))
}

// classify maps a tick error to an HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrUpstreamFailure):
		return http.StatusInternalServerError, "upstream_failure"
	case errors.Is(err, service.ErrDeliveryFailure):
		return http.StatusInternalServerError, "delivery_failure"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// tickID reuses a valid inbound request id or mints a new one.
func tickID(r *http.Request) string {
	if v := r.Header.Get(RequestIDHeader); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			return id.String()
		}
	}
	return uuid.NewString()
}
