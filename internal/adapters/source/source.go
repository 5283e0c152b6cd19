// Package source supplies route traffic reports to the tick pipeline.
//
// Two implementations exist: LiveSource queries the Google Directions API and
// StaticSource replays a bundled or on-disk fixture. Both decode through the
// same parser so the evaluator cannot tell them apart.
package source

import (
	"context"
	"errors"

	"github.com/okian/trafficrobot/internal/domain/model"
)

// Source kinds accepted by configuration.
const (
	KindLive   = "live"
	KindStatic = "static"
)

// Source fetches a fresh RouteReport for a route.
type Source interface {
	// Fetch honors ctx for cancellation and deadlines.
	Fetch(ctx context.Context, spec model.RouteSpec) (model.RouteReport, error)

	// Kind returns KindLive or KindStatic.
	Kind() string
}

// errorResult maps an error to a metrics label.
func errorResult(err error) string {
	switch {
	case errors.Is(err, ErrSourceUnavailable):
		return "unavailable"
	case errors.Is(err, ErrSourceMalformed):
		return "malformed"
	default:
		return "error"
	}
}
