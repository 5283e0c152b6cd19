package source

import (
	"context"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/okian/trafficrobot/internal/domain/model"
	"github.com/okian/trafficrobot/pkg/errkind"
	"github.com/okian/trafficrobot/pkg/metrics"
)

// Bundled fixture names.
const (
	FixtureCongested = "congested"
	FixtureClear     = "clear"
)

// StaticSource replays a fixed Directions payload. It never reports
// ErrSourceUnavailable; a corrupt payload yields ErrSourceMalformed.
type StaticSource struct {
	name    string
	payload []byte
}

// NewStaticSource loads fixture, which is either a bundled fixture name
// (FixtureCongested, FixtureClear) or a path to a JSON file. The payload is
// validated once here so a broken fixture fails at startup.
func NewStaticSource(fixture string) (*StaticSource, error) {
	const op = "source.static.new"
	if fixture == "" {
		fixture = FixtureCongested
	}

	payload, err := fixtureFS.ReadFile(path.Join("fixtures", fixture+".json"))
	if err != nil {
		payload, err = os.ReadFile(fixture)
		if err != nil {
			return nil, errkind.Wrap(op, ErrSourceConfigMissing, fmt.Errorf("fixture %q: %w", fixture, err))
		}
	}
	return NewStaticSourceFromBytes(fixture, payload)
}

// NewStaticSourceFromBytes wraps an in-memory payload.
func NewStaticSourceFromBytes(name string, payload []byte) (*StaticSource, error) {
	if _, err := parseDirections("source.static.new", name, payload); err != nil {
		return nil, err
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)
	return &StaticSource{name: name, payload: buf}, nil
}

// Kind implements Source.
func (s *StaticSource) Kind() string { return KindStatic }

// Name returns the fixture the source replays.
func (s *StaticSource) Name() string { return s.name }

// Fetch implements Source. Each call decodes a fresh report.
func (s *StaticSource) Fetch(_ context.Context, spec model.RouteSpec) (model.RouteReport, error) {
	start := time.Now()
	report, err := parseDirections("source.static.fetch", routeID(spec), s.payload)

	result := "ok"
	if err != nil {
		result = errorResult(err)
	}
	metrics.RecordSourceFetch(KindStatic, result, float64(time.Since(start).Milliseconds()))
	return report, err
}
