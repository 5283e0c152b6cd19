package source_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/trafficrobot/internal/adapters/source"
	"github.com/okian/trafficrobot/internal/domain/evaluator"
	"github.com/okian/trafficrobot/internal/domain/model"
	"github.com/okian/trafficrobot/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var spec = model.RouteSpec{Name: "Highway 5", Origin: "Start", Destination: "End"}

const congestedPayload = `{"status":"OK","routes":[{"legs":[{"steps":[{"traffic_speed_entry":["normal"]},{"traffic_speed_entry":["congestion"]}]}]}]}`

func TestNewLiveSource(t *testing.T) {
	Convey("Given no API key", t, func() {
		s, err := source.NewLiveSource("  ")

		Convey("Then construction should fail with a config error", func() {
			So(s, ShouldBeNil)
			So(errors.Is(err, source.ErrSourceConfigMissing), ShouldBeTrue)
		})
	})

	Convey("Given an API key", t, func() {
		s, err := source.NewLiveSource("secret")

		Convey("Then it should build a live source", func() {
			So(err, ShouldBeNil)
			So(s.Kind(), ShouldEqual, source.KindLive)
		})
	})
}

func TestLiveSource_Fetch(t *testing.T) {
	Convey("Given a directions API stub", t, func() {
		var (
			calls   int32
			status  = http.StatusOK
			body    = congestedPayload
			delay   time.Duration
			lastURL atomic.Value
		)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			lastURL.Store(r.URL.String())
			if delay > 0 {
				select {
				case <-time.After(delay):
				case <-r.Context().Done():
					return
				}
			}
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
		}))
		defer srv.Close()

		newSource := func(opts ...source.Option) *source.LiveSource {
			opts = append([]source.Option{source.WithBaseURL(srv.URL), source.WithHTTPClient(srv.Client())}, opts...)
			s, err := source.NewLiveSource("secret-key", opts...)
			So(err, ShouldBeNil)
			return s
		}

		Convey("When the API returns a congested route", func() {
			report, err := newSource().Fetch(context.Background(), spec)

			Convey("Then the report should carry the congestion tag", func() {
				So(err, ShouldBeNil)
				So(report.RouteID, ShouldEqual, "Start->End")
				So(evaluator.Classification(report), ShouldEqual, model.Congested)
			})

			Convey("And the request should ask for live traffic", func() {
				u := lastURL.Load().(string)
				So(u, ShouldStartWith, "/maps/api/directions/json?")
				So(u, ShouldContainSubstring, "origin=Start")
				So(u, ShouldContainSubstring, "destination=End")
				So(u, ShouldContainSubstring, "departure_time=now")
				So(u, ShouldContainSubstring, "traffic_model=best_guess")
				So(u, ShouldContainSubstring, "key=secret-key")
			})
		})

		Convey("When the API answers with HTTP 503", func() {
			status = http.StatusServiceUnavailable
			body = "down"
			_, err := newSource().Fetch(context.Background(), spec)

			Convey("Then the source should be unavailable without retrying", func() {
				So(errors.Is(err, source.ErrSourceUnavailable), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "503")
				So(atomic.LoadInt32(&calls), ShouldEqual, 1)
			})
		})

		Convey("When the API is slower than the timeout", func() {
			delay = 200 * time.Millisecond
			_, err := newSource(source.WithTimeout(20*time.Millisecond)).Fetch(context.Background(), spec)

			Convey("Then the fetch should fail as unavailable", func() {
				So(errors.Is(err, source.ErrSourceUnavailable), ShouldBeTrue)
				So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
				So(err.Error(), ShouldNotContainSubstring, "secret-key")
			})
		})

		Convey("When the caller context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := newSource().Fetch(ctx, spec)

			Convey("Then the fetch should fail as unavailable", func() {
				So(errors.Is(err, source.ErrSourceUnavailable), ShouldBeTrue)
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})

		Convey("When the API returns a body that is not JSON", func() {
			body = "<html>oops</html>"
			_, err := newSource().Fetch(context.Background(), spec)

			Convey("Then the fetch should fail as malformed", func() {
				So(errors.Is(err, source.ErrSourceMalformed), ShouldBeTrue)
			})
		})

		Convey("When the API denies the request", func() {
			body = `{"status":"REQUEST_DENIED","error_message":"The provided API key is invalid."}`
			_, err := newSource().Fetch(context.Background(), spec)

			Convey("Then the fetch should fail as malformed with the API message", func() {
				So(errors.Is(err, source.ErrSourceMalformed), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "REQUEST_DENIED")
				So(err.Error(), ShouldContainSubstring, "API key is invalid")
			})
		})

		Convey("When the API is over its query limit", func() {
			body = `{"status":"OVER_QUERY_LIMIT"}`
			_, err := newSource().Fetch(context.Background(), spec)

			Convey("Then the fetch should fail as unavailable", func() {
				So(errors.Is(err, source.ErrSourceUnavailable), ShouldBeTrue)
			})
		})

		Convey("When the API finds no route", func() {
			body = `{"status":"ZERO_RESULTS","routes":[]}`
			report, err := newSource().Fetch(context.Background(), spec)

			Convey("Then the report should be empty and classify as clear", func() {
				So(err, ShouldBeNil)
				So(report.Steps(), ShouldBeEmpty)
				So(evaluator.Classification(report), ShouldEqual, model.Clear)
			})
		})
	})
}

func TestParseShapes(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		wantErr error
		steps   int
	}{
		{"missing routes", `{"status":"OK"}`, source.ErrSourceMalformed, 0},
		{"null routes", `{"status":"OK","routes":null}`, source.ErrSourceMalformed, 0},
		{"missing legs", `{"status":"OK","routes":[{}]}`, source.ErrSourceMalformed, 0},
		{"missing steps", `{"status":"OK","routes":[{"legs":[{}]}]}`, source.ErrSourceMalformed, 0},
		{"empty routes", `{"status":"OK","routes":[]}`, nil, 0},
		{"empty legs", `{"routes":[{"legs":[]}]}`, nil, 0},
		{"empty steps", `{"routes":[{"legs":[{"steps":[]}]}]}`, nil, 0},
		{"step without speed entries", `{"routes":[{"legs":[{"steps":[{}]}]}]}`, nil, 1},
		{"wrong type", `{"routes":"nope"}`, source.ErrSourceMalformed, 0},
	}

	Convey("Given directions payloads of various shapes", t, func() {
		for _, tc := range cases {
			tc := tc
			Convey("When the payload has "+tc.name, func() {
				s, err := source.NewStaticSourceFromBytes(tc.name, []byte(tc.payload))
				if tc.wantErr != nil {
					So(errors.Is(err, tc.wantErr), ShouldBeTrue)
					So(s, ShouldBeNil)
					return
				}
				So(err, ShouldBeNil)
				report, err := s.Fetch(context.Background(), spec)
				So(err, ShouldBeNil)
				So(report.Steps(), ShouldHaveLength, tc.steps)
			})
		}
	})
}

func TestStaticSource(t *testing.T) {
	Convey("Given the bundled congested fixture", t, func() {
		s, err := source.NewStaticSource(source.FixtureCongested)
		So(err, ShouldBeNil)

		Convey("Then it should report a congested route", func() {
			report, err := s.Fetch(context.Background(), spec)
			So(err, ShouldBeNil)
			So(s.Kind(), ShouldEqual, source.KindStatic)
			So(evaluator.Classification(report), ShouldEqual, model.Congested)
		})

		Convey("And every fetch should produce an independent report", func() {
			r1, _ := s.Fetch(context.Background(), spec)
			r1.Routes[0].Legs[0].Steps[0].SpeedEntries[0] = "mutated"
			r2, _ := s.Fetch(context.Background(), spec)
			So(r2.Routes[0].Legs[0].Steps[0].SpeedEntries[0], ShouldEqual, "normal")
		})
	})

	Convey("Given the bundled clear fixture", t, func() {
		s, err := source.NewStaticSource(source.FixtureClear)
		So(err, ShouldBeNil)

		Convey("Then it should report a clear route", func() {
			report, err := s.Fetch(context.Background(), spec)
			So(err, ShouldBeNil)
			So(evaluator.Classification(report), ShouldEqual, model.Clear)
		})
	})

	Convey("Given no fixture name", t, func() {
		s, err := source.NewStaticSource("")

		Convey("Then the congested fixture should be used", func() {
			So(err, ShouldBeNil)
			So(s.Name(), ShouldEqual, source.FixtureCongested)
		})
	})

	Convey("Given a fixture file on disk", t, func() {
		dir := t.TempDir()
		p := filepath.Join(dir, "route.json")
		So(os.WriteFile(p, []byte(congestedPayload), 0o600), ShouldBeNil)

		Convey("Then it should be loaded from the path", func() {
			s, err := source.NewStaticSource(p)
			So(err, ShouldBeNil)
			report, err := s.Fetch(context.Background(), spec)
			So(err, ShouldBeNil)
			So(evaluator.Classification(report), ShouldEqual, model.Congested)
		})
	})

	Convey("Given a corrupt fixture file", t, func() {
		dir := t.TempDir()
		p := filepath.Join(dir, "broken.json")
		So(os.WriteFile(p, []byte(`{"routes": [`), 0o600), ShouldBeNil)

		Convey("Then construction should fail as malformed", func() {
			_, err := source.NewStaticSource(p)
			So(errors.Is(err, source.ErrSourceMalformed), ShouldBeTrue)
		})
	})

	Convey("Given a fixture that does not exist", t, func() {
		_, err := source.NewStaticSource(filepath.Join(t.TempDir(), "missing.json"))

		Convey("Then construction should fail as missing configuration", func() {
			So(errors.Is(err, source.ErrSourceConfigMissing), ShouldBeTrue)
			So(strings.Contains(err.Error(), "missing.json"), ShouldBeTrue)
		})
	})
}
