package notifier_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/okian/trafficrobot/internal/adapters/notifier"
	"github.com/okian/trafficrobot/internal/domain/model"
	"github.com/okian/trafficrobot/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// countingTransport fails the test if any request is attempted.
type countingTransport struct {
	mu    sync.Mutex
	calls int
}

func (c *countingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return nil, errors.New("unexpected network call")
}

type capture struct {
	mu      sync.Mutex
	bodies  [][]byte
	headers []http.Header
}

func (c *capture) handler(status int, delay time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.bodies = append(c.bodies, body)
		c.headers = append(c.headers, r.Header.Clone())
		c.mu.Unlock()
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte("upstream says no"))
	}
}

func TestValidateDestination(t *testing.T) {
	Convey("Given candidate destinations", t, func() {
		valid := []string{
			"https://example.test/hook",
			"http://localhost:8080/return",
			"https://ping.telex.im/v1/return/0195?x=1",
		}
		invalid := []string{
			"",
			"   ",
			"not a url",
			"/relative/path",
			"example.test/hook",
			"ftp://example.test/hook",
			"https://",
			"http://:8080/",
			"://missing-scheme",
		}

		Convey("Then absolute http(s) URLs should be accepted", func() {
			for _, d := range valid {
				So(notifier.ValidateDestination(d), ShouldBeNil)
			}
		})

		Convey("And everything else should be rejected as invalid", func() {
			for _, d := range invalid {
				err := notifier.ValidateDestination(d)
				So(errors.Is(err, notifier.ErrInvalidDestination), ShouldBeTrue)
			}
		})
	})
}

func TestNotifier_Deliver(t *testing.T) {
	Convey("Given a notifier whose transport counts calls", t, func() {
		rt := &countingTransport{}
		n := notifier.New(notifier.WithHTTPClient(&http.Client{Transport: rt}))

		Convey("When delivering to an invalid destination", func() {
			outcome, err := n.Deliver(context.Background(), "nope", "hello")

			Convey("Then no network call should be made", func() {
				So(errors.Is(err, notifier.ErrInvalidDestination), ShouldBeTrue)
				So(rt.calls, ShouldEqual, 0)
				So(outcome.Delivered, ShouldBeFalse)
				So(outcome.Attempts, ShouldEqual, 0)
			})
		})
	})

	Convey("Given a destination that accepts deliveries", t, func() {
		c := &capture{}
		srv := httptest.NewServer(c.handler(http.StatusOK, 0))
		defer srv.Close()
		n := notifier.New(notifier.WithHTTPClient(srv.Client()), notifier.WithUserAgent("robot-test"))

		Convey("When delivering a message", func() {
			ctx := logger.WithTickID(context.Background(), "tick-42")
			outcome, err := n.Deliver(ctx, srv.URL+"/hook", "🚨 Highway 5 is blocked!")

			Convey("Then exactly one JSON POST should arrive", func() {
				So(err, ShouldBeNil)
				So(outcome.Delivered, ShouldBeTrue)
				So(outcome.Attempts, ShouldEqual, 1)
				So(outcome.StatusCode, ShouldEqual, http.StatusOK)
				So(c.bodies, ShouldHaveLength, 1)

				var got map[string]string
				So(json.Unmarshal(c.bodies[0], &got), ShouldBeNil)
				So(got, ShouldResemble, map[string]string{"message": "🚨 Highway 5 is blocked!"})
			})

			Convey("And the request should carry the expected headers", func() {
				h := c.headers[0]
				So(h.Get("Content-Type"), ShouldEqual, "application/json")
				So(h.Get("User-Agent"), ShouldEqual, "robot-test")
				So(h.Get(notifier.TickIDHeader), ShouldEqual, "tick-42")
			})
		})
	})

	Convey("Given a destination that rejects deliveries", t, func() {
		c := &capture{}
		srv := httptest.NewServer(c.handler(http.StatusBadGateway, 0))
		defer srv.Close()
		n := notifier.New(notifier.WithHTTPClient(srv.Client()))

		Convey("When delivering a message", func() {
			outcome, err := n.Deliver(context.Background(), srv.URL+"/hook?token=secret", "hello")

			Convey("Then the failure should carry status and detail", func() {
				So(errors.Is(err, notifier.ErrDeliveryFailed), ShouldBeTrue)
				var de *notifier.DeliveryError
				So(errors.As(err, &de), ShouldBeTrue)
				So(de.Status, ShouldEqual, http.StatusBadGateway)
				So(de.Detail, ShouldEqual, "upstream says no")
				So(outcome.Delivered, ShouldBeFalse)
				So(outcome.StatusCode, ShouldEqual, http.StatusBadGateway)
			})

			Convey("And it should not retry", func() {
				So(c.bodies, ShouldHaveLength, 1)
			})

			Convey("And the error should not leak the query string", func() {
				So(err.Error(), ShouldNotContainSubstring, "secret")
			})
		})
	})

	Convey("Given a destination that redirects elsewhere", t, func() {
		final := &capture{}
		target := httptest.NewServer(final.handler(http.StatusOK, 0))
		defer target.Close()
		redirector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, target.URL+"/moved", http.StatusFound)
		}))
		defer redirector.Close()

		for name, n := range map[string]*notifier.Notifier{
			"default client":  notifier.New(),
			"injected client": notifier.New(notifier.WithHTTPClient(redirector.Client())),
		} {
			Convey("When delivering with the "+name, func() {
				outcome, err := n.Deliver(context.Background(), redirector.URL+"/hook", "hello")

				Convey("Then the redirect should be a delivery failure", func() {
					So(errors.Is(err, notifier.ErrDeliveryFailed), ShouldBeTrue)
					So(outcome.Delivered, ShouldBeFalse)
					So(outcome.StatusCode, ShouldEqual, http.StatusFound)
				})

				Convey("And nothing should reach the redirect target", func() {
					final.mu.Lock()
					defer final.mu.Unlock()
					So(final.bodies, ShouldBeEmpty)
				})
			})
		}
	})

	Convey("Given a destination slower than the timeout", t, func() {
		c := &capture{}
		srv := httptest.NewServer(c.handler(http.StatusOK, 300*time.Millisecond))
		defer srv.Close()
		n := notifier.New(notifier.WithHTTPClient(srv.Client()), notifier.WithTimeout(20*time.Millisecond))

		Convey("When delivering a message", func() {
			start := time.Now()
			outcome, err := n.Deliver(context.Background(), srv.URL, "hello")

			Convey("Then it should give up within the timeout", func() {
				So(errors.Is(err, notifier.ErrDeliveryFailed), ShouldBeTrue)
				So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
				So(outcome.StatusCode, ShouldEqual, 0)
				So(time.Since(start), ShouldBeLessThan, 250*time.Millisecond)
			})
		})
	})

	Convey("Given an unreachable destination", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		addr := srv.URL
		srv.Close()
		n := notifier.New()

		Convey("Then the transport error should be a delivery failure", func() {
			_, err := n.Deliver(context.Background(), addr, "hello")
			So(errors.Is(err, notifier.ErrDeliveryFailed), ShouldBeTrue)
		})
	})
}

func TestStatusChannel(t *testing.T) {
	Convey("Given a status webhook", t, func() {
		c := &capture{}
		srv := httptest.NewServer(c.handler(http.StatusAccepted, 0))
		defer srv.Close()
		ch := notifier.NewStatusChannel(srv.URL, "", "", notifier.WithHTTPClient(srv.Client()))

		Convey("When sending a status event", func() {
			ev := ch.Event(model.StatusError, "🚨 Highway 5 is blocked!")
			err := ch.Send(context.Background(), ev)

			Convey("Then the payload should follow the status webhook contract", func() {
				So(err, ShouldBeNil)
				So(ch.Enabled(), ShouldBeTrue)
				var got map[string]string
				So(json.Unmarshal(c.bodies[0], &got), ShouldBeNil)
				So(got, ShouldResemble, map[string]string{
					"event_name": "Traffic Update",
					"message":    "🚨 Highway 5 is blocked!",
					"status":     "error",
					"username":   "traffic-robot",
				})
			})
		})
	})

	Convey("Given no webhook URL", t, func() {
		ch := notifier.NewStatusChannel("", "Robot", "bot")

		Convey("Then the channel should be disabled and sends should fail fast", func() {
			So(ch.Enabled(), ShouldBeFalse)
			err := ch.Send(context.Background(), ch.Event(model.StatusSuccess, "ok"))
			So(errors.Is(err, notifier.ErrInvalidDestination), ShouldBeTrue)
		})
	})
}
