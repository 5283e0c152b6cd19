package errkind_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/trafficrobot/pkg/errkind"
	. "github.com/smartystreets/goconvey/convey"
)

var errBoom = errors.New("boom")

func TestWrap(t *testing.T) {
	Convey("Given a wrapped deadline error", t, func() {
		err := errkind.Wrap("source.fetch", errBoom, context.DeadlineExceeded)

		Convey("Then it should match both the kind and the cause", func() {
			So(errors.Is(err, errBoom), ShouldBeTrue)
			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
			So(errors.Is(err, context.Canceled), ShouldBeFalse)
		})

		Convey("And the message should read op: kind: cause", func() {
			So(err.Error(), ShouldEqual, "source.fetch: boom: context deadline exceeded")
		})

		Convey("And errors.As should recover the structured error", func() {
			var ke *errkind.Error
			So(errors.As(err, &ke), ShouldBeTrue)
			So(ke.Op, ShouldEqual, "source.fetch")
		})
	})

	Convey("Given a kind error without cause", t, func() {
		err := errkind.New("api.tick", errBoom)

		Convey("Then the message should omit the cause", func() {
			So(err.Error(), ShouldEqual, "api.tick: boom")
			So(errors.Is(err, errBoom), ShouldBeTrue)
		})
	})

	Convey("Given nested kind errors", t, func() {
		inner := errkind.Wrap("notifier.deliver", errBoom, errors.New("status 502"))
		outer := errkind.Wrap("app.tick", context.Canceled, inner)

		Convey("Then every kind in the chain should match", func() {
			So(errors.Is(outer, context.Canceled), ShouldBeTrue)
			So(errors.Is(outer, errBoom), ShouldBeTrue)
		})
	})
}
