package model_test

import (
	"testing"

	"github.com/okian/trafficrobot/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRouteReport_Steps(t *testing.T) {
	Convey("Given a report with two routes and several legs", t, func() {
		report := model.RouteReport{
			RouteID: "r1",
			Routes: []model.Route{
				{Legs: []model.Leg{
					{Steps: []model.Step{{SpeedEntries: []string{"a"}}, {SpeedEntries: []string{"b"}}}},
					{Steps: nil},
				}},
				{Legs: []model.Leg{
					{Steps: []model.Step{{SpeedEntries: []string{"c"}}}},
				}},
			},
		}

		Convey("Then Steps should flatten in route, leg, step order", func() {
			steps := report.Steps()
			So(steps, ShouldHaveLength, 3)
			So(steps[0].SpeedEntries, ShouldResemble, []string{"a"})
			So(steps[2].SpeedEntries, ShouldResemble, []string{"c"})
		})
	})

	Convey("Given an empty report", t, func() {
		Convey("Then Steps should be empty", func() {
			So(model.RouteReport{}.Steps(), ShouldBeEmpty)
		})
	})
}

func TestStep_HasTag(t *testing.T) {
	Convey("Given a step with tags", t, func() {
		step := model.Step{SpeedEntries: []string{"normal", model.CongestionTag}}

		Convey("Then an exact tag should match", func() {
			So(step.HasTag("congestion"), ShouldBeTrue)
		})

		Convey("And matching should be case-sensitive", func() {
			So(step.HasTag("Congestion"), ShouldBeFalse)
			So(step.HasTag("CONGESTION"), ShouldBeFalse)
		})
	})
}

func TestClassification_String(t *testing.T) {
	Convey("Given the classification values", t, func() {
		So(model.Clear.String(), ShouldEqual, "clear")
		So(model.Congested.String(), ShouldEqual, "congested")
	})
}
