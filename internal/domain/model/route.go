// Package model contains domain models passed between layers.
package model

// CongestionTag marks a step whose traffic speed is abnormal.
const CongestionTag = "congestion"

// RouteSpec names the route a data source should report on.
type RouteSpec struct {
	Name        string // human label used in messages, e.g. "Highway 5"
	Origin      string
	Destination string
}

// RouteReport is the normalized result of one data source fetch.
// It is owned by the fetch that produced it and discarded after evaluation.
type RouteReport struct {
	RouteID string
	Routes  []Route
}

// Route is one candidate route returned by the data source.
type Route struct {
	Summary string
	Legs    []Leg
}

// Leg is a segment of a route between two waypoints.
type Leg struct {
	Steps []Step
}

// Step is a single traffic sample. SpeedEntries are case-sensitive opaque tags.
type Step struct {
	SpeedEntries []string
}

// HasTag reports whether the step carries tag exactly.
func (s Step) HasTag(tag string) bool {
	for _, e := range s.SpeedEntries {
		if e == tag {
			return true
		}
	}
	return false
}

// Steps flattens every step of every route and leg in scan order.
func (r RouteReport) Steps() []Step {
	var out []Step
	for _, route := range r.Routes {
		for _, leg := range route.Legs {
			out = append(out, leg.Steps...)
		}
	}
	return out
}
