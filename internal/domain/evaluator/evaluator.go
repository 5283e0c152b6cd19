// Package evaluator turns a route report into a classification and a
// human-readable message. It performs no I/O.
package evaluator

import (
	"fmt"

	"github.com/okian/trafficrobot/internal/domain/model"
)

const defaultRouteName = "Highway 5"

// Option applies a configuration option to the Evaluator.
type Option func(*Evaluator)

// WithRouteName sets the route label used in messages.
func WithRouteName(name string) Option {
	return func(e *Evaluator) {
		if name != "" {
			e.routeName = name
		}
	}
}

// Evaluator classifies route reports. It holds only immutable configuration
// and is safe for concurrent use.
type Evaluator struct {
	routeName string
}

// New creates an Evaluator.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{routeName: defaultRouteName}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Classify returns Congested iff any step of any leg of any route carries the
// congestion tag. An empty report is Clear.
func (e *Evaluator) Classify(report model.RouteReport) (model.Classification, string) {
	c := Classification(report)
	return c, e.Message(c)
}

// Message returns the fixed message for c.
func (e *Evaluator) Message(c model.Classification) string {
	if c == model.Congested {
		return fmt.Sprintf("🚨 %s is blocked! Use an alternate route instead!", e.routeName)
	}
	return fmt.Sprintf("✅ %s is clear!", e.routeName)
}

// Classification scans report and stops at the first congested step.
func Classification(report model.RouteReport) model.Classification {
	for _, step := range report.Steps() {
		if step.HasTag(model.CongestionTag) {
			return model.Congested
		}
	}
	return model.Clear
}
