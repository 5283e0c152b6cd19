package source

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/okian/trafficrobot/internal/domain/model"
	"github.com/okian/trafficrobot/pkg/errkind"
)

// Directions API status values we branch on.
const (
	statusOK             = "OK"
	statusZeroResults    = "ZERO_RESULTS"
	statusOverQueryLimit = "OVER_QUERY_LIMIT"
	statusUnknownError   = "UNKNOWN_ERROR"
)

// directionsResponse mirrors the subset of the Directions API payload we use.
// Pointers distinguish a missing key from an empty list.
type directionsResponse struct {
	Status       string             `json:"status"`
	ErrorMessage string             `json:"error_message"`
	Routes       *[]directionsRoute `json:"routes"`
}

type directionsRoute struct {
	Summary string           `json:"summary"`
	Legs    *[]directionsLeg `json:"legs"`
}

type directionsLeg struct {
	Steps *[]directionsStep `json:"steps"`
}

type directionsStep struct {
	TrafficSpeedEntry []string `json:"traffic_speed_entry"`
}

// parseDirections validates payload and converts it into a RouteReport.
func parseDirections(op, routeID string, payload []byte) (model.RouteReport, error) {
	var resp directionsResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return model.RouteReport{}, errkind.Wrap(op, ErrSourceMalformed, err)
	}

	switch resp.Status {
	case "", statusOK:
	case statusZeroResults:
		return model.RouteReport{RouteID: routeID}, nil
	case statusOverQueryLimit, statusUnknownError:
		return model.RouteReport{}, errkind.Wrap(op, ErrSourceUnavailable, apiStatusError(resp))
	default:
		return model.RouteReport{}, errkind.Wrap(op, ErrSourceMalformed, apiStatusError(resp))
	}

	if resp.Routes == nil {
		return model.RouteReport{}, errkind.Wrap(op, ErrSourceMalformed, errors.New("missing routes"))
	}

	report := model.RouteReport{RouteID: routeID, Routes: make([]model.Route, 0, len(*resp.Routes))}
	for i, r := range *resp.Routes {
		if r.Legs == nil {
			return model.RouteReport{}, errkind.Wrap(op, ErrSourceMalformed, fmt.Errorf("routes[%d]: missing legs", i))
		}
		route := model.Route{Summary: r.Summary, Legs: make([]model.Leg, 0, len(*r.Legs))}
		for j, l := range *r.Legs {
			if l.Steps == nil {
				return model.RouteReport{}, errkind.Wrap(op, ErrSourceMalformed, fmt.Errorf("routes[%d].legs[%d]: missing steps", i, j))
			}
			leg := model.Leg{Steps: make([]model.Step, 0, len(*l.Steps))}
			for _, s := range *l.Steps {
				leg.Steps = append(leg.Steps, model.Step{SpeedEntries: s.TrafficSpeedEntry})
			}
			route.Legs = append(route.Legs, leg)
		}
		report.Routes = append(report.Routes, route)
	}
	return report, nil
}

func apiStatusError(resp directionsResponse) error {
	if resp.ErrorMessage != "" {
		return fmt.Errorf("api status %s: %s", resp.Status, resp.ErrorMessage)
	}
	return fmt.Errorf("api status %s", resp.Status)
}
