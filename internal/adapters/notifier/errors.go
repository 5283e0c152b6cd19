package notifier

import (
	"errors"
	"fmt"
)

// Sentinel kinds for notifier errors.
var (
	// ErrInvalidDestination is returned before any network call is made.
	ErrInvalidDestination = errors.New("invalid destination")
	// ErrDeliveryFailed covers transport errors and non-2xx responses.
	ErrDeliveryFailed = errors.New("delivery failed")
)

// DeliveryError reports a failed POST. Status is zero for transport errors.
type DeliveryError struct {
	Destination string
	Status      int
	Detail      string
	Err         error
}

func (e *DeliveryError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("delivery to %s failed: HTTP %d: %s", e.Destination, e.Status, e.Detail)
	}
	return fmt.Sprintf("delivery to %s failed: %s", e.Destination, e.Detail)
}

// Is makes errors.Is(err, ErrDeliveryFailed) hold for every DeliveryError.
func (e *DeliveryError) Is(target error) bool { return target == ErrDeliveryFailed }

func (e *DeliveryError) Unwrap() error { return e.Err }
