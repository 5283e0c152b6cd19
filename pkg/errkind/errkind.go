// Package errkind attaches an operation name and a sentinel kind to errors so
// callers can branch with errors.Is on the kind while logs keep the cause.
package errkind

import "strings"

// Error is an operation failure classified by a sentinel kind.
type Error struct {
	Op   string // e.g. "source.live.fetch"
	Kind error  // sentinel declared in the owning package's errors.go
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	}
	if e.Err != nil {
		if e.Kind != nil {
			b.WriteString(": ")
		}
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// New returns an error of kind raised by op without a further cause.
func New(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// Wrap classifies err as kind. A nil err still yields a kind error.
func Wrap(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}
