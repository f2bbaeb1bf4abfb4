// Package booking holds the booking rules that do not touch storage:
// availability, pricing, payment resolution and the error kinds every
// layer above uses to report business failures.
package booking

import (
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/hotel-booking/internal/model"
)

// Business error kinds.  Callers wrap them with fmt.Errorf("%w: ...") and
// handlers translate them with errors.Is.  Anything that does not match
// one of these is an internal error.
var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("room unavailable")
	ErrBadRequest  = errors.New("bad request")
	ErrForbidden   = errors.New("forbidden")
	ErrConflict    = errors.New("conflict")
)

// UnavailableError reports a date range that collides with an existing
// booking.  It matches ErrUnavailable.
type UnavailableError struct {
	RoomID   uint64
	CheckIn  time.Time
	CheckOut time.Time
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("room %d is unavailable from %s to %s",
		e.RoomID, e.CheckIn.Format(model.DateLayout), e.CheckOut.Format(model.DateLayout))
}

// Is lets errors.Is(err, ErrUnavailable) match.
func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}
