package booking

import "github.com/iliyamo/hotel-booking/internal/model"

// Actor is the authenticated identity performing an operation.  It is
// passed explicitly to every lifecycle call.
type Actor struct {
	UserID uint64
	Role   string
}

// Elevated reports whether the actor may act on bookings it does not own.
func (a Actor) Elevated() bool {
	return a.Role == model.RoleAdmin || a.Role == model.RoleOperator
}
