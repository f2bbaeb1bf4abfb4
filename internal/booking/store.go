package booking

import (
	"context"

	"github.com/iliyamo/hotel-booking/internal/model"
)

// Tx is the set of storage operations available inside one atomic unit
// of work.  Lookups of a missing row return an error matching
// ErrNotFound.  LockRoom holds the room row until the unit ends so
// concurrent check-then-insert sequences on the same room run one after
// another while other rooms stay unaffected.
type Tx interface {
	CardFinder

	LockRoom(ctx context.Context, roomID uint64) (model.Room, error)
	ActiveBookingsByRoom(ctx context.Context, roomID uint64) ([]model.Booking, error)
	GetBookingForUpdate(ctx context.Context, id uint64) (model.Booking, error)
	GetUser(ctx context.Context, id uint64) (model.User, error)

	// InsertBooking stores b and its payment, filling in the generated
	// IDs and CreatedAt.
	InsertBooking(ctx context.Context, b *model.Booking) error
	UpdateBooking(ctx context.Context, b model.Booking) error
	// ReplacePayment discards the booking's current payment and stores p
	// in its place, filling in p.ID.
	ReplacePayment(ctx context.Context, bookingID uint64, p *model.Payment) error
	// DeleteBooking removes the booking together with its payment.  It
	// returns an error matching ErrConflict when other records still
	// reference the booking.
	DeleteBooking(ctx context.Context, id uint64) error
	FinishBooking(ctx context.Context, id uint64) error
}

// Store is the persistence contract of the booking lifecycle.  WithinTx
// runs fn in a transaction that is committed only when fn returns nil.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	GetBooking(ctx context.Context, id uint64) (model.Booking, error)
	ListBookings(ctx context.Context, f model.BookingFilter) ([]model.Booking, error)
	GetRoom(ctx context.Context, id uint64) (model.Room, error)
	ActiveBookingsByRoom(ctx context.Context, roomID uint64) ([]model.Booking, error)
}
