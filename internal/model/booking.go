package model

import "time"

// DateLayout is the wire and storage format for check-in and check-out
// dates.
const DateLayout = "2006-01-02"

// Booking records a guest's stay in a room for a date range.  Check-in
// and check-out are calendar dates normalised to UTC midnight.  The
// booking exclusively owns its Payment; both are written in the same
// transaction.
//
// Fields:
//  ID             – primary key identifier.
//  RoomID         – room being booked.
//  UserID         – user who owns the booking.
//  CheckIn        – first night of the stay.
//  CheckOut       – departure date.
//  CreatedAt      – creation timestamp.
//  IsFinished     – terminal flag; finished bookings no longer block the room.
//  GuestsQuantity – number of guests staying.
//  Payment        – the payment attached to the booking.
type Booking struct {
	ID             uint64    // bookings.id
	RoomID         uint64    // bookings.room_id
	UserID         uint64    // bookings.user_id
	CheckIn        time.Time // bookings.check_in
	CheckOut       time.Time // bookings.check_out
	CreatedAt      time.Time // bookings.created_at
	IsFinished     bool      // bookings.is_finished
	GuestsQuantity int       // bookings.guests_quantity
	Payment        Payment   // payments row where payments.booking_id = bookings.id
}

// BookingDetail is the read model returned to callers: a booking joined
// with its room and the total price derived from the room's nightly rate.
// TotalPriceCents is never persisted.
type BookingDetail struct {
	ID              uint64    `json:"id"`
	UserID          uint64    `json:"user_id"`
	CheckIn         string    `json:"check_in"`
	CheckOut        string    `json:"check_out"`
	CreatedAt       time.Time `json:"created_at"`
	IsFinished      bool      `json:"is_finished"`
	GuestsQuantity  int       `json:"guests_quantity"`
	Nights          int       `json:"nights"`
	TotalPriceCents int64     `json:"total_price_cents"`
	Room            Room      `json:"room"`
	Payment         Payment   `json:"payment"`
}

// BookingFilter narrows booking listings.  Zero values mean "no filter".
// Limit and Offset implement page based pagination.
type BookingFilter struct {
	UserID uint64
	RoomID uint64
	Limit  int
	Offset int
}
