package booking

import (
	"time"

	"github.com/iliyamo/hotel-booking/internal/model"
)

// Nights counts the calendar days in [checkIn, checkOut).  Callers
// validate the ordering first; a reversed range yields a non-positive
// count.
func Nights(checkIn, checkOut time.Time) int {
	return int(Day(checkOut).Sub(Day(checkIn)) / day)
}

// TotalPrice is the room's nightly rate times the number of nights.
func TotalPrice(room model.Room, checkIn, checkOut time.Time) int64 {
	return room.PricePerNightCents * int64(Nights(checkIn, checkOut))
}

// Detail builds the read model for b, deriving nights and total price
// from room.
func Detail(b model.Booking, room model.Room) model.BookingDetail {
	return model.BookingDetail{
		ID:              b.ID,
		UserID:          b.UserID,
		CheckIn:         Day(b.CheckIn).Format(model.DateLayout),
		CheckOut:        Day(b.CheckOut).Format(model.DateLayout),
		CreatedAt:       b.CreatedAt,
		IsFinished:      b.IsFinished,
		GuestsQuantity:  b.GuestsQuantity,
		Nights:          Nights(b.CheckIn, b.CheckOut),
		TotalPriceCents: TotalPrice(room, b.CheckIn, b.CheckOut),
		Room:            room,
		Payment:         b.Payment,
	}
}
