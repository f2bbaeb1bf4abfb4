package booking

import (
	"time"

	"github.com/iliyamo/hotel-booking/internal/model"
)

const day = 24 * time.Hour

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Overlaps reports whether stay a collides with stay b.  The check-out
// night is blocked on both sides, so a guest cannot check in on the day
// another checks out.  The relation is symmetric.
func Overlaps(aIn, aOut, bIn, bOut time.Time) bool {
	aIn, aOut, bIn, bOut = Day(aIn), Day(aOut), Day(bIn), Day(bOut)
	return aIn.Before(bOut.Add(day)) && aOut.Add(day).After(bIn)
}

// IsAvailable reports whether [checkIn, checkOut) can be booked given the
// room's existing bookings.  Finished bookings and the booking with ID
// excludeID (pass 0 when creating) are ignored.
func IsAvailable(existing []model.Booking, checkIn, checkOut time.Time, excludeID uint64) bool {
	for _, b := range existing {
		if b.IsFinished || (excludeID != 0 && b.ID == excludeID) {
			continue
		}
		if Overlaps(checkIn, checkOut, b.CheckIn, b.CheckOut) {
			return false
		}
	}
	return true
}

// UnavailableDates lists every date from check-in through check-out
// inclusive for each non-finished booking.  Dates shared by two bookings
// appear twice.
func UnavailableDates(existing []model.Booking) []time.Time {
	dates := make([]time.Time, 0)
	for _, b := range existing {
		if b.IsFinished {
			continue
		}
		end := Day(b.CheckOut)
		for d := Day(b.CheckIn); !d.After(end); d = d.Add(day) {
			dates = append(dates, d)
		}
	}
	return dates
}
