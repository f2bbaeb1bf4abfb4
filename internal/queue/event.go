// Package queue defines message payloads exchanged over the message broker
// and the consumer that turns them into guest notifications.
package queue

import (
	"time"

	"github.com/iliyamo/hotel-booking/internal/model"
)

// BookingConfirmedQueue is the durable queue booking confirmations are
// published to.
const BookingConfirmedQueue = "booking.confirmed"

// BookingConfirmedEvent is published when a booking is committed.  It
// carries enough information for the consumer to email the guest without
// querying the primary database.
type BookingConfirmedEvent struct {
	EventID         string `json:"event_id"`
	BookingID       uint64 `json:"booking_id"`
	UserID          uint64 `json:"user_id"`
	GuestName       string `json:"guest_name"`
	GuestEmail      string `json:"guest_email"`
	HotelID         uint64 `json:"hotel_id"`
	RoomID          uint64 `json:"room_id"`
	RoomNumber      string `json:"room_number"`
	CheckIn         string `json:"check_in"`
	CheckOut        string `json:"check_out"`
	Nights          int    `json:"nights"`
	GuestsQuantity  int    `json:"guests_quantity"`
	TotalPriceCents int64  `json:"total_price_cents"`
	PaymentType     string `json:"payment_type"`
	IsOnline        bool   `json:"is_online"`
	ConfirmedAt     string `json:"confirmed_at"`
}

// NewBookingConfirmedEvent flattens a committed booking into an event.
func NewBookingConfirmedEvent(eventID string, d model.BookingDetail, guest model.User, at time.Time) BookingConfirmedEvent {
	return BookingConfirmedEvent{
		EventID:         eventID,
		BookingID:       d.ID,
		UserID:          d.UserID,
		GuestName:       guest.Name,
		GuestEmail:      guest.Email,
		HotelID:         d.Room.HotelID,
		RoomID:          d.Room.ID,
		RoomNumber:      d.Room.Number,
		CheckIn:         d.CheckIn,
		CheckOut:        d.CheckOut,
		Nights:          d.Nights,
		GuestsQuantity:  d.GuestsQuantity,
		TotalPriceCents: d.TotalPriceCents,
		PaymentType:     d.Payment.Type.String(),
		IsOnline:        d.Payment.IsOnline,
		ConfirmedAt:     at.UTC().Format(time.RFC3339),
	}
}
