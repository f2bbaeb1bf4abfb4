// Package service orchestrates the booking lifecycle: it loads rooms and
// users, applies the availability, pricing and payment rules from package
// booking, persists the result atomically and notifies guests.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-booking/internal/booking"
	"github.com/iliyamo/hotel-booking/internal/model"
)

// Notifier is told about bookings once they are committed.  Failures are
// logged and never undo the booking.
type Notifier interface {
	BookingConfirmed(ctx context.Context, detail model.BookingDetail, guest model.User) error
}

// RoomInvalidator drops cached reads of a room after its bookings change.
type RoomInvalidator interface {
	InvalidateRoom(ctx context.Context, roomID uint64) error
}

// CreateBookingInput is a new booking request.  UserID is read only for
// bookings made on behalf of a guest.
type CreateBookingInput struct {
	RoomID         uint64
	UserID         uint64
	CheckIn        time.Time
	CheckOut       time.Time
	GuestsQuantity int
	Payment        booking.PaymentRequest
}

// UpdateBookingInput changes an existing booking.  Nil fields keep their
// current value.  A nil Payment keeps the payment method and only
// resynchronises its amount with the new total.
type UpdateBookingInput struct {
	RoomID         *uint64
	CheckIn        *time.Time
	CheckOut       *time.Time
	GuestsQuantity *int
	Payment        *booking.PaymentRequest
}

// BookingService is the booking lifecycle manager.
type BookingService struct {
	store    booking.Store
	notifier Notifier
	rooms    RoomInvalidator
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewBookingService wires the lifecycle manager.  notifier may be nil.
func NewBookingService(store booking.Store, notifier Notifier, log logrus.FieldLogger) *BookingService {
	if store == nil {
		panic("nil store passed to NewBookingService")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &BookingService{
		store:    store,
		notifier: notifier,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// UseRoomCache registers the cache to invalidate when a room's bookings
// change.
func (s *BookingService) UseRoomCache(inv RoomInvalidator) {
	s.rooms = inv
}

// Create books a room.  When self is true the actor books for themselves;
// otherwise an elevated actor books for in.UserID.
func (s *BookingService) Create(ctx context.Context, actor booking.Actor, in CreateBookingInput, self bool) (model.BookingDetail, error) {
	if !self && !actor.Elevated() {
		return model.BookingDetail{}, fmt.Errorf("%w: only staff can book on behalf of a guest", booking.ErrForbidden)
	}
	checkIn, checkOut := booking.Day(in.CheckIn), booking.Day(in.CheckOut)
	now := s.now()

	var (
		detail model.BookingDetail
		guest  model.User
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx booking.Tx) error {
		room, err := tx.LockRoom(ctx, in.RoomID)
		if err != nil {
			return err
		}
		if err := checkGuests(in.GuestsQuantity, room); err != nil {
			return err
		}
		if err := checkDates(checkIn, checkOut, now); err != nil {
			return err
		}
		existing, err := tx.ActiveBookingsByRoom(ctx, room.ID)
		if err != nil {
			return err
		}
		if !booking.IsAvailable(existing, checkIn, checkOut, 0) {
			return &booking.UnavailableError{RoomID: room.ID, CheckIn: checkIn, CheckOut: checkOut}
		}

		ownerID := actor.UserID
		if !self {
			if in.UserID == 0 {
				return fmt.Errorf("%w: user_id is required", booking.ErrBadRequest)
			}
			ownerID = in.UserID
		}
		if guest, err = tx.GetUser(ctx, ownerID); err != nil {
			return err
		}

		payment, err := booking.ResolvePayment(ctx, tx, booking.ResolveInput{
			Request:     in.Payment,
			AmountCents: booking.TotalPrice(room, checkIn, checkOut),
			Actor:       actor,
			SelfBooking: self,
			Now:         now,
		})
		if err != nil {
			return err
		}

		b := model.Booking{
			RoomID:         room.ID,
			UserID:         guest.ID,
			CheckIn:        checkIn,
			CheckOut:       checkOut,
			GuestsQuantity: in.GuestsQuantity,
			Payment:        payment,
		}
		if err := tx.InsertBooking(ctx, &b); err != nil {
			return err
		}
		detail = booking.Detail(b, room)
		return nil
	})
	if err != nil {
		return model.BookingDetail{}, err
	}

	s.log.WithFields(logrus.Fields{
		"booking_id": detail.ID,
		"room_id":    detail.Room.ID,
		"user_id":    detail.UserID,
		"actor_id":   actor.UserID,
		"self":       self,
	}).Info("booking created")
	s.invalidate(ctx, detail.Room.ID)
	s.notify(ctx, detail, guest)
	return detail, nil
}

// Update changes the room, dates, guest count or payment of a booking.
// The price is recomputed from the resulting room and dates and the
// payment replaced whenever its method or amount changes.
func (s *BookingService) Update(ctx context.Context, actor booking.Actor, id uint64, in UpdateBookingInput, self bool) (model.BookingDetail, error) {
	now := s.now()
	var (
		detail   model.BookingDetail
		prevRoom uint64
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx booking.Tx) error {
		b, err := tx.GetBookingForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := authorize(actor, b, self); err != nil {
			return err
		}
		if b.IsFinished {
			return fmt.Errorf("%w: booking %d is finished", booking.ErrBadRequest, b.ID)
		}
		prevRoom = b.RoomID

		roomID := b.RoomID
		if in.RoomID != nil {
			roomID = *in.RoomID
		}
		room, err := tx.LockRoom(ctx, roomID)
		if err != nil {
			return err
		}

		guests := b.GuestsQuantity
		if in.GuestsQuantity != nil {
			guests = *in.GuestsQuantity
		}
		if err := checkGuests(guests, room); err != nil {
			return err
		}

		checkIn, checkOut := booking.Day(b.CheckIn), booking.Day(b.CheckOut)
		if in.CheckIn != nil {
			checkIn = booking.Day(*in.CheckIn)
		}
		if in.CheckOut != nil {
			checkOut = booking.Day(*in.CheckOut)
		}
		if !checkIn.Before(checkOut) {
			return fmt.Errorf("%w: check-in must be before check-out", booking.ErrBadRequest)
		}
		if !checkIn.Equal(booking.Day(b.CheckIn)) && checkIn.Before(booking.Day(now)) {
			return fmt.Errorf("%w: check-in cannot be in the past", booking.ErrBadRequest)
		}

		moved := room.ID != b.RoomID || !checkIn.Equal(booking.Day(b.CheckIn)) || !checkOut.Equal(booking.Day(b.CheckOut))
		if moved {
			existing, err := tx.ActiveBookingsByRoom(ctx, room.ID)
			if err != nil {
				return err
			}
			if !booking.IsAvailable(existing, checkIn, checkOut, b.ID) {
				return &booking.UnavailableError{RoomID: room.ID, CheckIn: checkIn, CheckOut: checkOut}
			}
		}

		amount := booking.TotalPrice(room, checkIn, checkOut)
		payment := b.Payment
		replace := false
		switch {
		case in.Payment != nil:
			payment, err = booking.ResolvePayment(ctx, tx, booking.ResolveInput{
				Request:     *in.Payment,
				AmountCents: amount,
				Actor:       actor,
				SelfBooking: self,
				Now:         now,
			})
			if err != nil {
				return err
			}
			replace = true
		case amount != b.Payment.AmountCents:
			payment = b.Payment.WithAmount(amount)
			replace = true
		}

		b.RoomID = room.ID
		b.CheckIn, b.CheckOut = checkIn, checkOut
		b.GuestsQuantity = guests
		if err := tx.UpdateBooking(ctx, b); err != nil {
			return err
		}
		if replace {
			if err := tx.ReplacePayment(ctx, b.ID, &payment); err != nil {
				return err
			}
			b.Payment = payment
		}
		detail = booking.Detail(b, room)
		return nil
	})
	if err != nil {
		return model.BookingDetail{}, err
	}
	s.log.WithFields(logrus.Fields{"booking_id": id, "actor_id": actor.UserID, "self": self}).Info("booking updated")
	s.invalidate(ctx, prevRoom)
	if detail.Room.ID != prevRoom {
		s.invalidate(ctx, detail.Room.ID)
	}
	return detail, nil
}

// UpdatePayment re-resolves the payment of a booking without touching its
// dates or room.
func (s *BookingService) UpdatePayment(ctx context.Context, actor booking.Actor, id uint64, req booking.PaymentRequest, self bool) (model.BookingDetail, error) {
	now := s.now()
	var detail model.BookingDetail
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx booking.Tx) error {
		b, err := tx.GetBookingForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := authorize(actor, b, self); err != nil {
			return err
		}
		if b.IsFinished {
			return fmt.Errorf("%w: booking %d is finished", booking.ErrBadRequest, b.ID)
		}
		room, err := tx.LockRoom(ctx, b.RoomID)
		if err != nil {
			return err
		}
		payment, err := booking.ResolvePayment(ctx, tx, booking.ResolveInput{
			Request:     req,
			AmountCents: booking.TotalPrice(room, b.CheckIn, b.CheckOut),
			Actor:       actor,
			SelfBooking: self,
			Now:         now,
		})
		if err != nil {
			return err
		}
		if err := tx.ReplacePayment(ctx, b.ID, &payment); err != nil {
			return err
		}
		b.Payment = payment
		detail = booking.Detail(b, room)
		return nil
	})
	if err != nil {
		return model.BookingDetail{}, err
	}
	s.log.WithFields(logrus.Fields{
		"booking_id":   id,
		"actor_id":     actor.UserID,
		"payment_type": req.Type.String(),
	}).Info("booking payment replaced")
	return detail, nil
}

// Delete removes a booking and its payment.  The owner or an elevated
// actor may delete it.
func (s *BookingService) Delete(ctx context.Context, actor booking.Actor, id uint64) error {
	var roomID uint64
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx booking.Tx) error {
		b, err := tx.GetBookingForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !actor.Elevated() && b.UserID != actor.UserID {
			return fmt.Errorf("%w: booking %d belongs to another user", booking.ErrForbidden, b.ID)
		}
		roomID = b.RoomID
		return tx.DeleteBooking(ctx, b.ID)
	})
	if err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"booking_id": id, "actor_id": actor.UserID}).Info("booking deleted")
	s.invalidate(ctx, roomID)
	return nil
}

// Finish marks a booking as finished so it stops blocking its room.
// Finishing an already finished booking is a no-op.
func (s *BookingService) Finish(ctx context.Context, actor booking.Actor, id uint64) (model.BookingDetail, error) {
	if !actor.Elevated() {
		return model.BookingDetail{}, fmt.Errorf("%w: only staff can finish bookings", booking.ErrForbidden)
	}
	var detail model.BookingDetail
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx booking.Tx) error {
		b, err := tx.GetBookingForUpdate(ctx, id)
		if err != nil {
			return err
		}
		room, err := tx.LockRoom(ctx, b.RoomID)
		if err != nil {
			return err
		}
		if !b.IsFinished {
			if err := tx.FinishBooking(ctx, b.ID); err != nil {
				return err
			}
			b.IsFinished = true
		}
		detail = booking.Detail(b, room)
		return nil
	})
	if err != nil {
		return model.BookingDetail{}, err
	}
	s.log.WithFields(logrus.Fields{"booking_id": id, "actor_id": actor.UserID}).Info("booking finished")
	s.invalidate(ctx, detail.Room.ID)
	return detail, nil
}

// FindByID returns a single booking.  Self reads are limited to the
// actor's own bookings; other reads need an elevated actor.
func (s *BookingService) FindByID(ctx context.Context, actor booking.Actor, id uint64, self bool) (model.BookingDetail, error) {
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return model.BookingDetail{}, err
	}
	if err := authorize(actor, b, self); err != nil {
		return model.BookingDetail{}, err
	}
	room, err := s.store.GetRoom(ctx, b.RoomID)
	if err != nil {
		return model.BookingDetail{}, err
	}
	return booking.Detail(b, room), nil
}

// FindAllByUser lists the bookings of userID.  Self reads always list the
// actor's own bookings regardless of userID.
func (s *BookingService) FindAllByUser(ctx context.Context, actor booking.Actor, userID uint64, self bool, page model.BookingFilter) ([]model.BookingDetail, error) {
	if self {
		userID = actor.UserID
	} else if !actor.Elevated() {
		return nil, fmt.Errorf("%w: listing other users' bookings", booking.ErrForbidden)
	}
	page.UserID, page.RoomID = userID, 0
	return s.list(ctx, page)
}

// FindAllByRoom lists the bookings of a room.  Elevated actors only.
func (s *BookingService) FindAllByRoom(ctx context.Context, actor booking.Actor, roomID uint64, page model.BookingFilter) ([]model.BookingDetail, error) {
	if !actor.Elevated() {
		return nil, fmt.Errorf("%w: listing room bookings", booking.ErrForbidden)
	}
	if _, err := s.store.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	page.UserID, page.RoomID = 0, roomID
	return s.list(ctx, page)
}

// FindAll lists every booking matching f.  Elevated actors only.
func (s *BookingService) FindAll(ctx context.Context, actor booking.Actor, f model.BookingFilter) ([]model.BookingDetail, error) {
	if !actor.Elevated() {
		return nil, fmt.Errorf("%w: listing all bookings", booking.ErrForbidden)
	}
	return s.list(ctx, f)
}

// Room returns a single room.
func (s *BookingService) Room(ctx context.Context, roomID uint64) (model.Room, error) {
	return s.store.GetRoom(ctx, roomID)
}

// UnavailableDates lists the dates on which roomID is blocked by
// non-finished bookings.
func (s *BookingService) UnavailableDates(ctx context.Context, roomID uint64) ([]time.Time, error) {
	if _, err := s.store.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	existing, err := s.store.ActiveBookingsByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return booking.UnavailableDates(existing), nil
}

func (s *BookingService) list(ctx context.Context, f model.BookingFilter) ([]model.BookingDetail, error) {
	bookings, err := s.store.ListBookings(ctx, f)
	if err != nil {
		return nil, err
	}
	rooms := make(map[uint64]model.Room)
	out := make([]model.BookingDetail, 0, len(bookings))
	for _, b := range bookings {
		room, ok := rooms[b.RoomID]
		if !ok {
			if room, err = s.store.GetRoom(ctx, b.RoomID); err != nil {
				return nil, err
			}
			rooms[b.RoomID] = room
		}
		out = append(out, booking.Detail(b, room))
	}
	return out, nil
}

func (s *BookingService) invalidate(ctx context.Context, roomID uint64) {
	if s.rooms == nil {
		return
	}
	if err := s.rooms.InvalidateRoom(ctx, roomID); err != nil {
		s.log.WithError(err).WithField("room_id", roomID).Warn("room cache not invalidated")
	}
}

func (s *BookingService) notify(ctx context.Context, detail model.BookingDetail, guest model.User) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.BookingConfirmed(ctx, detail, guest); err != nil {
		s.log.WithError(err).WithField("booking_id", detail.ID).Warn("booking confirmation not sent")
	}
}

// authorize applies exactly one gate: ownership for self operations,
// elevation for everything else.
func authorize(actor booking.Actor, b model.Booking, self bool) error {
	if self {
		if b.UserID != actor.UserID {
			return fmt.Errorf("%w: booking %d belongs to another user", booking.ErrForbidden, b.ID)
		}
		return nil
	}
	if !actor.Elevated() {
		return fmt.Errorf("%w: staff role required", booking.ErrForbidden)
	}
	return nil
}

func checkGuests(guests int, room model.Room) error {
	if guests < 1 {
		return fmt.Errorf("%w: guests_quantity must be at least 1", booking.ErrBadRequest)
	}
	if guests > room.Capacity {
		return fmt.Errorf("%w: room %d holds at most %d guests", booking.ErrBadRequest, room.ID, room.Capacity)
	}
	return nil
}

func checkDates(checkIn, checkOut, now time.Time) error {
	if !checkIn.Before(checkOut) {
		return fmt.Errorf("%w: check-in must be before check-out", booking.ErrBadRequest)
	}
	if checkIn.Before(booking.Day(now)) {
		return fmt.Errorf("%w: check-in cannot be in the past", booking.ErrBadRequest)
	}
	return nil
}
