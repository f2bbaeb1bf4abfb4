package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/hotel-booking/internal/booking"
	"github.com/iliyamo/hotel-booking/internal/model"
)

// Store implements booking.Store on top of the MySQL repositories.
type Store struct {
	db       *sql.DB
	rooms    *RoomRepo
	bookings *BookingRepo
	payments *PaymentRepo
	users    *UserRepo
	cards    *CreditCardRepo
}

// NewStore wires the repositories sharing db.
func NewStore(db *sql.DB) *Store {
	payments := NewPaymentRepo()
	return &Store{
		db:       db,
		rooms:    NewRoomRepo(db),
		bookings: NewBookingRepo(db, payments),
		payments: payments,
		users:    NewUserRepo(db),
		cards:    NewCreditCardRepo(db),
	}
}

// WithinTx runs fn in a READ COMMITTED transaction.  Room rows are locked
// explicitly with SELECT ... FOR UPDATE, so the stronger default isolation
// level would only add gap locks across unrelated rooms.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx booking.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(ctx, &sqlTx{s: s, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *Store) GetBooking(ctx context.Context, id uint64) (model.Booking, error) {
	return s.bookings.GetByID(ctx, id)
}

func (s *Store) ListBookings(ctx context.Context, f model.BookingFilter) ([]model.Booking, error) {
	return s.bookings.List(ctx, f)
}

func (s *Store) GetRoom(ctx context.Context, id uint64) (model.Room, error) {
	return s.rooms.GetByID(ctx, id)
}

func (s *Store) ActiveBookingsByRoom(ctx context.Context, roomID uint64) ([]model.Booking, error) {
	return s.bookings.ActiveByRoom(ctx, s.db, roomID)
}

// sqlTx is the booking.Tx handed to WithinTx callbacks.
type sqlTx struct {
	s  *Store
	tx *sql.Tx
}

func (t *sqlTx) LockRoom(ctx context.Context, roomID uint64) (model.Room, error) {
	return t.s.rooms.LockTx(ctx, t.tx, roomID)
}

func (t *sqlTx) ActiveBookingsByRoom(ctx context.Context, roomID uint64) ([]model.Booking, error) {
	return t.s.bookings.ActiveByRoom(ctx, t.tx, roomID)
}

func (t *sqlTx) GetBookingForUpdate(ctx context.Context, id uint64) (model.Booking, error) {
	return t.s.bookings.GetForUpdateTx(ctx, t.tx, id)
}

func (t *sqlTx) GetUser(ctx context.Context, id uint64) (model.User, error) {
	return t.s.users.GetByID(ctx, t.tx, id)
}

func (t *sqlTx) GetCreditCard(ctx context.Context, id uint64) (model.CreditCard, error) {
	return t.s.cards.GetByID(ctx, t.tx, id)
}

func (t *sqlTx) InsertBooking(ctx context.Context, b *model.Booking) error {
	return t.s.bookings.CreateTx(ctx, t.tx, b)
}

func (t *sqlTx) UpdateBooking(ctx context.Context, b model.Booking) error {
	return t.s.bookings.UpdateTx(ctx, t.tx, b)
}

func (t *sqlTx) ReplacePayment(ctx context.Context, bookingID uint64, p *model.Payment) error {
	return t.s.payments.ReplaceTx(ctx, t.tx, bookingID, p)
}

func (t *sqlTx) DeleteBooking(ctx context.Context, id uint64) error {
	return t.s.bookings.DeleteTx(ctx, t.tx, id)
}

func (t *sqlTx) FinishBooking(ctx context.Context, id uint64) error {
	return t.s.bookings.FinishTx(ctx, t.tx, id)
}

var (
	_ booking.Store = (*Store)(nil)
	_ booking.Tx    = (*sqlTx)(nil)
)
