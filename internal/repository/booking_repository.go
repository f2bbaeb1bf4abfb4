package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/hotel-booking/internal/model"
)

// BookingRepo provides CRUD operations for bookings.  Each booking owns
// exactly one payment, stored through PaymentRepo in the same
// transaction.  Check-in and check-out are DATE columns.
type BookingRepo struct {
	db       *sql.DB
	payments *PaymentRepo
}

// NewBookingRepo returns a BookingRepo bound to db.
func NewBookingRepo(db *sql.DB, payments *PaymentRepo) *BookingRepo {
	if payments == nil {
		payments = NewPaymentRepo()
	}
	return &BookingRepo{db: db, payments: payments}
}

const bookingSelect = `SELECT b.id, b.room_id, b.user_id, b.check_in, b.check_out, b.created_at, b.is_finished, b.guests_quantity, ` +
	paymentColumns + ` FROM bookings b ` + paymentJoins

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (model.Booking, error) {
	var (
		b  model.Booking
		ps paymentScan
	)
	dest := append([]any{
		&b.ID, &b.RoomID, &b.UserID, &b.CheckIn, &b.CheckOut, &b.CreatedAt, &b.IsFinished, &b.GuestsQuantity,
	}, ps.dest()...)
	if err := row.Scan(dest...); err != nil {
		return model.Booking{}, err
	}
	b.CheckIn, b.CheckOut = dateOnly(b.CheckIn), dateOnly(b.CheckOut)
	b.Payment = ps.payment()
	return b, nil
}

func scanBookings(rows *sql.Rows) ([]model.Booking, error) {
	defer rows.Close()
	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetByID fetches a booking with its payment.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, bookingSelect+` WHERE b.id = ?`, id))
	return b, notFound(err, "booking", id)
}

// GetForUpdateTx fetches a booking and locks its row until tx ends.
func (r *BookingRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Booking, error) {
	b, err := scanBooking(tx.QueryRowContext(ctx, bookingSelect+` WHERE b.id = ? FOR UPDATE`, id))
	return b, notFound(err, "booking", id)
}

// List returns bookings matching f, newest first.  A zero Limit returns
// every match.
func (r *BookingRepo) List(ctx context.Context, f model.BookingFilter) ([]model.Booking, error) {
	q := bookingSelect + ` WHERE 1=1`
	args := make([]any, 0, 4)
	if f.UserID != 0 {
		q += ` AND b.user_id = ?`
		args = append(args, f.UserID)
	}
	if f.RoomID != 0 {
		q += ` AND b.room_id = ?`
		args = append(args, f.RoomID)
	}
	q += ` ORDER BY b.check_in DESC, b.id DESC`
	if f.Limit > 0 {
		q += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanBookings(rows)
}

// ActiveByRoom returns the non-finished bookings of a room.  Pass a *sql.Tx
// holding the room lock to read a consistent set before inserting.
func (r *BookingRepo) ActiveByRoom(ctx context.Context, q querier, roomID uint64) ([]model.Booking, error) {
	if q == nil {
		q = r.db
	}
	rows, err := q.QueryContext(ctx,
		bookingSelect+` WHERE b.room_id = ? AND b.is_finished = FALSE ORDER BY b.check_in`, roomID)
	if err != nil {
		return nil, err
	}
	return scanBookings(rows)
}

// CreateTx inserts b and its payment, filling in the generated IDs and
// the creation timestamp.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (room_id, user_id, check_in, check_out, guests_quantity) VALUES (?, ?, ?, ?, ?)`,
		b.RoomID, b.UserID, dateOnly(b.CheckIn), dateOnly(b.CheckOut), b.GuestsQuantity)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	if err := tx.QueryRowContext(ctx, `SELECT created_at FROM bookings WHERE id = ?`, b.ID).Scan(&b.CreatedAt); err != nil {
		return err
	}
	return r.payments.CreateTx(ctx, tx, b.ID, &b.Payment)
}

// UpdateTx writes the booking's room, dates and guest count.  The caller
// holds the row lock from GetForUpdateTx, so the row is known to exist.
func (r *BookingRepo) UpdateTx(ctx context.Context, tx *sql.Tx, b model.Booking) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE bookings SET room_id = ?, check_in = ?, check_out = ?, guests_quantity = ? WHERE id = ?`,
		b.RoomID, dateOnly(b.CheckIn), dateOnly(b.CheckOut), b.GuestsQuantity, b.ID)
	return err
}

// FinishTx marks a booking finished.
func (r *BookingRepo) FinishTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx, `UPDATE bookings SET is_finished = TRUE WHERE id = ?`, id)
	return err
}

// DeleteTx removes a booking and its payment.  Rows in other tables that
// still reference the booking make MySQL refuse the delete; that is
// reported as ErrConflict.
func (r *BookingRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	if err := r.payments.DeleteByBookingTx(ctx, tx, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		if isReferenced(err) {
			return fmt.Errorf("%w: booking %d is still referenced", ErrConflict, id)
		}
		return err
	}
	return expectOne(res, "booking", id)
}

func expectOne(res sql.Result, what string, id uint64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %d", ErrNotFound, what, id)
	}
	return nil
}
