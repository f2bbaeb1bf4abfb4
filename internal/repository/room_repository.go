package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/hotel-booking/internal/model"
)

// RoomRepo reads rooms.  Room management lives outside this service; the
// booking engine only loads and locks them.
type RoomRepo struct{ db *sql.DB }

// NewRoomRepo returns a RoomRepo bound to db.
func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

const roomColumns = `id, hotel_id, number, floor, room_type, price_per_night_cents, capacity, description`

func scanRoom(row *sql.Row) (model.Room, error) {
	var (
		r    model.Room
		desc sql.NullString
	)
	err := row.Scan(&r.ID, &r.HotelID, &r.Number, &r.Floor, &r.Type, &r.PricePerNightCents, &r.Capacity, &desc)
	r.Description = desc.String
	return r, err
}

// GetByID fetches a room.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (model.Room, error) {
	room, err := scanRoom(r.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id))
	return room, notFound(err, "room", id)
}

// LockTx fetches a room and holds an exclusive lock on its row until tx
// ends.  Every booking write for the room goes through this lock, which
// serialises availability checks per room.
func (r *RoomRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Room, error) {
	room, err := scanRoom(tx.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ? FOR UPDATE`, id))
	return room, notFound(err, "room", id)
}
