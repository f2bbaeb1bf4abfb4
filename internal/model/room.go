package model

// RoomType classifies a room by layout.  Values are stored verbatim in
// the rooms.room_type column.
type RoomType string

const (
	RoomSingle RoomType = "SINGLE"
	RoomDouble RoomType = "DOUBLE"
	RoomSuite  RoomType = "SUITE"
)

// Valid reports whether t is one of the known room types.
func (t RoomType) Valid() bool {
	switch t {
	case RoomSingle, RoomDouble, RoomSuite:
		return true
	}
	return false
}

// Room represents a bookable room inside a hotel.  Rooms are managed by
// the hotel administration flows; the booking engine only reads them.
// This struct corresponds to a row in the `rooms` table.
//
// Fields:
//  ID                 – primary key identifier.
//  HotelID            – hotel that owns the room.
//  Number             – room number as printed on the door.
//  Floor              – floor the room is on.
//  Type               – SINGLE, DOUBLE or SUITE.
//  PricePerNightCents – nightly rate in cents, always positive.
//  Capacity           – maximum number of guests.
//  Description        – free-form description.
type Room struct {
	ID                 uint64   `json:"id"`                    // rooms.id
	HotelID            uint64   `json:"hotel_id"`              // rooms.hotel_id
	Number             string   `json:"number"`                // rooms.number
	Floor              int      `json:"floor"`                 // rooms.floor
	Type               RoomType `json:"type"`                  // rooms.room_type
	PricePerNightCents int64    `json:"price_per_night_cents"` // rooms.price_per_night_cents
	Capacity           int      `json:"capacity"`              // rooms.capacity
	Description        string   `json:"description,omitempty"` // rooms.description
}
