package handler

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-booking/internal/model"
)

// RoomReader exposes the public room reads.
type RoomReader interface {
	Room(ctx context.Context, roomID uint64) (model.Room, error)
	UnavailableDates(ctx context.Context, roomID uint64) ([]time.Time, error)
}

// RoomHandler serves the unauthenticated room endpoints.  Responses are
// cached by middleware.RoomCache and invalidated on booking writes.
type RoomHandler struct {
	Rooms RoomReader
	Log   logrus.FieldLogger
}

func NewRoomHandler(r RoomReader, log logrus.FieldLogger) *RoomHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RoomHandler{Rooms: r, Log: log}
}

// Get handles GET /v1/rooms/:id.
func (h *RoomHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	room, err := h.Rooms.Room(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": room})
}

// UnavailableDates handles GET /v1/rooms/:id/unavailable-dates.  Every
// date from check-in through check-out of each active booking is listed,
// sorted, once.
func (h *RoomHandler) UnavailableDates(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	dates, err := h.Rooms.UnavailableDates(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	items := make([]string, 0, len(dates))
	seen := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		s := d.Format(model.DateLayout)
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		items = append(items, s)
	}
	slices.Sort(items)
	return c.JSON(http.StatusOK, echo.Map{"room_id": id, "items": items})
}
