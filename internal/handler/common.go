package handler // handler defines http handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-booking/internal/booking"
	"github.com/iliyamo/hotel-booking/internal/model"
)

// Pagination bounds for listing endpoints.
const (
	defaultPageSize = 20
	maxPageSize     = 100
	// maxPage keeps page*page_size inside a MySQL OFFSET on any platform.
	maxPage = math.MaxInt32 / maxPageSize
)

// getUserID extracts the user_id from echo.Context and converts it to uint64
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// actorFrom builds the booking actor from the claims JWTAuth stored.
func actorFrom(c echo.Context) (booking.Actor, error) {
	uid, err := getUserID(c)
	if err != nil || uid == 0 {
		return booking.Actor{}, errors.New("unauthenticated")
	}
	role, _ := c.Get("role").(string)
	return booking.Actor{UserID: uid, Role: role}, nil
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// parseDate parses a YYYY-MM-DD calendar date as UTC midnight.
func parseDate(s string) (time.Time, error) {
	return time.Parse(model.DateLayout, strings.TrimSpace(s))
}

// pageFrom reads ?page=&page_size= into a filter.  Invalid values fall
// back to the first page of defaultPageSize items; pages past maxPage are
// clamped to it.
func pageFrom(c echo.Context) model.BookingFilter {
	page, err := strconv.Atoi(c.QueryParam("page"))
	if err != nil || page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	size, err := strconv.Atoi(c.QueryParam("page_size"))
	if err != nil || size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return model.BookingFilter{Limit: size, Offset: (page - 1) * size}
}

func pageMeta(f model.BookingFilter) echo.Map {
	return echo.Map{"page": f.Offset/f.Limit + 1, "page_size": f.Limit}
}

// writeError translates booking error kinds into HTTP responses.
// Anything unrecognised is logged and reported as a generic 500.
func writeError(c echo.Context, log logrus.FieldLogger, err error) error {
	var unavailable *booking.UnavailableError
	switch {
	case errors.As(err, &unavailable):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":     unavailable.Error(),
			"room_id":   unavailable.RoomID,
			"check_in":  unavailable.CheckIn.Format(model.DateLayout),
			"check_out": unavailable.CheckOut.Format(model.DateLayout),
		})
	case errors.Is(err, booking.ErrUnavailable):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, booking.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, booking.ErrBadRequest):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, booking.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, booking.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	}
	if log != nil {
		log.WithError(err).WithFields(logrus.Fields{
			"method": c.Request().Method,
			"path":   c.Path(),
		}).Error("request failed")
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
