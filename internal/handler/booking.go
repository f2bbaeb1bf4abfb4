package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-booking/internal/booking"
	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/service"
)

// BookingManager is the booking lifecycle as seen by HTTP handlers.
// *service.BookingService implements it.
type BookingManager interface {
	Create(ctx context.Context, actor booking.Actor, in service.CreateBookingInput, self bool) (model.BookingDetail, error)
	Update(ctx context.Context, actor booking.Actor, id uint64, in service.UpdateBookingInput, self bool) (model.BookingDetail, error)
	UpdatePayment(ctx context.Context, actor booking.Actor, id uint64, req booking.PaymentRequest, self bool) (model.BookingDetail, error)
	Delete(ctx context.Context, actor booking.Actor, id uint64) error
	Finish(ctx context.Context, actor booking.Actor, id uint64) (model.BookingDetail, error)
	FindByID(ctx context.Context, actor booking.Actor, id uint64, self bool) (model.BookingDetail, error)
	FindAllByUser(ctx context.Context, actor booking.Actor, userID uint64, self bool, page model.BookingFilter) ([]model.BookingDetail, error)
	FindAllByRoom(ctx context.Context, actor booking.Actor, roomID uint64, page model.BookingFilter) ([]model.BookingDetail, error)
	FindAll(ctx context.Context, actor booking.Actor, f model.BookingFilter) ([]model.BookingDetail, error)
}

// BookingHandler serves the guest facing booking endpoints under /v1.
// Every request acts on the caller's own bookings; the admin variants
// live in AdminBookingHandler.
type BookingHandler struct {
	Bookings BookingManager
	Log      logrus.FieldLogger
}

// NewBookingHandler panics when m is nil.
func NewBookingHandler(m BookingManager, log logrus.FieldLogger) *BookingHandler {
	if m == nil {
		panic("nil booking manager passed to NewBookingHandler")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &BookingHandler{Bookings: m, Log: log}
}

// ----- DTOs -----

type createBookingReq struct {
	RoomID         uint64                 `json:"room_id"`
	UserID         uint64                 `json:"user_id"` // admin only, ignored for self bookings
	CheckIn        string                 `json:"check_in"`
	CheckOut       string                 `json:"check_out"`
	GuestsQuantity int                    `json:"guests_quantity"`
	Payment        booking.PaymentRequest `json:"payment"`
}

type updateBookingReq struct {
	RoomID         *uint64                 `json:"room_id"`
	CheckIn        *string                 `json:"check_in"`
	CheckOut       *string                 `json:"check_out"`
	GuestsQuantity *int                    `json:"guests_quantity"`
	Payment        *booking.PaymentRequest `json:"payment"`
}

func (r createBookingReq) input() (service.CreateBookingInput, string) {
	if r.RoomID == 0 {
		return service.CreateBookingInput{}, "room_id is required"
	}
	in, err := parseDate(r.CheckIn)
	if err != nil {
		return service.CreateBookingInput{}, "check_in must be YYYY-MM-DD"
	}
	out, err := parseDate(r.CheckOut)
	if err != nil {
		return service.CreateBookingInput{}, "check_out must be YYYY-MM-DD"
	}
	return service.CreateBookingInput{
		RoomID:         r.RoomID,
		UserID:         r.UserID,
		CheckIn:        in,
		CheckOut:       out,
		GuestsQuantity: r.GuestsQuantity,
		Payment:        r.Payment,
	}, ""
}

func (r updateBookingReq) input() (service.UpdateBookingInput, string) {
	in := service.UpdateBookingInput{
		RoomID:         r.RoomID,
		GuestsQuantity: r.GuestsQuantity,
		Payment:        r.Payment,
	}
	if r.RoomID != nil && *r.RoomID == 0 {
		return in, "room_id must be positive"
	}
	if r.CheckIn != nil {
		t, err := parseDate(*r.CheckIn)
		if err != nil {
			return in, "check_in must be YYYY-MM-DD"
		}
		in.CheckIn = &t
	}
	if r.CheckOut != nil {
		t, err := parseDate(*r.CheckOut)
		if err != nil {
			return in, "check_out must be YYYY-MM-DD"
		}
		in.CheckOut = &t
	}
	return in, ""
}

func requestCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 10*time.Second)
}

// Create handles POST /v1/bookings.  The booking is always made for the
// caller.
func (h *BookingHandler) Create(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	in, msg := req.input()
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	d, err := h.Bookings.Create(ctx, actor, in, true)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"item": d})
}

// ListMine handles GET /v1/my-bookings.
func (h *BookingHandler) ListMine(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	page := pageFrom(c)
	ctx, cancel := requestCtx(c)
	defer cancel()
	items, err := h.Bookings.FindAllByUser(ctx, actor, actor.UserID, true, page)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "meta": pageMeta(page)})
}

// Get handles GET /v1/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	return h.get(c, true)
}

// Update handles PUT /v1/bookings/:id.
func (h *BookingHandler) Update(c echo.Context) error {
	return h.update(c, true)
}

// UpdatePayment handles PATCH /v1/bookings/:id/payment.
func (h *BookingHandler) UpdatePayment(c echo.Context) error {
	return h.updatePayment(c, true)
}

// Delete handles DELETE /v1/bookings/:id.
func (h *BookingHandler) Delete(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.Bookings.Delete(ctx, actor, id); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *BookingHandler) get(c echo.Context, self bool) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	d, err := h.Bookings.FindByID(ctx, actor, id, self)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": d})
}

func (h *BookingHandler) update(c echo.Context, self bool) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var req updateBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	in, msg := req.input()
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	d, err := h.Bookings.Update(ctx, actor, id, in, self)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": d})
}

func (h *BookingHandler) updatePayment(c echo.Context, self bool) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var req booking.PaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	d, err := h.Bookings.UpdatePayment(ctx, actor, id, req, self)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": d})
}
