package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// AdminBookingHandler serves /v1/admin/bookings.  Routes are mounted
// behind RequireStaff; the booking service checks the role again so the
// handler never relies on routing alone.
type AdminBookingHandler struct {
	*BookingHandler
}

// NewAdminBookingHandler shares the manager and logger of h.
func NewAdminBookingHandler(h *BookingHandler) *AdminBookingHandler {
	return &AdminBookingHandler{BookingHandler: h}
}

// Create handles POST /v1/admin/bookings on behalf of body.user_id.
func (h *AdminBookingHandler) Create(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.UserID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id is required"})
	}
	in, msg := req.input()
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	d, err := h.Bookings.Create(ctx, actor, in, false)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"item": d})
}

// List handles GET /v1/admin/bookings.
func (h *AdminBookingHandler) List(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	page := pageFrom(c)
	ctx, cancel := requestCtx(c)
	defer cancel()
	items, err := h.Bookings.FindAll(ctx, actor, page)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "meta": pageMeta(page)})
}

// ListByUser handles GET /v1/admin/users/:id/bookings.
func (h *AdminBookingHandler) ListByUser(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	userID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	page := pageFrom(c)
	ctx, cancel := requestCtx(c)
	defer cancel()
	items, err := h.Bookings.FindAllByUser(ctx, actor, userID, false, page)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "meta": pageMeta(page)})
}

// ListByRoom handles GET /v1/admin/rooms/:id/bookings.
func (h *AdminBookingHandler) ListByRoom(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	roomID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	page := pageFrom(c)
	ctx, cancel := requestCtx(c)
	defer cancel()
	items, err := h.Bookings.FindAllByRoom(ctx, actor, roomID, page)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "meta": pageMeta(page)})
}

// Get handles GET /v1/admin/bookings/:id.
func (h *AdminBookingHandler) Get(c echo.Context) error { return h.get(c, false) }

// Update handles PUT /v1/admin/bookings/:id.
func (h *AdminBookingHandler) Update(c echo.Context) error { return h.update(c, false) }

// UpdatePayment handles PATCH /v1/admin/bookings/:id/payment.
func (h *AdminBookingHandler) UpdatePayment(c echo.Context) error {
	return h.updatePayment(c, false)
}

// Finish handles PATCH /v1/admin/bookings/:id/finish.
func (h *AdminBookingHandler) Finish(c echo.Context) error {
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
	d, err := h.Bookings.Finish(ctx, actor, id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": d})
}
