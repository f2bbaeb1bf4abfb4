package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-booking/internal/handler"
	"github.com/iliyamo/hotel-booking/internal/middleware"
	"github.com/iliyamo/hotel-booking/internal/model"
)

// RegisterBookings registers the self-service booking endpoints under /v1.
// Any authenticated role may book for itself; ownership of an existing
// booking is checked by the booking service.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1", limited(limit,
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleGuest, model.RoleAdmin, model.RoleOperator),
	)...)
	g.POST("/bookings", h.Create)
	g.GET("/my-bookings", h.ListMine)
	g.GET("/bookings/:id", h.Get)
	g.PUT("/bookings/:id", h.Update)
	g.PATCH("/bookings/:id/payment", h.UpdatePayment)
	g.DELETE("/bookings/:id", h.Delete)
}

// RegisterAdmin registers the staff endpoints under /v1/admin.  All routes
// require ADMIN or OPERATOR.
func RegisterAdmin(e *echo.Echo, h *handler.AdminBookingHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/admin", limited(limit,
		middleware.JWTAuth(jwtSecret),
		middleware.RequireStaff(),
	)...)
	g.POST("/bookings", h.Create)
	g.GET("/bookings", h.List)
	g.GET("/bookings/:id", h.Get)
	g.PUT("/bookings/:id", h.Update)
	g.PATCH("/bookings/:id/payment", h.UpdatePayment)
	g.PATCH("/bookings/:id/finish", h.Finish)
	g.DELETE("/bookings/:id", h.Delete)
	g.GET("/users/:id/bookings", h.ListByUser)
	g.GET("/rooms/:id/bookings", h.ListByRoom)
}
