package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-booking/internal/handler"
	"github.com/iliyamo/hotel-booking/internal/middleware"
	"github.com/iliyamo/hotel-booking/internal/model"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only the health check.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers the token endpoints under /v1/auth and the
// profile endpoints under /v1/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, cards *handler.CreditCardHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", limited(limit)...)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh) // rotates the refresh token
	// Logout needs no JWT: a refresh token in the body is enough.
	g.POST("/logout", a.Logout)

	me := e.Group("/v1/me", limited(limit,
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleGuest, model.RoleAdmin, model.RoleOperator),
	)...)
	me.GET("", a.Me)
	me.POST("/credit-cards", cards.Register)
	me.GET("/credit-cards", cards.List)
	me.DELETE("/credit-cards/:id", cards.Delete)
}

// RegisterPublic registers the unauthenticated room reads.  Responses
// go through the room cache; cache hits still spend a token.
func RegisterPublic(e *echo.Echo, rooms *handler.RoomHandler, cache *middleware.RoomCache, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/rooms", append(limited(limit), cache.Middleware())...)
	g.GET("/:id", rooms.Get)
	g.GET("/:id/unavailable-dates", rooms.UnavailableDates)
}

// limited appends the rate limiter after mws.  It runs last so that the
// caller identity set by JWTAuth is part of its key.
func limited(limit echo.MiddlewareFunc, mws ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	if limit == nil {
		return mws
	}
	return append(mws, limit)
}
