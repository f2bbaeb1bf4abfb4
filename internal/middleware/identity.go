package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// subject returns the authenticated user id stored by JWTAuth as a
// string, or "anon" for unauthenticated requests.  Rate limit keys use it.
func subject(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case uint64:
		return strconv.FormatUint(v, 10)
	case string:
		if v != "" {
			return v
		}
	}
	return "anon"
}
