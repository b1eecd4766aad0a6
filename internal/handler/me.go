package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Me handles GET /v1/me and echoes the identity the token carries.
func Me(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return c.JSON(http.StatusOK, a)
}
