package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ctxUserID returns the authenticated user id set by the Auth middleware.
func ctxUserID(c echo.Context) (string, error) {
	id, _ := c.Get("user_id").(string)
	if id == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return id, nil
}

// ctxEmail is empty for anonymous requests.
func ctxEmail(c echo.Context) string {
	email, _ := c.Get("email").(string)
	return email
}
