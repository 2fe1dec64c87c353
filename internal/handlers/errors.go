package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/anonto42/nano-forum/backend/internal/middleware"
	"github.com/anonto42/nano-forum/backend/internal/models"
	"github.com/anonto42/nano-forum/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// httpError maps a service error onto the matching HTTP status. Anything
// unrecognised is logged and reported as a 500 without details.
func httpError(err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		status = http.StatusConflict
	default:
		log.Printf("internal error: %v", err)
		return echo.NewHTTPError(status, "Internal server error")
	}
	return echo.NewHTTPError(status, capitalize(services.Message(err)))
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	return c.Validate(req)
}

func currentUser(c echo.Context) (models.Identity, error) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		return models.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
	return identity, nil
}

func uintParam(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name)
	}
	return uint(id), nil
}
