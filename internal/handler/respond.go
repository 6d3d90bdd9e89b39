package handler

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/starwars-api/internal/apperr"
)

// envelope is the JSON shape shared by every endpoint: a human
// message, a coarse status string and the numeric status code, plus
// optional data.
type envelope struct {
	Message    string      `json:"message"`
	Status     string      `json:"status"`
	StatusCode int         `json:"statusCode"`
	Data       interface{} `json:"data,omitempty"`
}

// success writes a success envelope with the given status code.
func success(c echo.Context, code int, message string, data interface{}) error {
	return c.JSON(code, envelope{
		Message:    message,
		Status:     "success",
		StatusCode: code,
		Data:       data,
	})
}

// fail translates a service error into its envelope. Taxonomy errors
// carry their own status and message; anything else is logged with
// request context and reported as an opaque 500.
func fail(c echo.Context, err error) error {
	if ae, ok := apperr.From(err); ok {
		return c.JSON(ae.StatusCode, envelope{
			Message:    ae.Message,
			Status:     "error",
			StatusCode: ae.StatusCode,
		})
	}
	log.Printf("unexpected error on %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	return c.JSON(http.StatusInternalServerError, envelope{
		Message:    "Something went wrong",
		Status:     "error",
		StatusCode: http.StatusInternalServerError,
	})
}
