package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ppiankov/snapmed/internal/apperr"
)

const msgUnexpected = "Something went wrong."

// errorJSON writes err as {key: message} with the status of its kind.
// Unexpected errors carry their detail only outside production.
func (s *Server) errorJSON(c echo.Context, key string, err error) error {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)

	msg := apperr.MessageOf(err)
	if kind == apperr.KindUnexpected {
		msg = msgUnexpected
		if !s.config.IsProduction() {
			msg = msgUnexpected + " " + err.Error()
		}
		s.logger.WithError(err).WithField("path", c.Path()).Error("unexpected error")
	}

	return c.JSON(status, map[string]string{key: msg})
}

// handleError is the echo error handler for errors returned by handlers and middleware
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			msg = m
		}
		_ = c.JSON(he.Code, map[string]string{"error": msg})
		return
	}

	_ = s.errorJSON(c, "error", err)
}
