package auth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/ppiankov/snapmed/internal/logging"
)

// Cookie names carried by clients
const (
	UserCookie    = "userId"
	SessionCookie = "sessionId"
)

// ownerKey is the echo context key of the resolved owner identity
const ownerKey = "snapmed.owner"

// CredentialFrom reads the credential cookies from a request
func CredentialFrom(c echo.Context) Credential {
	var cred Credential
	if ck, err := c.Cookie(UserCookie); err == nil {
		cred.UserID = ck.Value
	}
	if ck, err := c.Cookie(SessionCookie); err == nil {
		cred.SessionID = ck.Value
	}
	return cred
}

// OwnerFrom returns the identity set by RequireAuth or OptionalAuth
func OwnerFrom(c echo.Context) (string, bool) {
	owner, ok := c.Get(ownerKey).(string)
	return owner, ok && owner != ""
}

// ClearCookies expires both credential cookies
func ClearCookies(c echo.Context) {
	for _, name := range []string{UserCookie, SessionCookie} {
		c.SetCookie(&http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1})
	}
}

// RequireAuth rejects requests without a live session
func RequireAuth(gate Gate, logger *logrus.Logger) echo.MiddlewareFunc {
	logger = logging.OrDefault(logger)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cred := CredentialFrom(c)
			if cred.Empty() {
				return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Authentication required"})
			}

			owner, err := gate.Resolve(c.Request().Context(), cred)
			if errors.Is(err, ErrInvalidSession) {
				ClearCookies(c)
				return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Invalid or expired authentication"})
			}
			if err != nil {
				logger.WithError(err).WithField("gate", gate.Name()).Error("session check failed")
				return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Authentication failed"})
			}

			c.Set(ownerKey, owner)
			return next(c)
		}
	}
}

// OptionalAuth resolves the owner when a live session is presented and
// otherwise lets the request through anonymously
func OptionalAuth(gate Gate, logger *logrus.Logger) echo.MiddlewareFunc {
	logger = logging.OrDefault(logger)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cred := CredentialFrom(c)
			if cred.Empty() {
				return next(c)
			}

			owner, err := gate.Resolve(c.Request().Context(), cred)
			switch {
			case err == nil:
				c.Set(ownerKey, owner)
			case errors.Is(err, ErrInvalidSession):
				logger.Debug("ignoring invalid session on optional route")
			default:
				logger.WithError(err).WithField("gate", gate.Name()).Warn("session check failed, continuing anonymously")
			}
			return next(c)
		}
	}
}
