package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/snapmed/internal/logging"
)

// failingGate reports an unreachable session service
type failingGate struct{}

func (failingGate) Name() string { return "failing" }
func (failingGate) Resolve(ctx context.Context, cred Credential) (string, error) {
	return "", assert.AnError
}
func (failingGate) Invalidate(ctx context.Context, cred Credential) error { return assert.AnError }

func ownerHandler(c echo.Context) error {
	owner, _ := OwnerFrom(c)
	return c.String(http.StatusOK, owner)
}

func serve(mw echo.MiddlewareFunc, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/history", http.NoBody)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	_ = mw(ownerHandler)(c)
	return rec
}

func credCookies(uid, sid string) []*http.Cookie {
	return []*http.Cookie{
		{Name: UserCookie, Value: uid},
		{Name: SessionCookie, Value: sid},
	}
}

func TestRequireAuth(t *testing.T) {
	gate := NewStaticGate(map[string]string{"S1": "U1"})
	mw := RequireAuth(gate, logging.Discard())

	tests := []struct {
		name        string
		cookies     []*http.Cookie
		wantStatus  int
		wantBody    string
		wantCleared bool
	}{
		{"valid session", credCookies("U1", "S1"), http.StatusOK, "U1", false},
		{"missing cookies", nil, http.StatusUnauthorized, "Authentication required", false},
		{"only user cookie", credCookies("U1", "")[:1], http.StatusUnauthorized, "Authentication required", false},
		{"expired session", credCookies("U1", "S9"), http.StatusUnauthorized, "Invalid or expired authentication", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(mw, tt.cookies...)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)

			cleared := 0
			for _, ck := range rec.Result().Cookies() {
				if ck.MaxAge < 0 {
					cleared++
				}
			}
			if tt.wantCleared {
				assert.Equal(t, 2, cleared)
			} else {
				assert.Zero(t, cleared)
			}
		})
	}
}

func TestRequireAuth_GateFault(t *testing.T) {
	rec := serve(RequireAuth(failingGate{}, logging.Discard()), credCookies("U1", "S1")...)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Authentication failed")
}

func TestOptionalAuth(t *testing.T) {
	gate := NewStaticGate(map[string]string{"S1": "U1"})
	mw := OptionalAuth(gate, logging.Discard())

	rec := serve(mw, credCookies("U1", "S1")...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "U1", rec.Body.String())

	rec = serve(mw)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = serve(mw, credCookies("U1", "S9")...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = serve(OptionalAuth(failingGate{}, logging.Discard()), credCookies("U1", "S1")...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}
