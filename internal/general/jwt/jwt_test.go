package jwt

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ride-dispatch/internal/domain/user"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager_Validation(t *testing.T) {
	_, err := NewManager("  ", time.Hour)
	assert.ErrorIs(t, err, ErrEmptySecret)

	_, err = NewManager("secret", 0)
	assert.Error(t, err)
}

func TestIssueAndParse(t *testing.T) {
	mgr, err := NewManager("secret", time.Hour)
	require.NoError(t, err)

	raw, issued, err := mgr.Issue("ops-1", user.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, Issuer, issued.Issuer)

	claims, err := mgr.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "ops-1", claims.Subject)
	assert.Equal(t, user.RoleAdmin, claims.Role)

	_, _, err = mgr.Issue("ops-1", user.Role("ROOT"))
	assert.Error(t, err)
}

func TestParse_RejectsForeignAndExpiredTokens(t *testing.T) {
	mgr, err := NewManager("secret", time.Hour)
	require.NoError(t, err)
	other, err := NewManager("other", time.Hour)
	require.NoError(t, err)

	foreign, _, err := other.Issue("ops", user.RoleAdmin)
	require.NoError(t, err)
	_, err = mgr.Parse(foreign)
	assert.Error(t, err)

	expired := NewClaims("ops", user.RoleAdmin, -time.Minute)
	raw, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, expired).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = mgr.Parse(raw)
	assert.ErrorIs(t, err, jwtlib.ErrTokenExpired)
}

func TestFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	_, err := FromRequest(r)
	assert.ErrorIs(t, err, ErrMissingToken)

	r.Header.Set("Authorization", "Basic abc")
	_, err = FromRequest(r)
	assert.ErrorIs(t, err, ErrMissingToken)

	r.Header.Set("Authorization", "Bearer abc")
	tok, err := FromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	ws := httptest.NewRequest(http.MethodGet, "/ws/rides?access_token=xyz", nil)
	tok, err = FromRequest(ws)
	require.NoError(t, err)
	assert.Equal(t, "xyz", tok)
}

func TestAuthMiddlewareFunc(t *testing.T) {
	mgr, err := NewManager("secret", time.Hour)
	require.NoError(t, err)

	var seen *Claims
	next := func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}
	h := AuthMiddlewareFunc(mgr, user.RoleAdmin)(next)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/admin/stats", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	driverTok, _, err := mgr.Issue("d1", user.RoleDriver)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	req.Header.Set("Authorization", "Bearer "+driverTok)
	rec = httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	adminTok, _, err := mgr.Issue("ops", user.RoleAdmin)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	req.Header.Set("Authorization", "Bearer "+adminTok)
	rec = httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "ops", seen.Subject)
}

func TestAuthMiddlewareFunc_NilManagerDisablesAuth(t *testing.T) {
	h := AuthMiddlewareFunc(nil, user.RoleAdmin)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/admin/rides", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
