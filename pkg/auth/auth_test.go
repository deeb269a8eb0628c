package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testConfig = Config{Secret: "test-secret", Issuer: "orgio.test"}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testConfig.Secret))
	require.NoError(t, err)
	return signed
}

func TestParseExtractsIdentity(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub":     "user-1",
		"org_id":  "org-1",
		"email":   "ada@example.com",
		"name":    "Ada",
		"picture": "https://example.com/ada.png",
		"iss":     testConfig.Issuer,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	claims, err := Parse(token, testConfig)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, "org-1", claims.OrgID)
	require.Equal(t, "ada@example.com", claims.Email)
	require.Equal(t, "Ada", claims.Name)
	require.Equal(t, "https://example.com/ada.png", claims.AvatarURL)
}

func TestParseAllowsMissingOrganization(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub": "user-2",
		"iss": testConfig.Issuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	claims, err := Parse(token, testConfig)
	require.NoError(t, err)
	require.Empty(t, claims.OrgID)
	require.Empty(t, claims.Name)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub": "user-1",
		"iss": testConfig.Issuer,
		"exp": time.Now().Add(-time.Minute).Unix(),
	})

	_, err := Parse(token, testConfig)
	require.ErrorIs(t, err, ErrExpiredToken)
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub": "user-1",
		"iss": "someone-else",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := Parse(token, testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsEmptyToken(t *testing.T) {
	_, err := Parse("  ", testConfig)
	require.ErrorIs(t, err, ErrMissingToken)
}

func TestMiddlewareStoresClaims(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub":    "user-1",
		"org_id": "org-1",
		"iss":    testConfig.Issuer,
		"exp":    time.Now().Add(time.Hour).Unix(),
	})

	var seen *Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	mw := NewMiddleware(testConfig, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/submissions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	mw.Wrap(next).ServeHTTP(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)
	require.NotNil(t, seen)
	require.Equal(t, "org-1", seen.OrgID)
}

func TestMiddlewareAcceptsQueryToken(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub": "user-1",
		"iss": testConfig.Issuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
	req := httptest.NewRequest(http.MethodGet, "/v1/ws?token="+token, nil)
	rr := httptest.NewRecorder()
	NewMiddleware(testConfig, nil).Wrap(next).ServeHTTP(rr, req)

	require.True(t, called)
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	})
	req := httptest.NewRequest(http.MethodGet, "/v1/submissions", nil)
	rr := httptest.NewRecorder()
	NewMiddleware(testConfig, nil).Wrap(next).ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Contains(t, rr.Body.String(), "missing bearer token")
}

func TestMiddlewareSkipper(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
	skip := func(r *http.Request) bool { return r.URL.Path == "/healthz" }

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	NewMiddleware(testConfig, skip).Wrap(next).ServeHTTP(httptest.NewRecorder(), req)

	require.True(t, called)
}
