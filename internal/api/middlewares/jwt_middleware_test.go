package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atriumhq/atrium-backend/internal/models"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestJWTMiddlewareAttachesViewer(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	var got models.Viewer
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v, ok := ViewerFromContext(r.Context())
		require.True(t, ok)
		got = v
	})

	token := signToken(t, "test-secret", jwt.MapClaims{
		"user_id": "u1", "role": "manager", "team": "Sales", "region": "EMEA",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/search", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	JWTMiddleware(next).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.Viewer{ID: "u1", Role: "manager", Team: "Sales", Region: "EMEA"}, got)
}

func TestJWTMiddlewareRejectsMissingHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	JWTMiddleware(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddlewareRejectsWrongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "right-secret")

	token := signToken(t, "wrong-secret", jwt.MapClaims{"user_id": "u1"})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	JWTMiddleware(http.NotFoundHandler()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddlewareRejectsMissingUserID(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token := signToken(t, "test-secret", jwt.MapClaims{"role": "manager"})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	JWTMiddleware(http.NotFoundHandler()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
