package middleware

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/atriumhq/atrium-backend/internal/models"
)

type ctxKey string

const viewerKey ctxKey = "viewer"

// JWTMiddleware validates the Authorization header and attaches the viewer
// identity (id, role, team, area, region claims) to the request context.
func JWTMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			http.Error(w, "missing or invalid token", http.StatusUnauthorized)
			return
		}

		tokenStr := strings.TrimPrefix(auth, "Bearer ")
		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			return []byte(os.Getenv("JWT_SECRET")), nil
		})
		if err != nil || !token.Valid {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		userID, ok := claims["user_id"].(string)
		if !ok {
			http.Error(w, "invalid token claims", http.StatusUnauthorized)
			return
		}

		viewer := models.Viewer{
			ID:     userID,
			Role:   claimString(claims, "role"),
			Team:   claimString(claims, "team"),
			Area:   claimString(claims, "area"),
			Region: claimString(claims, "region"),
		}

		ctx := context.WithValue(r.Context(), viewerKey, viewer)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ViewerFromContext returns the authenticated viewer, if any.
func ViewerFromContext(ctx context.Context) (models.Viewer, bool) {
	v, ok := ctx.Value(viewerKey).(models.Viewer)
	return v, ok
}

// WithViewer attaches a viewer to ctx; used by tests.
func WithViewer(ctx context.Context, v models.Viewer) context.Context {
	return context.WithValue(ctx, viewerKey, v)
}

func claimString(claims jwt.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return s
}
