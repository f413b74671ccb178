package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/example/slick-storefront/internal/auth"
)

// DeviceIDHeader identifies a guest's device for its local cart.
const DeviceIDHeader = "X-Device-ID"

const (
	accessTokenCookie = "access_token"
	bearerPrefix      = "Bearer "
	maxDeviceIDLength = 128
)

type contextKey string

const (
	UserContextKey   contextKey = "user"
	DeviceContextKey contextKey = "device"
)

func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// tokenFromRequest prefers the access_token cookie over a bearer header.
func tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(accessTokenCookie); err == nil {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, bearerPrefix) {
		return strings.TrimPrefix(h, bearerPrefix)
	}
	return ""
}

func withClaims(r *http.Request, claims *auth.Claims) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), UserContextKey, claims))
}

// AuthMiddleware rejects requests without a valid access token.
func AuthMiddleware(jwtService *auth.JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token == "" {
				writeError(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			claims, err := jwtService.ValidateAccessToken(token)
			if err != nil {
				writeError(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, withClaims(r, claims))
		})
	}
}

// OptionalAuthMiddleware attaches claims when a valid token is present and
// otherwise lets the request through as anonymous.
func OptionalAuthMiddleware(jwtService *auth.JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := tokenFromRequest(r); token != "" {
				if claims, err := jwtService.ValidateAccessToken(token); err == nil {
					r = withClaims(r, claims)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// DeviceMiddleware stores a well-formed X-Device-ID header in the context.
// Malformed ids are ignored, leaving the request without a device.
func DeviceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := strings.TrimSpace(r.Header.Get(DeviceIDHeader)); validDeviceID(id) {
			r = r.WithContext(context.WithValue(r.Context(), DeviceContextKey, id))
		}
		next.ServeHTTP(w, r)
	})
}

func validDeviceID(id string) bool {
	if id == "" || len(id) > maxDeviceIDLength {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

func GetUserFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(UserContextKey).(*auth.Claims)
	return claims, ok
}

// GetUserID is empty for anonymous requests.
func GetUserID(ctx context.Context) string {
	if claims, ok := GetUserFromContext(ctx); ok {
		return claims.UserID
	}
	return ""
}

func GetDeviceID(ctx context.Context) string {
	id, _ := ctx.Value(DeviceContextKey).(string)
	return id
}
