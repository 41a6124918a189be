package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"pushsvc/internal/httputil"
	"pushsvc/internal/model"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// CallerKey is the context key for the authenticated model.Caller
	CallerKey contextKey = "caller"
)

// Claims are the access token claims issued by the identity provider.
type Claims struct {
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Caller turns the claims into the identity services work with.
func (c *Claims) Caller() model.Caller {
	caller := model.Caller{User: c.Subject}
	for _, role := range c.Roles {
		if role == model.RolePushManager {
			caller.CanWriteAny = true
		}
	}
	return caller
}

// AuthMiddleware creates a middleware that validates JWT tokens
// Checks Authorization header first, then falls back to the access_token cookie
func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := tokenFromRequest(r)
			if tokenString == "" {
				httputil.WriteUnauthorized(w, "Missing authentication token")
				return
			}

			caller, code, message := parseToken(tokenString, jwtSecret)
			if code != "" {
				httputil.WriteUnauthorizedWithCode(w, code, message)
				return
			}

			ctx := context.WithValue(r.Context(), CallerKey, caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthMiddleware attaches the caller when the request carries a valid
// token and lets everyone else through as a guest. The handler decides how a
// guest is answered.
func OptionalAuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := tokenFromRequest(r)
			if tokenString == "" {
				next.ServeHTTP(w, r)
				return
			}

			caller, code, _ := parseToken(tokenString, jwtSecret)
			if code != "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), CallerKey, caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// parseToken validates tokenString. On failure it returns the error code and
// message for the 401 body.
func parseToken(tokenString, jwtSecret string) (model.Caller, string, string) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.Caller{}, httputil.ErrCodeTokenExpired, "Access token has expired"
		}
		return model.Caller{}, httputil.ErrCodeTokenInvalid, "Invalid authentication token"
	}
	if !token.Valid || claims.Subject == "" {
		return model.Caller{}, httputil.ErrCodeTokenInvalid, "Invalid token claims"
	}
	return claims.Caller(), "", ""
}

// RequireWriteAny rejects callers without the push_manager role.
// Must run after AuthMiddleware.
func RequireWriteAny(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := CallerFromContext(r.Context())
		if !ok || !caller.CanWriteAny {
			httputil.WriteForbidden(w, "Insufficient permission to send push notifications")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func tokenFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := r.Cookie("access_token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

// CallerFromContext returns the authenticated caller, or false for guests.
func CallerFromContext(ctx context.Context) (model.Caller, bool) {
	caller, ok := ctx.Value(CallerKey).(model.Caller)
	return caller, ok && !caller.Guest()
}
