package middleware

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

// TokenValidator validates bearer tokens presented by callers.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// Claims carries the caller identity a validated token asserts.
type Claims struct {
	// Holder is the caller's holder address; every authorization
	// decision downstream keys on it.
	Holder string
}

type contextKeyHolder struct{}

// GetHolder retrieves the authenticated holder address from the context.
func GetHolder(ctx context.Context) string {
	holder, ok := ctx.Value(contextKeyHolder{}).(string)
	if !ok {
		return ""
	}
	return holder
}

// WithHolder injects a holder address; tests use it to fake auth.
func WithHolder(ctx context.Context, holder string) context.Context {
	return context.WithValue(ctx, contextKeyHolder{}, holder)
}

// RequireAuth rejects requests without a valid bearer token and puts
// the asserted holder into the request context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithHolder(ctx, claims.Holder)))
		})
	}
}

// RequireNetworkSecret authenticates the verification network's
// callback with a shared secret header. The callback endpoint is the
// only route that accepts it.
func RequireNetworkSecret(secret string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get("X-Network-Secret")
			if secret == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
				logger.WarnContext(r.Context(), "callback with bad network secret rejected",
					"request_id", GetRequestID(r.Context()),
				)
				writeUnauthorized(w, "Invalid network credentials")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
