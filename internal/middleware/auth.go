package middleware

import (
	"context"
	"log"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/task-manager-api/internal/apperr"
	"github.com/ayush/task-manager-api/internal/auth"
	"github.com/ayush/task-manager-api/internal/respond"
)

// TokenValidator resolves a bearer token to an identity.
type TokenValidator interface {
	Validate(token string) (*auth.Identity, error)
}

// AttemptLimiter decides whether another attempt under key is allowed.
type AttemptLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// bearerToken returns the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// RequireAuth validates the bearer token and injects the caller into the
// request context. Requests without a valid token stop here with 401.
func RequireAuth(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				respond.Error(w, r, apperr.Unauthorized("Not authorized, token missing"))
				return
			}

			id, err := tokens.Validate(token)
			if err != nil {
				respond.Error(w, r, apperr.Unauthorized("Not authorized, invalid token"))
				return
			}
			oid, err := primitive.ObjectIDFromHex(id.ID)
			if err != nil {
				respond.Error(w, r, apperr.Unauthorized("Not authorized, invalid token"))
				return
			}

			ctx := WithCaller(r.Context(), Caller{ID: oid, Email: id.Email, IsAdmin: id.IsAdmin})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin must be mounted after RequireAuth. It rejects callers whose
// token does not carry the admin claim.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := CallerFrom(r.Context())
		if !ok || !c.IsAdmin {
			respond.Error(w, r, apperr.Forbidden("Access denied: admin only"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ValidObjectID rejects requests whose URL parameter is not a well-formed
// ObjectID with 400, before any store lookup happens.
func ValidObjectID(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !primitive.IsValidObjectID(chi.URLParam(r, param)) {
				respond.Error(w, r, apperr.Invalid("Invalid ID format"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit throttles requests per client IP. Limiter failures let the
// request through and are logged.
func RateLimit(limiter AttemptLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)
			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				log.Printf("[ratelimit] %s: %v", key, err)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				respond.Error(w, r, apperr.TooManyRequests("Too many attempts, please try again later"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP expects chi's RealIP middleware to have rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
