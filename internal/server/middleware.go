package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/findoc-labs/findoc-analyzer/internal/apperr"
	authservice "github.com/findoc-labs/findoc-analyzer/internal/domain/auth/service"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated caller extracted from the access token
type Identity struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	Email    string
}

// IdentityFromContext returns the authenticated identity, if any
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// Middleware wraps an http.Handler
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares in declaration order
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Auth validates the bearer token and stores the caller identity in the
// request context.
func Auth(auth *authservice.AuthService, logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				writeError(w, logger, err)
				return
			}

			claims, err := auth.ValidateAccessToken(r.Context(), token)
			if err != nil {
				writeError(w, logger, err)
				return
			}

			userID, err := uuid.Parse(claims.UserID)
			if err != nil {
				writeError(w, logger, fmt.Errorf("%w: malformed user claim", apperr.ErrUnauthorized))
				return
			}
			tenantID, err := uuid.Parse(claims.TenantID)
			if err != nil {
				writeError(w, logger, fmt.Errorf("%w: malformed tenant claim", apperr.ErrUnauthorized))
				return
			}

			identity := Identity{UserID: userID, TenantID: tenantID, Email: claims.Email}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, identity)))
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("%w: missing authorization header", apperr.ErrUnauthorized)
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", fmt.Errorf("%w: malformed authorization header", apperr.ErrUnauthorized)
	}
	return token, nil
}

// RequestLogger logs each request with its status and duration
func RequestLogger(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.Info("http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RateLimit applies a per-client token bucket keyed by remote IP. Idle
// limiters are dropped after an hour.
func RateLimit(rps rate.Limit, burst int) Middleware {
	type client struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	var (
		mu      sync.Mutex
		clients = make(map[string]*client)
	)

	limiterFor := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		c, ok := clients[ip]
		if !ok {
			c = &client{limiter: rate.NewLimiter(rps, burst)}
			clients[ip] = c
		}
		c.lastSeen = time.Now()

		for key, other := range clients {
			if time.Since(other.lastSeen) > time.Hour {
				delete(clients, key)
			}
		}
		return c.limiter
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}

			if !limiterFor(ip).Allow() {
				writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
