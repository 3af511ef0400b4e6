package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"staybook-backend/internal/logger"
	"staybook-backend/internal/security"
)

const requestIDHeader = "X-Request-ID"

type actorKey struct{}

// Actor is the caller behind a request. StaffID is empty for self-service
// callers.
type Actor struct {
	StaffID string
}

func (a Actor) IsStaff() bool {
	return a.StaffID != ""
}

func withActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFromContext returns the caller attached by the auth middleware.
func ActorFromContext(ctx context.Context) Actor {
	a, _ := ctx.Value(actorKey{}).(Actor)
	return a
}

// RequestIDMiddleware tags the request context and response with a request
// id, reusing the caller's when one is sent.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func AccessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.InfoContext(r.Context(), "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

// AuthMiddleware resolves the caller from an optional bearer token. A
// missing token means a self-service caller; a token that fails
// validation is rejected.
type AuthMiddleware struct {
	tokenManager security.TokenManager
}

func NewAuthMiddleware(tm security.TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokenManager: tm}
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			next.ServeHTTP(w, r.WithContext(withActor(r.Context(), Actor{})))
			return
		}

		claims, err := m.tokenManager.ValidateToken(token)
		if err != nil {
			logger.WarnContext(r.Context(), "Rejected bearer token", "error", err)
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(withActor(r.Context(), Actor{StaffID: claims.StaffID})))
	})
}

// RequireStaff rejects callers without a staff token.
func RequireStaff(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !ActorFromContext(r.Context()).IsStaff() {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "staff authorization required")
			return
		}
		next(w, r)
	}
}

func extractToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
