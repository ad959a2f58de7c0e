package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"

	"github.com/agendex/agendex/observability"
)

type ctxKey int

const userKey ctxKey = 0

// userID returns the authenticated username, or "anonymous" when auth is
// disabled.
func userID(r *http.Request) string {
	if u, ok := r.Context().Value(userKey).(string); ok {
		return u
	}
	return "anonymous"
}

// basicAuth verifies HTTP basic credentials against the bcrypt user table.
// With no users configured the middleware is a pass-through.
func (s *Server) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.users) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		user, pass, ok := r.BasicAuth()
		if !ok || !s.checkPassword(user, pass) {
			w.Header().Set("WWW-Authenticate", `Basic realm="agendex"`)
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

// dummyHash keeps the unknown-user path as slow as the known-user path.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("agendex"), bcrypt.DefaultCost)

func (s *Server) checkPassword(user, pass string) bool {
	hash, ok := s.users[user]
	if !ok {
		bcrypt.CompareHashAndPassword(dummyHash, []byte(pass))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pass)) == nil
}

// logRequests emits one structured log line per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		if s.metrics != nil {
			s.metrics.Record(&observability.Metric{
				Name:      observability.MetricRequestDurationMs,
				Timestamp: start,
				Value:     float64(time.Since(start).Milliseconds()),
				Labels:    map[string]string{"path": r.URL.Path, "method": r.Method},
				Unit:      "milliseconds",
			})
		}
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
