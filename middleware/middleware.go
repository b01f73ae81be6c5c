// Package middleware provides the HTTP middleware chain shared by every
// bridge endpoint: request-id tagging/logging, panic recovery, CORS, and an
// optional per-request timeout. Kept close to the teacher's hand-rolled
// chain rather than adopting a router-specific middleware stack, since the
// bridge itself stays on plain net/http.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RequestIDKey is the context key for the request ID.
type RequestIDKey struct{}

// LoggingMiddleware logs request information and adds a request ID to the context.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.New().String()

		ctx := context.WithValue(r.Context(), RequestIDKey{}, requestID)
		w.Header().Set("X-Request-ID", requestID)

		rw := &responseWriter{w, http.StatusOK}

		log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Msg("request received")

		next.ServeHTTP(rw, r.WithContext(ctx))

		log.Info().
			Str("request_id", requestID).
			Int("status", rw.status).
			Dur("duration", time.Since(start)).
			Msg("request completed")
	})
}

// TimeoutMiddleware adds a timeout to the request context. httpserver applies
// it to no route: the runtime-next long poll and the external invoke both
// block until the rendezvous completes.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			done := make(chan struct{})
			go func() {
				next.ServeHTTP(w, r.WithContext(ctx))
				close(done)
			}()

			select {
			case <-done:
				return
			case <-ctx.Done():
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					w.WriteHeader(http.StatusGatewayTimeout)
					w.Write([]byte("Request timeout"))
				}
			}
		})
	}
}

// CORSMiddleware answers OPTIONS preflights and tags every response with
// permissive CORS headers, per spec §4.6.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// responseWriter is a wrapper for http.ResponseWriter that captures the status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

// WriteHeader captures the status code before writing it.
func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// RecoverMiddleware recovers from panics and logs the error.
func RecoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				requestID, _ := r.Context().Value(RequestIDKey{}).(string)
				log.Error().
					Str("request_id", requestID).
					Interface("error", err).
					Msg("panic recovered")

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":"Internal server error"}`))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
