// Package middleware holds the HTTP middleware chain for the engine.
package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// RequestLogger returns middleware that logs HTTP traffic. Question
// endpoints are logged at Info because every hit is an LLM round trip
// worth seeing in production; probe and scrape endpoints stay at Debug so
// load balancers and Prometheus do not flood the log. A nil logger
// disables logging entirely.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logger == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int("bytes", ww.bytes),
				// Same unit as the pipeline's response times.
				zap.Float64("elapsed_seconds", time.Since(start).Seconds()),
				zap.String("remote_addr", r.RemoteAddr),
			}

			if isProbePath(r.URL.Path) {
				logger.Debug("HTTP request", fields...)
			} else {
				logger.Info("HTTP request", fields...)
			}
		})
	}
}

// isProbePath reports whether the path is hit by health checks or metric
// scrapes rather than by a user.
func isProbePath(path string) bool {
	switch path {
	case "/health", "/ping", "/metrics":
		return true
	}
	return false
}

// statusWriter captures the status code and body size written by the
// wrapped handler.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	n, err := w.ResponseWriter.Write(p)
	w.bytes += n
	return n, err
}
