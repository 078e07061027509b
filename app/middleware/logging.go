package middleware

import (
	"net/http"
	"time"

	"luch-agregator/logger"
)

// RequestLogger logs every request; 4xx at warn and 5xx at error level
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			kv := []interface{}{
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration", time.Since(start),
				"bytes", wrapped.written,
				"remote_addr", r.RemoteAddr,
			}
			switch {
			case wrapped.statusCode >= 500:
				log.Error("HTTP request", kv...)
			case wrapped.statusCode >= 400:
				log.Warn("HTTP request", kv...)
			default:
				log.Info("HTTP request", kv...)
			}
		})
	}
}
