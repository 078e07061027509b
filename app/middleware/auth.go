package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"luch-agregator/logger"
	"luch-agregator/session"
)

type contextKey struct{}

// SessionFromContext returns the session attached by RequireSession
func SessionFromContext(ctx context.Context) (*session.Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*session.Session)
	return s, ok
}

// WithSession attaches s to ctx
func WithSession(ctx context.Context, s *session.Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// RequireSession rejects requests without a live session cookie
func RequireSession(sessions *session.Manager, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := sessions.FromRequest(r)
			if err != nil {
				if !errors.Is(err, session.ErrSessionNotFound) {
					log.Error("❌ Session lookup failed", "error", err)
					writeError(w, http.StatusServiceUnavailable, "session store unavailable")
					return
				}
				writeError(w, http.StatusUnauthorized, "login required")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}

// RequireStaff allows only sessions of staff users. It must run after RequireSession.
func RequireStaff() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, ok := SessionFromContext(r.Context())
			if !ok || !s.IsStaff {
				writeError(w, http.StatusForbidden, "staff access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
