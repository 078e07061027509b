package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"luch-agregator/logger"
)

// CookieName is the cookie carrying the session id
const CookieName = "offers_session"

// ErrSessionNotFound is returned for unknown or expired sessions
var ErrSessionNotFound = errors.New("session not found")

// Session is the server side state behind a session cookie
type Session struct {
	ID        string    `json:"-"`
	UserID    int64     `json:"userId"`
	IsStaff   bool      `json:"isStaff"`
	CreatedAt time.Time `json:"createdAt"`
}

// Manager keeps sessions, their flash queues and selections in Redis.
// Every key of a session shares the session TTL, refreshed on each access.
type Manager struct {
	rdb    *goredis.Client
	ttl    time.Duration
	secure bool
	log    *logger.Logger
}

// NewClient connects to Redis and pings it
func NewClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// NewManager creates a new Manager
func NewManager(rdb *goredis.Client, ttl time.Duration, secureCookie bool, log *logger.Logger) *Manager {
	return &Manager{rdb: rdb, ttl: ttl, secure: secureCookie, log: log.With("component", "SessionManager")}
}

func sessionKey(id string) string   { return "session:" + id }
func selectionKey(id string) string { return "session:" + id + ":selection" }
func flashKey(id string) string     { return "session:" + id + ":flash" }

// Create starts a session for a logged in user
func (m *Manager) Create(ctx context.Context, userID int64, isStaff bool) (*Session, error) {
	s := &Session{ID: uuid.NewString(), UserID: userID, IsStaff: isStaff, CreatedAt: time.Now().UTC()}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}
	if err := m.rdb.Set(ctx, sessionKey(s.ID), data, m.ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	m.log.Info("✓ Session created", "user_id", userID)
	return s, nil
}

// Get loads a session and slides its expiry
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrSessionNotFound
	}
	data, err := m.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		m.log.Warn("⚠️  Dropping unreadable session", "error", err)
		_ = m.rdb.Del(ctx, sessionKey(id)).Err()
		return nil, ErrSessionNotFound
	}
	s.ID = id

	_, err = m.rdb.Pipelined(ctx, func(p goredis.Pipeliner) error {
		p.Expire(ctx, sessionKey(id), m.ttl)
		p.Expire(ctx, selectionKey(id), m.ttl)
		p.Expire(ctx, flashKey(id), m.ttl)
		return nil
	})
	if err != nil {
		m.log.Warn("⚠️  Failed to refresh session expiry", "error", err)
	}
	return &s, nil
}

// Destroy removes the session with its selection and flashes
func (m *Manager) Destroy(ctx context.Context, id string) error {
	if err := m.rdb.Del(ctx, sessionKey(id), selectionKey(id), flashKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// FromRequest resolves the session named by the request cookie
func (m *Manager) FromRequest(r *http.Request) (*Session, error) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	return m.Get(r.Context(), c.Value)
}

// SetCookie writes the session cookie
func (m *Manager) SetCookie(w http.ResponseWriter, s *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    s.ID,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
