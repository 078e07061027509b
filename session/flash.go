package session

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// Level of a flash message
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Flash is a one-shot message shown on the next catalog view
type Flash struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// AddFlash queues a message for the session
func (m *Manager) AddFlash(ctx context.Context, sessionID string, level Level, message string) error {
	data, err := json.Marshal(Flash{Level: level, Message: message})
	if err != nil {
		return err
	}
	_, err = m.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.RPush(ctx, flashKey(sessionID), data)
		p.Expire(ctx, flashKey(sessionID), m.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to queue flash: %w", err)
	}
	return nil
}

// DrainFlashes returns the queued messages in order and clears the queue
func (m *Manager) DrainFlashes(ctx context.Context, sessionID string) ([]Flash, error) {
	var lrange *goredis.StringSliceCmd
	_, err := m.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		lrange = p.LRange(ctx, flashKey(sessionID), 0, -1)
		p.Del(ctx, flashKey(sessionID))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to drain flashes: %w", err)
	}

	flashes := []Flash{}
	for _, raw := range lrange.Val() {
		var f Flash
		if err := json.Unmarshal([]byte(raw), &f); err != nil {
			m.log.Warn("⚠️  Skipping unreadable flash", "error", err)
			continue
		}
		flashes = append(flashes, f)
	}
	return flashes, nil
}
