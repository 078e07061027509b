package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"luch-agregator/selection"
)

// SelectionStore returns the selection.Store of one session
func (m *Manager) SelectionStore(sessionID string) selection.Store {
	return &redisSelectionStore{rdb: m.rdb, key: selectionKey(sessionID), ttl: m.ttl}
}

type redisSelectionStore struct {
	rdb *goredis.Client
	key string
	ttl time.Duration
}

func (s *redisSelectionStore) Load(ctx context.Context) (selection.Raw, error) {
	data, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return selection.Raw{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read selection: %w", err)
	}
	return selection.Decode(data)
}

func (s *redisSelectionStore) Save(ctx context.Context, raw selection.Raw) error {
	data, err := selection.Encode(raw)
	if err != nil {
		return fmt.Errorf("failed to encode selection: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write selection: %w", err)
	}
	return nil
}
