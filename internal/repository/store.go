package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"StockPulse/internal/domain/repository"
	"StockPulse/pkg/cache"
	applogger "StockPulse/pkg/logger"
)

// KVStore implements repository.Store on top of any cache.Service backend
// (memory, Redis, layered or Postgres). Values never expire on their own.
type KVStore struct {
	backend cache.Service
	log     *applogger.Logger
}

// NewKVStore creates the persistent store adapter.
func NewKVStore(backend cache.Service, l *applogger.Logger) *KVStore {
	if l == nil {
		l = applogger.NewNop()
	}
	return &KVStore{backend: backend, log: l}
}

var _ repository.Store = (*KVStore)(nil)

func (s *KVStore) GetString(ctx context.Context, key string) (string, bool) {
	v, err := s.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn("store read failed", applogger.String("key", key), applogger.Error(err))
		}
		return "", false
	}
	return v, true
}

func (s *KVStore) SetString(ctx context.Context, key, value string) error {
	if err := s.backend.Set(ctx, key, value, 0); err != nil {
		return fmt.Errorf("store write %s: %w", key, err)
	}
	return nil
}

// GetJSON decodes the value at key into dest. Corrupt values are logged and
// reported as absent.
func (s *KVStore) GetJSON(ctx context.Context, key string, dest interface{}) bool {
	raw, ok := s.GetString(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		s.log.Warn("store value is not valid JSON", applogger.String("key", key), applogger.Error(err))
		return false
	}
	return true
}

func (s *KVStore) SetJSON(ctx context.Context, key string, value interface{}) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.SetString(ctx, key, string(b))
}

func (s *KVStore) AppendCapped(ctx context.Context, key, item string, max int) ([]string, error) {
	var list []string
	s.GetJSON(ctx, key, &list)
	list = append(list, item)
	if max > 0 && len(list) > max {
		list = append([]string(nil), list[len(list)-max:]...)
	}
	if err := s.SetJSON(ctx, key, list); err != nil {
		return list, err
	}
	return list, nil
}

func (s *KVStore) Delete(ctx context.Context, key string) error {
	if err := s.backend.Delete(ctx, key); err != nil {
		return fmt.Errorf("store delete %s: %w", key, err)
	}
	return nil
}

func (s *KVStore) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.backend.TryLock(ctx, cache.LockKey(key), ttl)
}

// Close releases the backend.
func (s *KVStore) Close() error {
	return s.backend.Close()
}
