package repository

import (
	"context"
	"errors"
	"fmt"

	"SigRoute/internal/domain/models"
	"SigRoute/internal/domain/repository"
	pkgcache "SigRoute/pkg/cache"
)

// RedisSnapshotStore persists ledger snapshots under a single Redis key.
// Snapshots never expire; the key always holds the latest durable state.
type RedisSnapshotStore struct {
	cache *pkgcache.RedisCache
	key   string
}

// NewRedisSnapshotStore creates a Redis-backed snapshot store.
func NewRedisSnapshotStore(cache *pkgcache.RedisCache, key string) repository.SnapshotStore {
	return &RedisSnapshotStore{cache: cache, key: key}
}

func (s *RedisSnapshotStore) Save(ctx context.Context, snap *models.LedgerSnapshot) error {
	if err := s.cache.Set(ctx, s.key, snap, 0); err != nil {
		return fmt.Errorf("redis snapshot save: %w", err)
	}
	return nil
}

func (s *RedisSnapshotStore) Load(ctx context.Context) (*models.LedgerSnapshot, error) {
	var snap models.LedgerSnapshot
	if err := s.cache.Get(ctx, s.key, &snap); err != nil {
		if errors.Is(err, pkgcache.ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis snapshot load: %w", err)
	}
	return &snap, nil
}

func (s *RedisSnapshotStore) Close() error {
	return s.cache.Close()
}
