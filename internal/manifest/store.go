// Package manifest keeps the manifests of completed mixes in Redis so their
// downloads can be resolved after the request that produced them.
package manifest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"mixer/internal/mixer"
	"mixer/internal/pkg/errors"
)

const keyPrefix = "mixer:manifest:"

// Key is the Redis key holding the manifest of mixID.
func Key(mixID string) string { return keyPrefix + mixID }

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore returns a Store whose entries expire after ttl. Zero keeps them
// forever.
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func (s *Store) Save(ctx context.Context, m *mixer.Manifest) error {
	if m == nil || m.ID == "" {
		return errors.ValidationField("id", "manifest id is required")
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "manifest.save", "failed to encode manifest")
	}
	if err := s.rdb.Set(ctx, Key(m.ID), raw, s.ttl).Err(); err != nil {
		return errors.Unavailable("redis", err)
	}
	return nil
}

// Get returns the manifest of mixID, or a NOT_FOUND error once it expired.
func (s *Store) Get(ctx context.Context, mixID string) (*mixer.Manifest, error) {
	raw, err := s.rdb.Get(ctx, Key(mixID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errors.NotFound("mix", mixID)
		}
		return nil, errors.Unavailable("redis", err)
	}

	var m mixer.Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errors.Wrap(err, "manifest.get", "stored manifest is corrupt").WithField("id", mixID)
	}
	return &m, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return errors.Unavailable("redis", err)
	}
	return nil
}
