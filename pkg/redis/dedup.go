package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduplicator remembers keys for a limited time so that redelivered
// provider events can be dropped before they reach the database.
type Deduplicator struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewDeduplicator panics on a nil client, same as other constructors that
// receive a required dependency.
func NewDeduplicator(client redis.UniversalClient, cfg Config) *Deduplicator {
	if client == nil {
		panic("redis: nil client")
	}
	ttl := cfg.DedupTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Deduplicator{client: client, prefix: cfg.KeyPrefix + "dedup:", ttl: ttl}
}

// Claim returns true when key was not seen before. A claimed key stays
// reserved until the TTL expires or Release is called.
func (d *Deduplicator) Claim(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}
	ok, err := d.client.SetNX(ctx, d.prefix+key, time.Now().UTC().Format(time.RFC3339), d.ttl).Result()
	if err != nil {
		return false, errors.Join(ErrDedupUnavailable, err)
	}
	return ok, nil
}

// Release forgets key, so a failed delivery can be processed again.
func (d *Deduplicator) Release(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return d.client.Del(ctx, d.prefix+key).Err()
}
