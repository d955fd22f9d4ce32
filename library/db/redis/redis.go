// Package redis stores small shared values in redis.
package redis

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/redis/go-redis/v9"
)

// Client is the subset of the go-redis client used by DB.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// DB is a wrapper for go-redis
type DB struct {
	db Client
}

// NewDB creates a new DB instance
func NewDB(opt *redis.Options) *DB {
	return NewDBWithClient(redis.NewClient(opt))
}

// NewDBWithClient wraps an existing client.
func NewDBWithClient(client Client) *DB {
	return &DB{db: client}
}

// Close releases the underlying client.
func (db *DB) Close() error {
	if err := db.db.Close(); err != nil {
		return errors.Wrap(err, "close redis client")
	}
	return nil
}

// GetShortCode loads the organisation short code cached for tenantID.
func (db *DB) GetShortCode(ctx context.Context, tenantID string) (string, bool, error) {
	code, err := db.db.Get(ctx, KeyPrefixShortCode+tenantID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "get short code")
	}

	return code, true, nil
}

// SetShortCode caches the organisation short code of tenantID for ttl.
func (db *DB) SetShortCode(ctx context.Context, tenantID, shortCode string, ttl time.Duration) error {
	if err := db.db.Set(ctx, KeyPrefixShortCode+tenantID, shortCode, ttl).Err(); err != nil {
		return errors.Wrap(err, "set short code")
	}

	return nil
}
