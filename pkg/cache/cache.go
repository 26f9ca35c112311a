// Package cache stores serialized analysis reports between runs so an
// unchanged project does not pay for a rescan.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Cache is the backend interface. Get reports a miss with hit == false
// rather than an error; errors are reserved for backend failures.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, hit bool, err error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// schemaVersion invalidates all cached reports when the report shape or the
// analysis semantics change.
const schemaVersion = 1

// ReportKey derives the cache key for one analysis: a hash over the build
// units and every setting that affects the result. Any input or settings
// change produces a different key, so stale entries are never served, only
// orphaned.
func ReportKey(unitsFingerprint string, rules, limits any) string {
	return hashKey("report", schemaVersion, unitsFingerprint, rules, limits)
}

// Hash computes the SHA-256 hex digest of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// hashKey builds "prefix:sha256(parts)". The full 64-char digest is kept so
// collisions are not a practical concern.
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(sum[:]))
}

// NullCache never stores anything. Used when caching is disabled.
type NullCache struct{}

func NewNullCache() Cache { return &NullCache{} }

func (c *NullCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

func (c *NullCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return nil
}

func (c *NullCache) Delete(ctx context.Context, key string) error { return nil }

func (c *NullCache) Close() error { return nil }

var _ Cache = (*NullCache)(nil)
