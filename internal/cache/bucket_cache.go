package cache

import (
	"context"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/andresuchdata/r2bridge/internal/config"
	"github.com/andresuchdata/r2bridge/internal/domain"
	"github.com/redis/go-redis/v9"
)

const bucketKeyPrefix = "r2bridge:account"

// BucketCache holds control-plane reads per credential: an entry is only
// served to the account and API token that fetched it. Entries expire after
// the configured TTL and every entry of the account is dropped on any bucket
// or CORS write.
type BucketCache interface {
	GetBuckets(ctx context.Context, cred domain.Credential) ([]domain.Bucket, bool, error)
	SetBuckets(ctx context.Context, cred domain.Credential, buckets []domain.Bucket) error
	GetCORS(ctx context.Context, cred domain.Credential, bucket string) (*domain.CORSConfiguration, bool, error)
	SetCORS(ctx context.Context, cred domain.Credential, bucket string, cfg *domain.CORSConfiguration) error
	InvalidateAccount(ctx context.Context, accountID string) error
}

type redisBucketCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

type noopBucketCache struct{}

// NewBucketCache returns a redis-backed cache when enabled, otherwise a no-op.
func NewBucketCache(cfg config.CacheConfig) (BucketCache, error) {
	if !cfg.Enabled {
		return &noopBucketCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	return &redisBucketCache{client: client, ttl: ttl}, nil
}

// NewRedisBucketCache wraps an existing client.
func NewRedisBucketCache(client redis.UniversalClient, ttl time.Duration) BucketCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &redisBucketCache{client: client, ttl: ttl}
}

func NewNoopBucketCache() BucketCache {
	return &noopBucketCache{}
}

func (c *redisBucketCache) GetBuckets(ctx context.Context, cred domain.Credential) ([]domain.Bucket, bool, error) {
	var buckets []domain.Bucket
	found, err := c.get(ctx, bucketListKey(cred), &buckets)
	return buckets, found, err
}

func (c *redisBucketCache) SetBuckets(ctx context.Context, cred domain.Credential, buckets []domain.Bucket) error {
	return c.set(ctx, bucketListKey(cred), buckets)
}

func (c *redisBucketCache) GetCORS(ctx context.Context, cred domain.Credential, bucket string) (*domain.CORSConfiguration, bool, error) {
	var cfg domain.CORSConfiguration
	found, err := c.get(ctx, corsKey(cred, bucket), &cfg)
	if !found || err != nil {
		return nil, found, err
	}
	return &cfg, true, nil
}

func (c *redisBucketCache) SetCORS(ctx context.Context, cred domain.Credential, bucket string, cfg *domain.CORSConfiguration) error {
	return c.set(ctx, corsKey(cred, bucket), cfg)
}

func (c *redisBucketCache) InvalidateAccount(ctx context.Context, accountID string) error {
	return deleteKeysWithPrefix(ctx, c.client, accountPrefix(accountID))
}

func (c *redisBucketCache) get(ctx context.Context, key string, out any) (bool, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get failed: %w", err)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return false, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	return true, nil
}

func (c *redisBucketCache) set(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (n *noopBucketCache) GetBuckets(ctx context.Context, cred domain.Credential) ([]domain.Bucket, bool, error) {
	return nil, false, nil
}

func (n *noopBucketCache) SetBuckets(ctx context.Context, cred domain.Credential, buckets []domain.Bucket) error {
	return nil
}

func (n *noopBucketCache) GetCORS(ctx context.Context, cred domain.Credential, bucket string) (*domain.CORSConfiguration, bool, error) {
	return nil, false, nil
}

func (n *noopBucketCache) SetCORS(ctx context.Context, cred domain.Credential, bucket string, cfg *domain.CORSConfiguration) error {
	return nil
}

func (n *noopBucketCache) InvalidateAccount(ctx context.Context, accountID string) error {
	return nil
}

// accountPrefix hashes the account id so keys stay short and uniform.
func accountPrefix(accountID string) string {
	hash := sha1.Sum([]byte(accountID))
	return fmt.Sprintf("%s:%s:", bucketKeyPrefix, hex.EncodeToString(hash[:8]))
}

// CredentialScope is the key prefix for entries read with cred. It nests under
// the account prefix so InvalidateAccount reaches every token of the account.
func CredentialScope(cred domain.Credential) string {
	token := sha256.Sum256([]byte(cred.APIToken))
	return accountPrefix(cred.AccountID) + hex.EncodeToString(token[:8]) + ":"
}

func bucketListKey(cred domain.Credential) string {
	return CredentialScope(cred) + "buckets"
}

func corsKey(cred domain.Credential, bucket string) string {
	return CredentialScope(cred) + "cors:" + bucket
}
