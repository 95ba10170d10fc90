package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/andresuchdata/r2bridge/internal/config"
	"github.com/andresuchdata/r2bridge/internal/domain"
)

func TestDisabledCacheIsNoop(t *testing.T) {
	c, err := NewBucketCache(config.CacheConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewBucketCache: %v", err)
	}
	ctx := context.Background()
	cred := domain.Credential{AccountID: "acc", APIToken: "tok"}
	if err := c.SetBuckets(ctx, cred, nil); err != nil {
		t.Fatal(err)
	}
	if _, found, err := c.GetBuckets(ctx, cred); found || err != nil {
		t.Fatalf("noop cache returned found=%v err=%v", found, err)
	}
	if _, found, err := c.GetCORS(ctx, cred, "b"); found || err != nil {
		t.Fatalf("noop cache returned found=%v err=%v", found, err)
	}
	if err := c.InvalidateAccount(ctx, "acc"); err != nil {
		t.Fatal(err)
	}
}

func TestBuildRedisOptions(t *testing.T) {
	opts, err := buildRedisOptions(config.CacheConfig{RedisHost: "cache.local", RedisPort: "6380", RedisDB: 2, RedisPassword: "pw"})
	if err != nil {
		t.Fatal(err)
	}
	if opts.Addr != "cache.local:6380" || opts.DB != 2 || opts.Password != "pw" {
		t.Fatalf("options = %+v", opts)
	}

	opts, err = buildRedisOptions(config.CacheConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if opts.Addr != "127.0.0.1:6379" {
		t.Fatalf("default addr = %q", opts.Addr)
	}

	opts, err = buildRedisOptions(config.CacheConfig{RedisURL: "redis://:secret@example.com:6390/3"})
	if err != nil {
		t.Fatal(err)
	}
	if opts.Addr != "example.com:6390" || opts.DB != 3 || opts.Password != "secret" {
		t.Fatalf("url options = %+v", opts)
	}

	if _, err := buildRedisOptions(config.CacheConfig{RedisURL: "http://nope"}); err == nil {
		t.Fatal("expected error for non-redis url")
	}
}

func TestKeysAreScopedByAccount(t *testing.T) {
	credA := domain.Credential{AccountID: "acc-a", APIToken: "tok"}
	credB := domain.Credential{AccountID: "acc-b", APIToken: "tok"}
	if bucketListKey(credA) == bucketListKey(credB) {
		t.Fatal("accounts share a key")
	}
	if !strings.HasPrefix(corsKey(credA, "photos"), accountPrefix("acc-a")) {
		t.Fatal("cors key outside account prefix")
	}
	if !strings.HasSuffix(corsKey(credA, "photos"), ":cors:photos") {
		t.Fatalf("cors key = %q", corsKey(credA, "photos"))
	}
}

func TestKeysAreScopedByToken(t *testing.T) {
	good := domain.Credential{AccountID: "acc", APIToken: "real-token"}
	forged := domain.Credential{AccountID: "acc", APIToken: "forged"}

	if bucketListKey(good) == bucketListKey(forged) {
		t.Fatal("tokens of one account share the bucket list key")
	}
	if corsKey(good, "photos") == corsKey(forged, "photos") {
		t.Fatal("tokens of one account share the cors key")
	}
	for _, cred := range []domain.Credential{good, forged} {
		if !strings.HasPrefix(bucketListKey(cred), accountPrefix("acc")) {
			t.Fatalf("key %q escapes account invalidation", bucketListKey(cred))
		}
		if strings.Contains(bucketListKey(cred), cred.APIToken) {
			t.Fatalf("key %q carries the raw token", bucketListKey(cred))
		}
	}
}

func TestTTLFallback(t *testing.T) {
	if got := ttlFor(config.CacheConfig{}); got != time.Minute {
		t.Fatalf("ttl = %v", got)
	}
	if got := ttlFor(config.CacheConfig{TTLSeconds: 5}); got != 5*time.Second {
		t.Fatalf("ttl = %v", got)
	}
}
