package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

// RedisTier is the optional tier-2 cache backing CssContentCache and
// InferredResourcesCache: a rueidis-backed store shared across the
// load-generator fleet, the way kailas-cloud-vecdex's
// internal/repository/embcache layers a remote cache in front of a
// (there, OpenAI) computation. A RedisTier is pure best-effort: any
// error talking to Redis is logged and treated as a miss, never
// propagated, since spec.md's two caches are themselves "may evict
// freely; correctness does not depend on cache retention" (§9).
type RedisTier[K comparable, V any] struct {
	client    rueidis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
	keyFunc   func(K) string
}

// NewRedisTier wraps a rueidis client as a RemoteTier. keyFunc turns a
// typed cache key into the string Redis key; ttl bounds how long an
// entry survives in the remote store regardless of local eviction.
func NewRedisTier[K comparable, V any](client rueidis.Client, keyPrefix string, ttl time.Duration, keyFunc func(K) string, logger *zap.Logger) *RedisTier[K, V] {
	return &RedisTier[K, V]{client: client, keyPrefix: keyPrefix, ttl: ttl, keyFunc: keyFunc, logger: logger}
}

func (t *RedisTier[K, V]) redisKey(key K) string {
	return t.keyPrefix + ":" + t.keyFunc(key)
}

// Get returns the cached value for key, or (zero, false) on a miss or
// any Redis error.
func (t *RedisTier[K, V]) Get(ctx context.Context, key K) (V, bool) {
	var zero V
	resp := t.client.Do(ctx, t.client.B().Get().Key(t.redisKey(key)).Build())
	raw, err := resp.ToString()
	if err != nil {
		if !rueidis.IsRedisNil(err) {
			t.logger.Warn("resourcefetch: tier-2 cache read failed", zap.Error(err))
		}
		return zero, false
	}

	var v V
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.logger.Warn("resourcefetch: tier-2 cache payload unreadable", zap.Error(err))
		return zero, false
	}
	return v, true
}

// Put stores value for key in the remote tier, best-effort.
func (t *RedisTier[K, V]) Put(ctx context.Context, key K, value V) {
	payload, err := json.Marshal(value)
	if err != nil {
		t.logger.Warn("resourcefetch: tier-2 cache payload unmarshalable", zap.Error(err))
		return
	}

	cmd := t.client.B().Set().Key(t.redisKey(key)).Value(rueidis.BinaryString(payload))
	var final rueidis.Completed
	if t.ttl > 0 {
		final = cmd.ExSeconds(int64(t.ttl.Seconds())).Build()
	} else {
		final = cmd.Build()
	}
	if err := t.client.Do(ctx, final).Error(); err != nil {
		t.logger.Warn("resourcefetch: tier-2 cache write failed", zap.Error(err))
	}
}
