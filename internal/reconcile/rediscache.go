package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jmerrifield20/seasense/internal/vessel/model"
)

const redisKeyPrefix = "seasense:vessel:"

// RedisLookup shares registry lookups between API instances through Redis.
// Values are JSON; an IMO absent from the registry is stored as null. Redis
// failures are logged and the lookup falls through to next.
type RedisLookup struct {
	rdb      redis.UniversalClient
	next     Lookup
	ttl      time.Duration
	observer CacheObserver
	logger   *zap.Logger
}

// NewRedisLookup wraps next with a Redis cache.
func NewRedisLookup(rdb redis.UniversalClient, next Lookup, ttl time.Duration, logger *zap.Logger) *RedisLookup {
	return &RedisLookup{rdb: rdb, next: next, ttl: ttl, logger: logger}
}

// SetObserver registers a hit/miss observer.
func (l *RedisLookup) SetObserver(o CacheObserver) {
	l.observer = o
}

// LookupVessel implements Lookup.
func (l *RedisLookup) LookupVessel(ctx context.Context, imo string) (*model.Vessel, error) {
	key := redisKeyPrefix + imo

	raw, err := l.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var v *model.Vessel
		if jerr := json.Unmarshal(raw, &v); jerr == nil {
			if l.observer != nil {
				l.observer.LookupCacheHit("redis")
			}
			return v, nil
		}
		l.logger.Warn("discarding undecodable cached vessel", zap.String("key", key))
	case errors.Is(err, redis.Nil):
	default:
		l.logger.Warn("redis get failed", zap.String("key", key), zap.Error(err))
	}
	if l.observer != nil {
		l.observer.LookupCacheMiss("redis")
	}

	v, err := l.next.LookupVessel(ctx, imo)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return v, nil
	}
	if err := l.rdb.Set(ctx, key, payload, l.ttl).Err(); err != nil {
		l.logger.Warn("redis set failed", zap.String("key", key), zap.Error(err))
	}
	return v, nil
}

// Invalidate drops a cached IMO.
func (l *RedisLookup) Invalidate(ctx context.Context, imo string) error {
	return l.rdb.Del(ctx, redisKeyPrefix+imo).Err()
}
