// Package cache keeps a Redis snapshot of the CoinMarketCap asset listing so
// restarts do not have to download it again.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"cryptoagent/internal/coinmarketcap"
)

// DefaultKey is the Redis key holding the listing snapshot.
const DefaultKey = "cryptoagent:listing:v1"

// Lister is the upstream listing source.
type Lister interface {
	ListCryptocurrencies(ctx context.Context) ([]coinmarketcap.Listing, error)
}

// ListingCache decorates a Lister with a Redis snapshot. Redis failures are
// logged and bypassed; only upstream failures are returned.
type ListingCache struct {
	inner Lister
	rdb   *redis.Client
	ttl   time.Duration
	key   string
	log   logrus.FieldLogger
}

// NewListingCache wraps inner. A ttl <= 0 defaults to 24 hours and an empty key
// to DefaultKey.
func NewListingCache(rdb *redis.Client, ttl time.Duration, inner Lister, key string, log logrus.FieldLogger) *ListingCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if key == "" {
		key = DefaultKey
	}
	return &ListingCache{inner: inner, rdb: rdb, ttl: ttl, key: key, log: log}
}

// ListCryptocurrencies returns the cached listing or fetches and stores it.
func (c *ListingCache) ListCryptocurrencies(ctx context.Context) ([]coinmarketcap.Listing, error) {
	if c.rdb == nil {
		return c.inner.ListCryptocurrencies(ctx)
	}

	b, err := c.rdb.Get(ctx, c.key).Bytes()
	switch {
	case err == nil && len(b) > 0:
		var listings []coinmarketcap.Listing
		if err := json.Unmarshal(b, &listings); err == nil && len(listings) > 0 {
			c.log.WithFields(logrus.Fields{"key": c.key, "assets": len(listings)}).Debug("listing served from cache")
			return listings, nil
		}
		c.log.WithField("key", c.key).Warn("discarding unreadable listing snapshot")
	case err != nil && !errors.Is(err, redis.Nil):
		c.log.WithError(err).Warn("listing cache read failed")
	}

	listings, err := c.inner.ListCryptocurrencies(ctx)
	if err != nil {
		return nil, err
	}
	if len(listings) == 0 {
		return listings, nil
	}

	b, err = json.Marshal(listings)
	if err != nil {
		c.log.WithError(err).Warn("listing cache encode failed")
		return listings, nil
	}
	if err := c.rdb.Set(ctx, c.key, b, c.ttl).Err(); err != nil {
		c.log.WithError(err).Warn("listing cache write failed")
	}
	return listings, nil
}

// NewRedisClient connects to addr and verifies the connection with PING.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}
