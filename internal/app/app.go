// Package app wires the agent from configuration.
package app

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"cryptoagent/internal/agent"
	"cryptoagent/internal/cache"
	"cryptoagent/internal/coinmarketcap"
	"cryptoagent/internal/config"
	"cryptoagent/internal/directory"
	"cryptoagent/internal/fetcher"
	"cryptoagent/internal/httpx"
	"cryptoagent/internal/ratelimit"
	"cryptoagent/internal/resolver"
)

// App holds the wired agent and the resources it owns.
type App struct {
	Agent     *agent.Agent
	Directory directory.Directory

	rdb *redis.Client
}

// New builds the symbol directory once and returns a ready agent. An
// unreachable upstream or missing credential yields an empty directory.
func New(ctx context.Context, cfg config.Config, log logrus.FieldLogger) *App {
	// One limiter covers the listing and every quote call.
	httpClient := ratelimit.New(
		httpx.New(time.Duration(cfg.Server.RequestTimeoutSec)*time.Second),
		cfg.CoinMarketCap.MaxRequestsPerMinute,
		cfg.CoinMarketCap.Burst,
		time.Duration(cfg.CoinMarketCap.MinRequestIntervalSec)*time.Second,
	)
	cmc := coinmarketcap.NewClient(
		cfg.CoinMarketCap.APIKey,
		coinmarketcap.WithHTTPClient(httpClient),
		coinmarketcap.WithBaseURL(cfg.CoinMarketCap.BaseURL),
	)

	a := &App{}

	var lister directory.Lister = cmc
	// The snapshot is only consulted with a credential, so a missing key
	// still means an empty directory.
	if cmc.HasAPIKey() && cfg.Redis.Addr != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.WithError(err).WithField("addr", cfg.Redis.Addr).Warn("redis unavailable; listing cache disabled")
		} else {
			a.rdb = rdb
			ttl := time.Duration(cfg.Redis.ListingCacheTTLSec) * time.Second
			lister = cache.NewListingCache(rdb, ttl, cmc, cache.DefaultKey, log)
		}
	}

	a.Directory = directory.Build(ctx, lister, log)

	a.Agent = agent.New(resolver.New(a.Directory), fetcher.New(cmc, cfg.CoinMarketCap.Convert), log)
	return a
}

// Close releases the Redis connection, if any.
func (a *App) Close() error {
	if a.rdb == nil {
		return nil
	}
	return a.rdb.Close()
}
