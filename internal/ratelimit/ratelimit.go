// Package ratelimit paces every outbound CoinMarketCap request. The API plan
// limit is per account, so the metadata listing and the quote calls share
// one limiter. Requests wait for their turn; nothing is retried.
package ratelimit

import (
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"cryptoagent/internal/coinmarketcap"
)

// Client gates Do behind a shared limiter.
type Client struct {
	next    coinmarketcap.HTTPClient
	limiter *rate.Limiter
}

// Limit converts the configured plan settings into a limit and burst.
// rpm > 0 wins over minInterval; zero for both means unlimited.
func Limit(rpm, burst int, minInterval time.Duration) (rate.Limit, int) {
	switch {
	case rpm > 0:
		return rate.Limit(float64(rpm) / 60), max(burst, 1)
	case minInterval > 0:
		return rate.Every(minInterval), 1
	default:
		return rate.Inf, 0
	}
}

// New wraps next. When the settings leave the plan unlimited, next is
// returned as is.
func New(next coinmarketcap.HTTPClient, rpm, burst int, minInterval time.Duration) coinmarketcap.HTTPClient {
	limit, b := Limit(rpm, burst, minInterval)
	if limit == rate.Inf {
		return next
	}
	return &Client{next: next, limiter: rate.NewLimiter(limit, b)}
}

// Do waits for a token, bounded by the request's context, then sends req.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("waiting for rate limit: %w", err)
	}
	return c.next.Do(req)
}
