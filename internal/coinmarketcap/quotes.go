package coinmarketcap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Asset is one entry of the quotes/latest response.
type Asset struct {
	ID     int              `json:"id"`
	Name   string           `json:"name"`
	Symbol string           `json:"symbol"`
	Quote  map[string]Quote `json:"quote"`
}

// Quote is the price of an asset in one convert currency.
// Price is invalid when the API reports null.
type Quote struct {
	Price       decimal.NullDecimal `json:"price"`
	LastUpdated *time.Time          `json:"last_updated"`
}

// LatestQuotes retrieves the latest quotes for symbols, converted to convert.
// The result is keyed by the symbol as the API returned it. A body without
// data yields an empty map, so unknown symbols read as not found.
func (c *Client) LatestQuotes(ctx context.Context, symbols []string, convert string) (map[string]Asset, error) {
	query := url.Values{}
	query.Set("symbol", strings.Join(symbols, ","))
	if convert != "" {
		query.Set("convert", convert)
	}

	data, err := c.get(ctx, "/v1/cryptocurrency/quotes/latest", query)
	if err != nil {
		return nil, err
	}

	assets := map[string]Asset{}
	if len(data) == 0 {
		return assets, nil
	}
	if err := json.Unmarshal(data, &assets); err != nil {
		return nil, fmt.Errorf("decoding quotes: %w", err)
	}
	return assets, nil
}
