package coinmarketcap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Listing is one asset from the /v1/cryptocurrency/map endpoint.
type Listing struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Slug     string `json:"slug"`
	IsActive int    `json:"is_active"`
}

// ListCryptocurrencies retrieves the full id/name/symbol listing.
func (c *Client) ListCryptocurrencies(ctx context.Context) ([]Listing, error) {
	data, err := c.get(ctx, "/v1/cryptocurrency/map", nil)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, fmt.Errorf("decoding listings: missing data")
	}

	var listings []Listing
	if err := json.Unmarshal(data, &listings); err != nil {
		return nil, fmt.Errorf("decoding listings: %w", err)
	}
	return listings, nil
}
