// Package fetcher looks up the latest price of a resolved symbol.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"cryptoagent/internal/coinmarketcap"
)

// DefaultCurrency is used when no convert currency is given.
const DefaultCurrency = "USD"

var (
	// ErrSymbolNotFound matches a NotFoundError.
	ErrSymbolNotFound = errors.New("symbol not found")
	// ErrPriceUnavailable is returned when the asset is listed but carries no
	// price in the requested currency.
	ErrPriceUnavailable = errors.New("price unavailable")
)

// NotFoundError reports that the quotes response had no entry for Symbol.
type NotFoundError struct {
	Symbol string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Cryptocurrency %s not found", e.Symbol)
}

// Is lets errors.Is(err, ErrSymbolNotFound) match.
func (e *NotFoundError) Is(target error) bool { return target == ErrSymbolNotFound }

// QuoteSource is the upstream quotes endpoint.
type QuoteSource interface {
	LatestQuotes(ctx context.Context, symbols []string, convert string) (map[string]coinmarketcap.Asset, error)
}

// PriceQuote is a single price observation. It is never stored.
type PriceQuote struct {
	Symbol     string          `json:"symbol"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Currency   string          `json:"currency"`
	ReceivedAt time.Time       `json:"received_at"`
}

// FormattedPrice renders the price with thousands separators and 8 decimals.
func (q PriceQuote) FormattedPrice() string { return FormatPrice(q.Price) }

func (q PriceQuote) String() string {
	return fmt.Sprintf("The current price of %s (%s) is %s %s", q.Name, q.Symbol, q.FormattedPrice(), q.Currency)
}

// Fetcher turns symbols into PriceQuotes.
type Fetcher struct {
	source   QuoteSource
	currency string
}

// New returns a Fetcher. An empty defaultCurrency means DefaultCurrency.
func New(source QuoteSource, defaultCurrency string) *Fetcher {
	if defaultCurrency == "" {
		defaultCurrency = DefaultCurrency
	}
	return &Fetcher{source: source, currency: strings.ToUpper(defaultCurrency)}
}

// Fetch issues one quotes call for symbol in currency (default when empty).
func (f *Fetcher) Fetch(ctx context.Context, symbol, currency string) (PriceQuote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = f.currency
	}

	assets, err := f.source.LatestQuotes(ctx, []string{symbol}, currency)
	if err != nil {
		return PriceQuote{}, err
	}

	asset, ok := assets[symbol]
	if !ok {
		return PriceQuote{}, &NotFoundError{Symbol: symbol}
	}
	q, ok := asset.Quote[currency]
	if !ok || !q.Price.Valid {
		return PriceQuote{}, fmt.Errorf("%w: %s in %s", ErrPriceUnavailable, symbol, currency)
	}

	received := time.Now().UTC()
	if q.LastUpdated != nil && !q.LastUpdated.IsZero() {
		received = q.LastUpdated.UTC()
	}
	name := asset.Name
	if name == "" {
		name = symbol
	}
	return PriceQuote{
		Symbol:     symbol,
		Name:       name,
		Price:      q.Price.Decimal,
		Currency:   currency,
		ReceivedAt: received,
	}, nil
}

// Convert returns the rate of base expressed in target, e.g. BTC in ETH.
func (f *Fetcher) Convert(ctx context.Context, base, target string) (PriceQuote, error) {
	if strings.TrimSpace(target) == "" {
		return PriceQuote{}, errors.New("convert: target symbol is required")
	}
	return f.Fetch(ctx, base, target)
}

// FormatPrice formats d with 8 fixed decimals and comma thousands separators.
func FormatPrice(d decimal.Decimal) string {
	s := d.StringFixed(8)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	b.WriteString(sign)
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}
