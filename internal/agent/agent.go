// Package agent answers free-text price questions. Every failure is turned into
// a reply string; nothing escapes as an error.
package agent

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"cryptoagent/internal/coinmarketcap"
	"cryptoagent/internal/fetcher"
	"cryptoagent/internal/resolver"
)

// Reply texts.
const (
	MsgEmpty         = "Please ask me about a cryptocurrency price!"
	MsgUnresolved    = "Sorry, I couldn't identify which cryptocurrency you're asking about. Please specify the cryptocurrency at the end of your question."
	MsgMissingAPIKey = "Error: API key is required. Please set COINMARKETCAP_API_KEY in your .env file"
	msgFetchFailed   = "Error: Failed to fetch cryptocurrency price: "
)

// Reply is the outcome of one message.
type Reply struct {
	Text   string
	Symbol string
	Quote  *fetcher.PriceQuote
	Err    error
}

// Agent ties a resolver and a fetcher together.
type Agent struct {
	resolver *resolver.Resolver
	fetcher  *fetcher.Fetcher
	log      logrus.FieldLogger
}

// New returns an Agent.
func New(r *resolver.Resolver, f *fetcher.Fetcher, log logrus.FieldLogger) *Agent {
	return &Agent{resolver: r, fetcher: f, log: log}
}

// Resolve exposes the resolver.
func (a *Agent) Resolve(query string) (string, bool) { return a.resolver.Resolve(query) }

// Fetcher exposes the price fetcher.
func (a *Agent) Fetcher() *fetcher.Fetcher { return a.fetcher }

// Handle answers content with a user-facing string.
func (a *Agent) Handle(ctx context.Context, content string) string {
	return a.Respond(ctx, content).Text
}

// Respond resolves content and fetches a price in the default currency.
func (a *Agent) Respond(ctx context.Context, content string) Reply {
	query := strings.TrimSpace(content)
	if query == "" {
		return Reply{Text: MsgEmpty}
	}

	symbol, ok := a.resolver.Resolve(query)
	if !ok {
		a.log.WithField("query", query).Debug("query not resolved")
		return Reply{Text: MsgUnresolved}
	}

	log := a.log.WithField("symbol", symbol)
	start := time.Now()
	q, err := a.fetcher.Fetch(ctx, symbol, "")
	if err != nil {
		log.WithError(err).Warn("price fetch failed")
		return Reply{Text: ErrorText(err), Symbol: symbol, Err: err}
	}
	log.WithFields(logrus.Fields{"price": q.Price.String(), "currency": q.Currency, "took": time.Since(start)}).Debug("price fetched")
	return Reply{Text: q.String(), Symbol: symbol, Quote: &q}
}

// ErrorText maps a fetch error to its reply text.
func ErrorText(err error) string {
	switch {
	case errors.Is(err, coinmarketcap.ErrMissingAPIKey):
		return MsgMissingAPIKey
	case errors.Is(err, fetcher.ErrSymbolNotFound), errors.Is(err, fetcher.ErrPriceUnavailable):
		return "Error: " + err.Error()
	default:
		return msgFetchFailed + err.Error()
	}
}
