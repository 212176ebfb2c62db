package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"cryptoagent/internal/agent"
	"cryptoagent/internal/coinmarketcap"
	"cryptoagent/internal/directory"
	"cryptoagent/internal/fetcher"
	"cryptoagent/internal/resolver"
)

type fakeSource struct {
	assets map[string]coinmarketcap.Asset
	err    error
}

func (f fakeSource) LatestQuotes(context.Context, []string, string) (map[string]coinmarketcap.Asset, error) {
	return f.assets, f.err
}

// recordingSource remembers the last request it served.
type recordingSource struct {
	fakeSource
	symbols []string
	convert string
}

func (r *recordingSource) LatestQuotes(ctx context.Context, symbols []string, convert string) (map[string]coinmarketcap.Asset, error) {
	r.symbols, r.convert = symbols, convert
	return r.fakeSource.LatestQuotes(ctx, symbols, convert)
}

func newTestServer(src fetcher.QuoteSource) http.Handler {
	log := logrus.New()
	log.SetOutput(io.Discard)
	dir := directory.FromMap(map[string]string{"bitcoin": "BTC", "btc": "BTC"})
	h := &handlers{agent: agent.New(resolver.New(dir), fetcher.New(src, "USD"), log), log: log}
	return h.handler()
}

var btc = fakeSource{assets: map[string]coinmarketcap.Asset{
	"BTC": {Name: "Bitcoin", Symbol: "BTC", Quote: map[string]coinmarketcap.Quote{
		"USD": {Price: decimal.NewNullDecimal(decimal.RequireFromString("64123.5"))},
	}},
}}

func TestMessage(t *testing.T) {
	srv := newTestServer(btc)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(`{"content": "what is the price of bitcoin"}`))
	srv.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp messageResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "The current price of Bitcoin (BTC) is 64,123.50000000 USD", resp.Reply)
	require.Equal(t, "BTC", resp.Symbol)
	_, err := uuid.Parse(resp.RequestID)
	require.NoError(t, err)
	require.Equal(t, resp.RequestID, rr.Header().Get("X-Request-ID"))
}

func TestMessage_ErrorsAreReplies(t *testing.T) {
	srv := newTestServer(fakeSource{err: errors.New("boom")})

	for content, want := range map[string]string{
		"":                "Please ask me about a cryptocurrency price!",
		"price of dogs":   agent.MsgUnresolved,
		"how much is BTC": "Error: Failed to fetch cryptocurrency price: boom",
	} {
		rr := httptest.NewRecorder()
		body, _ := json.Marshal(messageBody{Content: content})
		srv.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(string(body))))

		require.Equal(t, http.StatusOK, rr.Code)
		var resp messageResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.Equal(t, want, resp.Reply)
	}
}

func TestMessage_BadRequests(t *testing.T) {
	srv := newTestServer(btc)

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/messages", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	rr = httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(`{"text": "btc"}`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestQuote(t *testing.T) {
	srv := newTestServer(btc)

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/quotes?symbol=btc", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp quoteResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "BTC", resp.Quote.Symbol)
	require.True(t, decimal.RequireFromString("64123.5").Equal(resp.Quote.Price))
	require.Equal(t, "The current price of Bitcoin (BTC) is 64,123.50000000 USD", resp.Formatted)
}

func TestQuote_Statuses(t *testing.T) {
	tests := []struct {
		name   string
		src    fetcher.QuoteSource
		url    string
		status int
	}{
		{name: "missing symbol", src: btc, url: "/api/quotes", status: http.StatusBadRequest},
		{name: "not found", src: btc, url: "/api/quotes?symbol=ETH", status: http.StatusNotFound},
		{name: "no credential", src: coinmarketcap.NewClient(""), url: "/api/quotes?symbol=BTC", status: http.StatusServiceUnavailable},
		{name: "upstream failure", src: fakeSource{err: errors.New("boom")}, url: "/api/quotes?symbol=BTC", status: http.StatusBadGateway},
		{name: "convert missing target", src: btc, url: "/api/convert?base=BTC", status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			newTestServer(tt.src).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.url, nil))
			require.Equal(t, tt.status, rr.Code, rr.Body.String())
		})
	}
}

func TestResolve(t *testing.T) {
	srv := newTestServer(btc)

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/resolve?q=tell+me+about+bitcoin", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp resolveResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.True(t, resp.Found)
	require.Equal(t, "BTC", resp.Symbol)
}

func TestConvert(t *testing.T) {
	src := &recordingSource{fakeSource: fakeSource{assets: map[string]coinmarketcap.Asset{
		"BTC": {Name: "Bitcoin", Symbol: "BTC", Quote: map[string]coinmarketcap.Quote{
			"ETH": {Price: decimal.NewNullDecimal(decimal.RequireFromString("21.0345"))},
		}},
	}}}
	srv := newTestServer(src)

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/convert?base=btc&target=eth", nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Equal(t, []string{"BTC"}, src.symbols)
	require.Equal(t, "ETH", src.convert)

	var resp quoteResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "ETH", resp.Quote.Currency)
	require.Equal(t, "The current price of Bitcoin (BTC) is 21.03450000 ETH", resp.Formatted)
	require.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(btc)

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/api/messages", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestMessage_BodyTooLarge(t *testing.T) {
	srv := newTestServer(btc)

	body := `{"content": "` + strings.Repeat("a", maxMessageBody) + `"}`
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(body)))
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestRecoverPanic(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	h := withRequestID(recoverPanic(log, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/quotes", nil))
	require.Equal(t, http.StatusInternalServerError, rr.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, rr.Header().Get("X-Request-ID"), resp.RequestID)
}
