package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"cryptoagent/internal/agent"
	"cryptoagent/internal/coinmarketcap"
	"cryptoagent/internal/fetcher"
)

// maxMessageBody caps POST /api/messages bodies.
const maxMessageBody = 64 << 10

type ctxKey struct{}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// withRequestID tags each request with a uuid, echoed in X-Request-ID.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

type handlers struct {
	agent *agent.Agent
	log   logrus.FieldLogger
}

type messageBody struct {
	Content string `json:"content"`
}

type messageResponse struct {
	RequestID string `json:"request_id"`
	Reply     string `json:"reply"`
	Symbol    string `json:"symbol,omitempty"`
}

type quoteResponse struct {
	RequestID string             `json:"request_id"`
	Quote     fetcher.PriceQuote `json:"quote"`
	Formatted string             `json:"formatted"`
}

type resolveResponse struct {
	Query  string `json:"query"`
	Symbol string `json:"symbol,omitempty"`
	Found  bool   `json:"found"`
}

type errorResponse struct {
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
}

// handler is the full middleware chain around the routes.
func (h *handlers) handler() http.Handler {
	return withCORS(withRequestID(recoverPanic(h.log, h.routes())))
}

func (h *handlers) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/api/messages", h.handleMessage)
	mux.HandleFunc("/api/quotes", h.handleQuote)
	mux.HandleFunc("/api/convert", h.handleConvert)
	mux.HandleFunc("/api/resolve", h.handleResolve)
	return mux
}

// handleMessage answers a free-text question; failures are part of the reply.
func (h *handlers) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var b messageBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&b); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	id := requestID(r.Context())
	reply := h.agent.Respond(r.Context(), b.Content)
	h.log.WithFields(logrus.Fields{"request_id": id, "symbol": reply.Symbol, "failed": reply.Err != nil}).Info("message handled")
	writeJSON(w, http.StatusOK, messageResponse{RequestID: id, Reply: reply.Text, Symbol: reply.Symbol})
}

func (h *handlers) handleQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
	if symbol == "" {
		http.Error(w, "missing symbol query param", http.StatusBadRequest)
		return
	}
	q, err := h.agent.Fetcher().Fetch(r.Context(), symbol, r.URL.Query().Get("convert"))
	h.writeQuote(w, r, q, err)
}

func (h *handlers) handleConvert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	base := strings.TrimSpace(r.URL.Query().Get("base"))
	target := strings.TrimSpace(r.URL.Query().Get("target"))
	if base == "" || target == "" {
		http.Error(w, "base and target query params are required", http.StatusBadRequest)
		return
	}
	q, err := h.agent.Fetcher().Convert(r.Context(), base, target)
	h.writeQuote(w, r, q, err)
}

func (h *handlers) handleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	query := r.URL.Query().Get("q")
	symbol, ok := h.agent.Resolve(query)
	writeJSON(w, http.StatusOK, resolveResponse{Query: query, Symbol: symbol, Found: ok})
}

func (h *handlers) writeQuote(w http.ResponseWriter, r *http.Request, q fetcher.PriceQuote, err error) {
	id := requestID(r.Context())
	if err != nil {
		status := statusFor(err)
		h.log.WithError(err).WithFields(logrus.Fields{"request_id": id, "status": status}).Warn("quote failed")
		writeJSON(w, status, errorResponse{RequestID: id, Error: agent.ErrorText(err)})
		return
	}
	writeJSON(w, http.StatusOK, quoteResponse{RequestID: id, Quote: q, Formatted: q.String()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, coinmarketcap.ErrMissingAPIKey):
		return http.StatusServiceUnavailable
	case errors.Is(err, fetcher.ErrSymbolNotFound), errors.Is(err, fetcher.ErrPriceUnavailable):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
