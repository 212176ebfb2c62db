package coinmarketcap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const baseURL = "https://pro-api.coinmarketcap.com"

// ErrMissingAPIKey is returned, without touching the network, when the client
// was built without a key.
var ErrMissingAPIKey = errors.New("coinmarketcap: api key is required")

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=coinmarketcap_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a client for the CoinMarketCap Pro API.
type Client struct {
	// baseURL is the base URL for the API.
	baseURL string
	// httpClient is the HTTP client.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
	// key is the API key, sent as X-CMC_PRO_API_KEY.
	key string
}

// Option is a configuration option for the CoinMarketCap client.
type Option func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a new CoinMarketCap client. An empty key is allowed; every
// call then fails with ErrMissingAPIKey.
func NewClient(key string, options ...Option) *Client {
	var client = &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		key:        key,
	}
	client.header.Set("Accepts", "application/json")
	for _, option := range options {
		option(client)
	}
	return client
}

// HasAPIKey reports whether the client carries a credential.
func (c *Client) HasAPIKey() bool { return c.key != "" }

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Sprintf("unauthorized (%d): %s", e.StatusCode, e.Message)
	case http.StatusTooManyRequests:
		return fmt.Sprintf("rate limited: %s", e.Message)
	case http.StatusBadRequest:
		return fmt.Sprintf("bad request: %s", e.Message)
	}
	if e.Message == "" {
		return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status code: %d: %s", e.StatusCode, e.Message)
}

type status struct {
	ErrorCode    int    `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

type envelope struct {
	Status status          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

// get performs a GET on path and returns the raw "data" member of the body,
// which is nil when the body has none.
func (c *Client) get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	if c.key == "" {
		return nil, ErrMissingAPIKey
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()
	req.Header.Set("X-CMC_PRO_API_KEY", c.key)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: res.StatusCode}
		b, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		var env envelope
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code = env.Status.ErrorCode
			apiErr.Message = env.Status.ErrorMessage
		}
		return nil, apiErr
	}

	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return env.Data, nil
}
