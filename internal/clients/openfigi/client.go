// Package openfigi provides a client for the OpenFIGI mapping API,
// used to resolve ISINs to ticker symbols.
package openfigi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/rmarchal/folioval/internal/common"
	"github.com/rmarchal/folioval/internal/interfaces"
)

const (
	DefaultBaseURL = "https://api.openfigi.com/v3"
	DefaultTimeout = 30 * time.Second
	// Without an API key OpenFIGI allows very few mapping calls per minute,
	// so the default limiter is deliberately conservative.
	DefaultRateLimit = 5
)

// Client implements the TickerResolver interface
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new OpenFIGI client. The API key may be empty.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("OpenFIGI API error: %s (status: %d)", e.Message, e.StatusCode)
}

// mappingRequest is one entry of the /mapping request body.
type mappingRequest struct {
	IDType  string `json:"idType"`
	IDValue string `json:"idValue"`
}

// mappingResponse is one entry of the /mapping response body.
type mappingResponse struct {
	Data []struct {
		FIGI         string `json:"figi"`
		Ticker       string `json:"ticker"`
		Name         string `json:"name"`
		ExchangeCode string `json:"exchCode"`
		SecurityType string `json:"securityType"`
	} `json:"data"`
	Warning string `json:"warning"`
	Error   string `json:"error"`
}

// ResolveISIN maps an ISIN to its primary ticker symbol.
// Returns interfaces.ErrNoMapping when the service has no match.
func (c *Client) ResolveISIN(ctx context.Context, isin string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	payload := []mappingRequest{{IDType: "ID_ISIN", IDValue: isin}}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal mapping request: %w", err)
	}

	reqURL := c.baseURL + "/mapping"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-OPENFIGI-APIKEY", c.apiKey)
	}

	c.logger.Debug().Str("isin", isin).Msg("OpenFIGI mapping request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}

	var results []mappingResponse
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(results) == 0 {
		return "", interfaces.ErrNoMapping
	}

	first := results[0]
	if first.Error != "" || len(first.Data) == 0 || first.Data[0].Ticker == "" {
		return "", interfaces.ErrNoMapping
	}

	return first.Data[0].Ticker, nil
}

// Ensure Client implements TickerResolver
var _ interfaces.TickerResolver = (*Client)(nil)
