package overseerr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/s0up4200/watcharr/config"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultPageSize = 100
)

// Client represents an Overseerr API client
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	pageSize   int
	logger     zerolog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithPageSize sets how many requests are fetched per page
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// NewClient creates a new Overseerr client
func NewClient(cfg config.OverseerrConfig, logger zerolog.Logger, opts ...Option) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: overseerr URL is required", ErrInvalidConfig)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: overseerr API key is required", ErrInvalidConfig)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, 1),
		pageSize:   defaultPageSize,
		logger:     logger.With().Str("component", "overseerr").Logger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// doRequest performs an authenticated GET request
func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/api/v1%s", c.baseURL, endpoint)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	return body, nil
}

// Requests retrieves every movie and show request from Overseerr
func (c *Client) Requests(ctx context.Context) ([]MediaRequest, error) {
	var all []MediaRequest

	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("take", strconv.Itoa(c.pageSize))
		params.Set("skip", strconv.Itoa((page-1)*c.pageSize))
		params.Set("filter", "all")
		params.Set("sort", "added")

		body, err := c.doRequest(ctx, "/request", params)
		if err != nil {
			return nil, fmt.Errorf("failed to get requests: %w", err)
		}

		var response RequestsResponse
		if err := json.Unmarshal(body, &response); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}

		all = append(all, response.Results...)

		c.logger.Debug().
			Int("page", page).
			Int("count", len(response.Results)).
			Int("total", len(all)).
			Msg("Retrieved requests")

		if page >= response.PageInfo.Pages || len(response.Results) == 0 {
			break
		}
	}

	return all, nil
}
