// Package coingecko fetches market data from the CoinGecko API.
//
// Records are validated at the boundary: a record missing a required field is logged
// and dropped rather than propagated.
package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/etnz/cryptovault"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// DefaultBaseURL is the public CoinGecko API.
const DefaultBaseURL = "https://api.coingecko.com/api/v3"

const apiKeyHeader = "x-cg-demo-api-key"

var errNotFound = errors.New("not found")

// Options configure a Client.
type Options struct {
	BaseURL   string            // DefaultBaseURL when empty
	APIKey    string            // optional demo API key
	CacheTTL  time.Duration     // responses are cached that long, 0 disables the cache
	Transport http.RoundTripper // http.DefaultTransport when nil
	Timeout   time.Duration     // 10s when 0
	Logger    *zap.Logger
}

// Client is a CoinGecko API client. It implements cryptovault.MarketSource.
type Client struct {
	base     string
	apiKey   string
	http     *http.Client
	cache    *memCache
	log      *zap.Logger
	validate *validator.Validate
}

var _ cryptovault.MarketSource = (*Client)(nil)

// New returns a client configured by opts.
func New(opts Options) (*Client, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	base := strings.TrimSuffix(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid coingecko url: %w", err)
	}
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		base:     base,
		apiKey:   opts.APIKey,
		log:      log,
		validate: validator.New(),
	}
	if opts.CacheTTL > 0 {
		cache, err := newMemCache(transport, opts.CacheTTL, log)
		if err != nil {
			return nil, fmt.Errorf("cannot create response cache: %w", err)
		}
		c.cache = cache
		transport = cache
	}
	c.http = &http.Client{Transport: transport, Timeout: timeout}
	return c, nil
}

// Close releases the response cache.
func (c *Client) Close() {
	if c.cache != nil {
		c.cache.Close()
	}
}

// Markets returns the 100 largest coins by market cap, quoted in currency.
func (c *Client) Markets(ctx context.Context, currency string) ([]cryptovault.CoinQuote, error) {
	return c.markets(ctx, currency, "market_cap_desc", 100)
}

// Trending returns the 10 coins currently trending on CoinGecko, quoted in currency.
func (c *Client) Trending(ctx context.Context, currency string) ([]cryptovault.CoinQuote, error) {
	return c.markets(ctx, currency, "gecko_desc", 10)
}

func (c *Client) markets(ctx context.Context, currency, order string, perPage int) ([]cryptovault.CoinQuote, error) {
	q := url.Values{}
	q.Set("vs_currency", strings.ToLower(currency))
	q.Set("order", order)
	q.Set("per_page", fmt.Sprint(perPage))
	q.Set("page", "1")
	q.Set("sparkline", "false")

	var records []marketRecord
	if err := c.jget(ctx, "/coins/markets", q, &records); err != nil {
		return nil, err
	}
	return c.shape(records, strings.ToUpper(currency)), nil
}

// jget performs an HTTP GET request and unmarshals the JSON response into the provided data structure.
func (c *Client) jget(ctx context.Context, path string, query url.Values, data any) error {
	addr := c.base + path
	if len(query) > 0 {
		addr += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("cannot http GET %v%v: %w", resp.Request.URL.Host, resp.Request.URL.Path, errNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("cannot http GET %v%v: %v", resp.Request.URL.Host, resp.Request.URL.Path, resp.Status)
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(data); err != nil {
		return fmt.Errorf("cannot decode %v: %w", path, err)
	}
	return nil
}
