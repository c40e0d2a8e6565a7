// Package rate fetches the euro exchange rate from the Central Bank of Russia daily feed.
package rate

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DefaultURL      = "https://www.cbr-xml-daily.ru/daily_json.js"
	DefaultCurrency = "EUR"
	DefaultTimeout  = 10 * time.Second
)

// FallbackRate is returned when the feed cannot be used
var FallbackRate = decimal.NewFromInt(100)

// Provider returns the current rate, falling back to a constant on any failure
type Provider struct {
	client   *http.Client
	url      string
	currency string
	fallback decimal.Decimal
	logger   *zap.Logger
}

// Option configures a Provider
type Option func(*Provider)

// WithURL overrides the feed URL
func WithURL(url string) Option {
	return func(p *Provider) { p.url = url }
}

// WithHTTPClient overrides the HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.client = c }
}

// WithFallback overrides the fallback rate
func WithFallback(rate decimal.Decimal) Option {
	return func(p *Provider) { p.fallback = rate }
}

// WithCurrency selects the currency code looked up in the feed
func WithCurrency(code string) Option {
	return func(p *Provider) { p.currency = code }
}

// NewProvider creates a rate provider for the CBR daily feed
func NewProvider(logger *zap.Logger, opts ...Option) *Provider {
	p := &Provider{
		client:   NewHTTPClient(DefaultTimeout),
		url:      DefaultURL,
		currency: DefaultCurrency,
		fallback: FallbackRate,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewHTTPClient returns a client whose total request time is bounded by timeout
func NewHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: timeout,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConnsPerHost:   2,
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// Rate returns the current rate or the fallback. It never fails.
func (p *Provider) Rate(ctx context.Context) decimal.Decimal {
	rate, err := p.Fetch(ctx)
	if err != nil {
		p.logger.Warn("Failed to fetch exchange rate, using fallback",
			zap.Error(err),
			zap.String("currency", p.currency),
			zap.String("fallback", p.fallback.String()),
		)
		return p.fallback
	}
	return rate
}

type dailyResponse struct {
	Date   string                `json:"Date"`
	Valute map[string]valuteItem `json:"Valute"`
}

type valuteItem struct {
	CharCode string          `json:"CharCode"`
	Nominal  int64           `json:"Nominal"`
	Value    decimal.Decimal `json:"Value"`
}

// Fetch performs a single request to the feed. The returned rate is per one unit of the currency.
func (p *Provider) Fetch(ctx context.Context) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to build rate request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to request rate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decimal.Zero, fmt.Errorf("unexpected rate response status: %s", resp.Status)
	}

	var payload dailyResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode rate response: %w", err)
	}

	item, ok := payload.Valute[p.currency]
	if !ok {
		return decimal.Zero, fmt.Errorf("currency %s missing from rate response", p.currency)
	}

	rate := item.Value
	if item.Nominal > 1 {
		rate = rate.Div(decimal.NewFromInt(item.Nominal))
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("non-positive rate %s for %s", rate, p.currency)
	}

	p.logger.Debug("Fetched exchange rate",
		zap.String("currency", p.currency),
		zap.String("rate", rate.String()),
		zap.String("date", payload.Date),
	)
	return rate, nil
}
