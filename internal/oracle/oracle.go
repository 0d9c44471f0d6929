// Package oracle keeps a periodically refreshed SOL/USD price.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"raydium-engine/internal/domain"
	"raydium-engine/internal/fixedpoint"
	"raydium-engine/internal/observability"
)

// Defaults.
const (
	DefaultURL             = "https://api-v3.raydium.io/mint/price"
	DefaultRefreshInterval = 10 * time.Second
	DefaultRequestTimeout  = 5 * time.Second
)

// Options configures an Oracle.
type Options struct {
	URL             string
	RefreshInterval time.Duration
	RequestTimeout  time.Duration
	HTTPClient      *http.Client
	Metrics         *observability.Metrics
	Logger          logrus.FieldLogger
}

// Oracle serves the last fetched SOL price. Reads never block on the network.
type Oracle struct {
	url      string
	interval time.Duration
	client   *http.Client
	metrics  *observability.Metrics
	log      logrus.FieldLogger

	mu        sync.RWMutex
	price     fixedpoint.Decimal
	updatedAt time.Time
}

// New creates an Oracle. Call Run to start refreshing.
func New(opts Options) *Oracle {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = DefaultRefreshInterval
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.RequestTimeout}
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NewMetrics("", prometheus.NewRegistry())
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Oracle{
		url:      opts.URL,
		interval: opts.RefreshInterval,
		client:   opts.HTTPClient,
		metrics:  opts.Metrics,
		log:      opts.Logger.WithField("component", "oracle"),
	}
}

// SOLPriceUSD returns the last fetched price, zero before the first success.
func (o *Oracle) SOLPriceUSD() fixedpoint.Decimal {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.price
}

// UpdatedAt returns when the price was last refreshed.
func (o *Oracle) UpdatedAt() time.Time {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.updatedAt
}

// Run fetches the price immediately and then every refresh interval until ctx
// is cancelled. Failed refreshes keep the previous price.
func (o *Oracle) Run(ctx context.Context) error {
	o.refreshLogged(ctx)

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			o.refreshLogged(ctx)
		}
	}
}

func (o *Oracle) refreshLogged(ctx context.Context) {
	if err := o.Refresh(ctx); err != nil && ctx.Err() == nil {
		o.metrics.OracleFetchErrors.Inc()
		o.log.WithError(err).Warn("SOL price refresh failed")
	}
}

// priceResponse is the body of GET /mint/price.
type priceResponse struct {
	Success *bool                         `json:"success,omitempty"`
	Data    map[string]fixedpoint.Decimal `json:"data"`
}

// Refresh fetches the SOL price once.
func (o *Oracle) Refresh(ctx context.Context) error {
	mint := domain.WSOLMint.String()

	u, err := url.Parse(o.url)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	q := u.Query()
	q.Set("mints", mint)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := o.client.Do(req)
	o.metrics.ObserveHTTP("raydium_price", time.Since(start))
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var parsed priceResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if parsed.Success != nil && !*parsed.Success {
		return fmt.Errorf("price api reported failure")
	}
	price, ok := parsed.Data[mint]
	if !ok {
		return fmt.Errorf("no price for %s", mint)
	}
	if price.IsNegative() || price.IsZero() {
		return fmt.Errorf("invalid price %s", price)
	}

	o.mu.Lock()
	o.price = price
	o.updatedAt = time.Now()
	o.mu.Unlock()

	f, _ := price.Decimal().Float64()
	o.metrics.SOLPriceUSD.Set(f)
	o.log.WithField("price", price.String()).Debug("SOL price refreshed")
	return nil
}
