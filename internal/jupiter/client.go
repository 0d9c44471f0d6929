// Package jupiter talks to the Jupiter price and swap APIs and signs the
// swap transactions it returns.
package jupiter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"raydium-engine/internal/observability"
)

// Default endpoints and timeout.
const (
	DefaultPriceURL = "https://price.jup.ag/v6/price"
	DefaultSwapURL  = "https://quote-api.jup.ag/v6"
	DefaultTimeout  = 10 * time.Second
)

// Options configures the Jupiter clients.
type Options struct {
	PriceURL   string
	SwapURL    string
	HTTPClient *http.Client
	Metrics    *observability.Metrics
	Logger     logrus.FieldLogger
}

func (o *Options) defaults() {
	if o.PriceURL == "" {
		o.PriceURL = DefaultPriceURL
	}
	if o.SwapURL == "" {
		o.SwapURL = DefaultSwapURL
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	if o.Metrics == nil {
		o.Metrics = observability.NewMetrics("", prometheus.NewRegistry())
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
}

// APIError is a non-200 answer from a Jupiter endpoint.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("jupiter: unexpected status %d: %s", e.Status, e.Body)
}

// doJSON sends req, records its latency under api and decodes a 200 body into out.
func doJSON(client *http.Client, metrics *observability.Metrics, api string, req *http.Request, out any) error {
	start := time.Now()
	resp, err := client.Do(req)
	metrics.ObserveHTTP(api, time.Since(start))
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// newRequest builds a request bound to ctx.
func newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}
