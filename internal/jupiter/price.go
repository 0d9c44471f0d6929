package jupiter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"raydium-engine/internal/domain"
	"raydium-engine/internal/observability"
)

// PriceClient fetches token prices quoted in WSOL.
type PriceClient struct {
	url     string
	vsToken string
	client  *http.Client
	metrics *observability.Metrics
}

// NewPriceClient creates a PriceClient.
func NewPriceClient(opts Options) *PriceClient {
	opts.defaults()
	return &PriceClient{
		url:     opts.PriceURL,
		vsToken: domain.WSOLMint.String(),
		client:  opts.HTTPClient,
		metrics: opts.Metrics,
	}
}

type priceEntry struct {
	ID    string          `json:"id"`
	Price decimal.Decimal `json:"price"`
}

type priceResponse struct {
	Data map[string]*priceEntry `json:"data"`
}

// GetPrices returns the SOL price of each mint Jupiter knows. Unknown mints
// are left out of the result.
func (c *PriceClient) GetPrices(ctx context.Context, mints []string) (map[string]decimal.Decimal, error) {
	if len(mints) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	u, err := url.Parse(c.url)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	q := u.Query()
	q.Set("ids", strings.Join(mints, ","))
	q.Set("vsToken", c.vsToken)
	u.RawQuery = q.Encode()

	req, err := newRequest(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	var parsed priceResponse
	if err := doJSON(c.client, c.metrics, "jupiter_price", req, &parsed); err != nil {
		return nil, fmt.Errorf("get prices: %w", err)
	}

	prices := make(map[string]decimal.Decimal, len(parsed.Data))
	for mint, entry := range parsed.Data {
		if entry == nil {
			continue
		}
		prices[mint] = entry.Price
	}
	return prices, nil
}
