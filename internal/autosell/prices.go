package autosell

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"raydium-engine/internal/observability"
)

// DefaultPollInterval is the price tick period.
const DefaultPollInterval = 500 * time.Millisecond

// PriceFeed returns token prices in SOL keyed by mint. Mints without a quote
// are absent from the result.
type PriceFeed interface {
	GetPrices(ctx context.Context, mints []string) (map[string]decimal.Decimal, error)
}

// priceLoop polls prices for tracked tokens, evaluates the engine and hands
// triggers to the executor.
type priceLoop struct {
	cache    *Cache
	feed     PriceFeed
	engine   *Engine
	executor *Executor
	interval time.Duration
	metrics  *observability.Metrics
	log      logrus.FieldLogger
}

func (p *priceLoop) run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *priceLoop) tick(ctx context.Context) {
	if p.cache.Unsynced() > 0 {
		if err := p.cache.Flush(ctx); err != nil {
			p.log.WithError(err).Warn("auto sell store still out of sync")
		}
	}

	mints := p.cache.TokenAddresses()
	if mints == nil {
		return
	}

	prices, err := p.feed.GetPrices(ctx, mints)
	if err != nil {
		if ctx.Err() == nil {
			p.metrics.PriceFetchErrors.Inc()
			p.log.WithError(err).Warn("price poll failed")
		}
		return
	}

	for _, t := range p.engine.Evaluate(ctx, prices) {
		p.executor.Dispatch(ctx, t)
	}
}
