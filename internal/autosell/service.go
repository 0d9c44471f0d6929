package autosell

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"raydium-engine/internal/domain"
	"raydium-engine/internal/observability"
	"raydium-engine/internal/storage"
)

// Options configures a Service.
type Options struct {
	Store   storage.AutoSellStore
	Prices  PriceFeed
	Gateway Gateway

	PollInterval time.Duration // default 500ms

	Metrics *observability.Metrics
	Logger  logrus.FieldLogger
}

// Service wires the entry cache, engine, price loop and executor. Triggers
// flow from the price loop to the executor; completions flow back to the
// engine over a channel.
type Service struct {
	cache       *Cache
	guard       *Guard
	engine      *Engine
	executor    *Executor
	loop        *priceLoop
	completions chan Completion
	metrics     *observability.Metrics
	log         logrus.FieldLogger
}

// New creates a Service. Call Run to start it.
func New(opts Options) *Service {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NewMetrics("", prometheus.NewRegistry())
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	cache := NewCache(opts.Store)
	guard := NewGuard()
	engine := NewEngine(cache, guard, opts.Metrics, opts.Logger)
	completions := make(chan Completion, 64)
	executor := NewExecutor(opts.Gateway, completions, opts.Logger)

	return &Service{
		cache:       cache,
		guard:       guard,
		engine:      engine,
		executor:    executor,
		completions: completions,
		loop: &priceLoop{
			cache:    cache,
			feed:     opts.Prices,
			engine:   engine,
			executor: executor,
			interval: opts.PollInterval,
			metrics:  opts.Metrics,
			log:      opts.Logger.WithField("component", "autosell_prices"),
		},
		metrics: opts.Metrics,
		log:     opts.Logger.WithField("component", "autosell"),
	}
}

// Run loads stored entries and runs the price loop and completion handler
// until ctx is done. In-flight sells are awaited before it returns.
func (s *Service) Run(ctx context.Context) error {
	if err := s.cache.Load(ctx); err != nil {
		return err
	}
	s.metrics.AutoSellEntries.Set(float64(s.cache.Len()))
	s.log.WithField("entries", s.cache.Len()).Info("auto sell started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.loop.run(gctx)
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case c := <-s.completions:
				s.complete(gctx, c)
			}
		}
	})

	err := g.Wait()
	s.executor.Wait()
	s.log.Info("auto sell stopped")
	return err
}

func (s *Service) complete(ctx context.Context, c Completion) {
	if err := s.engine.Complete(ctx, c); err != nil {
		s.log.WithError(err).WithField("entry_id", c.Trigger.EntryID).Error("apply sell completion failed")
	}
}

// Add validates, persists and starts tracking an entry.
func (s *Service) Add(ctx context.Context, e *domain.AutoSellEntry) (int64, error) {
	id, err := s.cache.Add(ctx, e)
	if err != nil {
		return 0, err
	}
	s.metrics.AutoSellEntries.Set(float64(s.cache.Len()))
	s.log.WithFields(logrus.Fields{
		"entry_id": id,
		"token":    e.TokenAddressToSell,
		"strategy": e.Strategy,
	}).Info("auto sell entry added")
	return id, nil
}

// Remove stops tracking an entry and deletes it.
func (s *Service) Remove(ctx context.Context, id int64) error {
	if err := s.cache.Remove(ctx, id); err != nil {
		return err
	}
	s.metrics.AutoSellEntries.Set(float64(s.cache.Len()))
	return nil
}

// Entries returns copies of the tracked entries.
func (s *Service) Entries() []*domain.AutoSellEntry {
	return s.cache.Entries()
}
