// Package listener walks confirmed blocks slot by slot and hands each one to
// the classifier.
package listener

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"raydium-engine/internal/classifier"
	"raydium-engine/internal/diagnostics"
	"raydium-engine/internal/observability"
	"raydium-engine/internal/solana"
	"raydium-engine/internal/storage"
)

// Defaults.
const (
	DefaultPollInterval    = 400 * time.Millisecond
	DefaultBlockRetryDelay = 3 * time.Second
)

// BlockProcessor consumes fetched blocks.
type BlockProcessor interface {
	ProcessBlock(ctx context.Context, block *solana.Block) (classifier.BlockResult, error)
}

// Options configures a Listener.
type Options struct {
	RPC       solana.RPCClient
	Processor BlockProcessor

	// Progress persists the cursor after every finished slot. Optional.
	Progress storage.ListenerProgressStore
	// Resume starts after the last persisted slot instead of the tip.
	Resume bool
	// StartSlot overrides the starting slot when positive.
	StartSlot int64

	// Tip, when set, is consulted before fetching a slot past the known tip.
	Tip *TipTracker

	PollInterval    time.Duration // pause between slots, default 400ms
	BlockRetryDelay time.Duration // pause before refetching an unavailable block, default 3s

	Diagnostics diagnostics.Sink
	Metrics     *observability.Metrics
	Logger      logrus.FieldLogger
}

// Listener is the sequential block polling loop.
type Listener struct {
	rpc         solana.RPCClient
	processor   BlockProcessor
	progress    storage.ListenerProgressStore
	resume      bool
	startSlot   int64
	tip         *TipTracker
	poll        time.Duration
	retryDelay  time.Duration
	diagnostics diagnostics.Sink
	metrics     *observability.Metrics
	log         logrus.FieldLogger
}

// New creates a Listener.
func New(opts Options) *Listener {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.BlockRetryDelay <= 0 {
		opts.BlockRetryDelay = DefaultBlockRetryDelay
	}
	if opts.Diagnostics == nil {
		opts.Diagnostics = diagnostics.Discard
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NewMetrics("", prometheus.NewRegistry())
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Listener{
		rpc:         opts.RPC,
		processor:   opts.Processor,
		progress:    opts.Progress,
		resume:      opts.Resume,
		startSlot:   opts.StartSlot,
		tip:         opts.Tip,
		poll:        opts.PollInterval,
		retryDelay:  opts.BlockRetryDelay,
		diagnostics: opts.Diagnostics,
		metrics:     opts.Metrics,
		log:         opts.Logger.WithField("component", "listener"),
	}
}

// Run processes slots in strictly increasing order until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	slot, err := l.initialSlot(ctx)
	if err != nil {
		return err
	}
	l.log.WithField("slot", slot).Info("block listener started")

	for {
		next, wait := l.step(ctx, slot)
		slot = next

		select {
		case <-ctx.Done():
			l.log.WithField("slot", slot).Info("block listener stopped")
			return nil
		case <-time.After(wait):
		}
	}
}

// initialSlot picks the first slot: explicit start, then persisted cursor when
// resuming, then the current tip.
func (l *Listener) initialSlot(ctx context.Context) (int64, error) {
	if l.startSlot > 0 {
		return l.startSlot, nil
	}
	if l.resume && l.progress != nil {
		p, err := l.progress.GetLastProcessed(ctx)
		switch {
		case err == nil:
			return p.Slot + 1, nil
		case errors.Is(err, storage.ErrNotFound):
			l.log.Info("no saved progress, starting at tip")
		default:
			return 0, fmt.Errorf("load listener progress: %w", err)
		}
	}
	slot, err := l.rpc.GetSlot(ctx)
	if err != nil {
		return 0, fmt.Errorf("get slot: %w", err)
	}
	return slot, nil
}

// step handles one slot and returns the next slot to fetch and how long to
// pause first.
func (l *Listener) step(ctx context.Context, slot int64) (int64, time.Duration) {
	l.metrics.CurrentSlot.Set(float64(slot))
	log := l.log.WithField("slot", slot)

	if l.tip != nil {
		if latest := l.tip.Latest(); latest > 0 && slot > latest {
			l.tip.WaitFor(ctx, slot, l.retryDelay)
		}
	}

	start := time.Now()
	block, err := l.rpc.GetBlock(ctx, slot)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return slot, 0
	case solana.IsSlotSkipped(err):
		l.metrics.SlotsSkipped.Inc()
		log.Debug("slot skipped")
		return slot + 1, l.poll
	case solana.IsBlockNotAvailable(err):
		l.metrics.SlotErrors.WithLabelValues("block_not_available").Inc()
		log.Debug("block not available yet, retrying")
		// the retry delay comes on top of the regular poll interval
		return slot, l.retryDelay + l.poll
	default:
		l.metrics.SlotErrors.WithLabelValues("fetch").Inc()
		log.WithError(err).Error("get block failed, moving on")
		l.dump(ctx, slot, err)
		return slot + 1, l.poll
	}

	res, err := l.processor.ProcessBlock(ctx, block)
	if err != nil {
		l.metrics.SlotErrors.WithLabelValues("process").Inc()
		log.WithError(err).Error("block processing failed")
	}
	l.metrics.BlocksProcessed.Inc()
	l.metrics.BlockProcessingLag.Observe(time.Since(start).Seconds())
	if res.Matched > 0 {
		log.WithFields(logrus.Fields{
			"matched": res.Matched,
			"trades":  res.Trades,
			"pools":   res.Pools,
		}).Debug("block processed")
	}

	if l.progress != nil {
		if err := l.progress.SetLastProcessed(ctx, slot); err != nil {
			log.WithError(err).Warn("save listener progress failed")
		}
	}
	return slot + 1, l.poll
}

func (l *Listener) dump(ctx context.Context, slot int64, err error) {
	if dErr := l.diagnostics.Dump(ctx, diagnostics.NewRecord(diagnostics.KindSlot, slot, err, nil)); dErr != nil {
		l.log.WithError(dErr).WithField("slot", slot).Error("diagnostic dump failed")
	}
}
