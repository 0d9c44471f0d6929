// Package autosell tracks open positions against live token prices and sells
// them through a swap gateway when a simple or grid exit strategy fires.
package autosell

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"raydium-engine/internal/domain"
	"raydium-engine/internal/observability"
)

// Trigger labels.
const (
	LabelProfit   = "profit"
	LabelLoss     = "loss"
	LabelStopLoss = SubtypeStopLoss
)

var hundred = decimal.NewFromInt(100)

// Trigger is a sell order emitted by the engine.
type Trigger struct {
	EntryID     int64
	Subtype     string // in-flight guard key
	Label       string // profit, loss, stop_loss or target_<i>
	TargetIndex int    // grid target index, -1 otherwise
	Amount      decimal.Decimal
	Price       decimal.Decimal // price that fired the trigger, SOL per token
	Entry       *domain.AutoSellEntry
}

// kind collapses target labels for metrics.
func (t Trigger) kind() string {
	if strings.HasPrefix(t.Label, "target_") {
		return "target"
	}
	return t.Label
}

// Completion is the outcome of executing a Trigger.
type Completion struct {
	Trigger   Trigger
	Signature string
	Output    decimal.Decimal // raw units received
	Err       error
}

// Engine evaluates exit strategies on each price tick and applies execution
// results. Evaluate and Complete are serialized so entry updates never interleave.
type Engine struct {
	cache   *Cache
	guard   *Guard
	metrics *observability.Metrics
	log     logrus.FieldLogger

	mu sync.Mutex
}

// NewEngine creates an Engine over cache and guard.
func NewEngine(cache *Cache, guard *Guard, metrics *observability.Metrics, logger logrus.FieldLogger) *Engine {
	if metrics == nil {
		metrics = observability.NewMetrics("", prometheus.NewRegistry())
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Engine{
		cache:   cache,
		guard:   guard,
		metrics: metrics,
		log:     logger.WithField("component", "autosell_engine"),
	}
}

// Evaluate checks every tracked entry against prices (SOL per token, keyed by
// mint) and returns the sells to execute, in entry then target order. Entries
// without a price are skipped.
func (e *Engine) Evaluate(ctx context.Context, prices map[string]decimal.Decimal) []Trigger {
	e.mu.Lock()
	defer e.mu.Unlock()

	var triggers []Trigger
	for _, entry := range e.cache.Entries() {
		price, ok := prices[entry.TokenAddressToSell]
		if !ok || !price.IsPositive() {
			e.log.WithFields(logrus.Fields{
				"entry_id": entry.ID,
				"token":    entry.TokenAddressToSell,
			}).Debug("no price for entry")
			continue
		}

		switch entry.Strategy {
		case domain.StrategySimple:
			if t, ok := e.evaluateSimple(entry, price); ok {
				triggers = append(triggers, t)
			}
		case domain.StrategyGrid:
			triggers = append(triggers, e.evaluateGrid(ctx, entry, price)...)
		}
	}

	for _, t := range triggers {
		e.metrics.SellsTriggered.WithLabelValues(t.kind()).Inc()
		e.log.WithFields(logrus.Fields{
			"entry_id": t.EntryID,
			"trigger":  t.Label,
			"amount":   t.Amount.String(),
			"price":    t.Price.String(),
		}).Info("auto sell triggered")
	}
	e.metrics.InFlightSells.Set(float64(e.guard.Len()))
	return triggers
}

func (e *Engine) evaluateSimple(entry *domain.AutoSellEntry, price decimal.Decimal) (Trigger, bool) {
	if entry.Simple == nil || e.guard.Busy(entry.ID) {
		return Trigger{}, false
	}

	initial := entry.InitialPriceExpressedInSol
	profitTrigger := initial.Mul(decimal.NewFromInt(1).Add(pct(entry.Simple.ProfitPercentage)))
	lossTrigger := initial.Mul(decimal.NewFromInt(1).Sub(pct(entry.Simple.StopLossPercentage)))

	var label string
	switch {
	case price.GreaterThanOrEqual(profitTrigger):
		label = LabelProfit
	case price.LessThanOrEqual(lossTrigger):
		label = LabelLoss
	default:
		return Trigger{}, false
	}

	if !e.guard.TryAcquire(entry.ID, SubtypeSimple) {
		return Trigger{}, false
	}
	return Trigger{
		EntryID:     entry.ID,
		Subtype:     SubtypeSimple,
		Label:       label,
		TargetIndex: -1,
		Amount:      entry.TokenAmountBought,
		Price:       price,
		Entry:       entry,
	}, true
}

func (e *Engine) evaluateGrid(ctx context.Context, entry *domain.AutoSellEntry, price decimal.Decimal) []Trigger {
	grid := entry.Grid
	if grid == nil {
		return nil
	}
	log := e.log.WithField("entry_id", entry.ID)

	// The high water mark moves before any rule so a trailing stop sees it.
	if price.GreaterThan(entry.HighestPriceExpressedInSol) {
		entry.HighestPriceExpressedInSol = price
		if err := e.cache.Update(ctx, entry); err != nil {
			log.WithError(err).Warn("persist highest price failed")
		}
	}

	// While a stop-loss is firing or in flight the targets are not evaluated:
	// the stop-loss sells the whole remainder, so a target sell would race it
	// for the same tokens.
	if e.guard.Held(entry.ID, SubtypeStopLoss) {
		return nil
	}

	var stopTrigger decimal.Decimal
	switch grid.StopLossType {
	case domain.StopLossStatic:
		stopTrigger = entry.InitialPriceExpressedInSol.Mul(decimal.NewFromInt(1).Sub(pct(grid.StaticStopLoss)))
	case domain.StopLossTrailing:
		stopTrigger = entry.HighestPriceExpressedInSol.Mul(decimal.NewFromInt(1).Sub(pct(grid.TrailingStopLoss)))
	}
	if price.LessThanOrEqual(stopTrigger) {
		remaining := entry.Remaining()
		if remaining.IsZero() || !e.guard.TryAcquire(entry.ID, SubtypeStopLoss) {
			return nil
		}
		return []Trigger{{
			EntryID:     entry.ID,
			Subtype:     SubtypeStopLoss,
			Label:       LabelStopLoss,
			TargetIndex: -1,
			Amount:      remaining,
			Price:       price,
			Entry:       entry,
		}}
	}

	var triggers []Trigger
	for i, target := range grid.ProfitTargets {
		subtype := TargetSubtype(i)
		if target.Done || e.guard.Held(entry.ID, subtype) {
			continue
		}
		targetPrice := entry.InitialPriceExpressedInSol.Mul(decimal.NewFromFloat(target.Multiplier))
		if price.LessThan(targetPrice) {
			continue
		}

		amount := entry.TokenAmountBought.Mul(pct(target.SellPercentage)).Truncate(0)
		if remaining := entry.Remaining(); amount.GreaterThan(remaining) {
			amount = remaining
		}
		if !amount.IsPositive() {
			log.WithField("target", i).Debug("target sell amount rounds to zero")
			continue
		}
		if !e.guard.TryAcquire(entry.ID, subtype) {
			continue
		}
		triggers = append(triggers, Trigger{
			EntryID:     entry.ID,
			Subtype:     subtype,
			Label:       subtype,
			TargetIndex: i,
			Amount:      amount,
			Price:       price,
			Entry:       entry,
		})
	}
	return triggers
}

// Complete applies an execution result. A failed sell only frees its guard so
// the next tick can retry. A successful simple sell or final grid sell removes
// the entry; a partial grid sell marks its target done and persists the entry.
func (e *Engine) Complete(ctx context.Context, c Completion) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	t := c.Trigger
	defer func() {
		e.guard.Release(t.EntryID, t.Subtype)
		e.metrics.InFlightSells.Set(float64(e.guard.Len()))
		e.metrics.AutoSellEntries.Set(float64(e.cache.Len()))
	}()

	log := e.log.WithFields(logrus.Fields{
		"entry_id": t.EntryID,
		"trigger":  t.Label,
	})

	if c.Err != nil {
		e.metrics.SellsCompleted.WithLabelValues("failed").Inc()
		log.WithError(c.Err).Warn("auto sell failed, will re-evaluate")
		return nil
	}
	e.metrics.SellsCompleted.WithLabelValues("success").Inc()
	log.WithFields(logrus.Fields{
		"signature": c.Signature,
		"amount":    t.Amount.String(),
		"output":    c.Output.String(),
	}).Info("auto sell executed")

	entry, ok := e.cache.Get(t.EntryID)
	if !ok {
		log.Warn("completed entry is no longer tracked")
		return nil
	}

	// The swap already happened, so the cache changes even when the store
	// rejects the write; the store catches up through Cache.Flush.
	if entry.Strategy != domain.StrategyGrid {
		return e.persistFailed(log, e.cache.Remove(ctx, entry.ID))
	}

	sold := entry.TokenAmountSold.Add(t.Amount)
	if sold.GreaterThan(entry.TokenAmountBought) {
		sold = entry.TokenAmountBought
	}
	entry.TokenAmountSold = sold

	grid := entry.Grid
	if t.TargetIndex >= 0 && t.TargetIndex < len(grid.ProfitTargets) {
		target := &grid.ProfitTargets[t.TargetIndex]
		target.Done = true
		if grid.StopLossType == domain.StopLossTrailing && target.TrailingStopLossAfter != nil {
			grid.TrailingStopLoss = *target.TrailingStopLossAfter
		}
	}

	if grid.AllDone() || t.Subtype == SubtypeStopLoss {
		log.Info("auto sell entry closed")
		return e.persistFailed(log, e.cache.Remove(ctx, entry.ID))
	}
	return e.persistFailed(log, e.cache.Update(ctx, entry))
}

func (e *Engine) persistFailed(log logrus.FieldLogger, err error) error {
	if err == nil {
		return nil
	}
	e.metrics.DBQueryErrors.WithLabelValues("auto_sell", "complete").Inc()
	log.WithError(err).Error("persist auto sell result failed, queued for retry")
	return fmt.Errorf("persist auto sell result: %w", err)
}

// pct converts a percentage to a fraction.
func pct(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Div(hundred)
}
