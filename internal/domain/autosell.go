package domain

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Strategy is the exit strategy of an auto-sell entry.
type Strategy string

// Strategy constants
const (
	StrategySimple Strategy = "simple"
	StrategyGrid   Strategy = "grid"
)

// StopLossType selects how a grid stop loss is measured.
type StopLossType string

// Stop loss types
const (
	StopLossStatic   StopLossType = "static"
	StopLossTrailing StopLossType = "trailing"
)

// ErrInvalidStrategy is returned when strategy parameters fail validation.
var ErrInvalidStrategy = errors.New("invalid auto-sell strategy")

// SimpleParams sells everything once price leaves the [loss, profit] band.
type SimpleParams struct {
	ProfitPercentage   float64 `json:"profitPercentage"`
	StopLossPercentage float64 `json:"stopLossPercentage"`
}

// ProfitTarget is one partial exit of a grid strategy.
type ProfitTarget struct {
	Multiplier            float64  `json:"multiplier"`
	SellPercentage        float64  `json:"sellPercentage"`
	Done                  bool     `json:"done"`
	TrailingStopLossAfter *float64 `json:"trailingStopLossAfter,omitempty"`
}

// GridParams sells in steps at price multiples of the entry price,
// guarded by a static or trailing stop loss.
type GridParams struct {
	StopLossType     StopLossType   `json:"stopLossType"`
	ProfitTargets    []ProfitTarget `json:"profitTargets"`
	StaticStopLoss   float64        `json:"staticStopLoss,omitempty"`
	TrailingStopLoss float64        `json:"trailingStopLoss,omitempty"`
}

// AllDone reports whether every profit target has fired.
func (g *GridParams) AllDone() bool {
	for _, t := range g.ProfitTargets {
		if !t.Done {
			return false
		}
	}
	return true
}

// AutoSellEntry is an open position tracked for automatic exit.
// Corresponds to auto_sell table in PostgreSQL.
// Token amounts are raw base units; prices are SOL per token.
type AutoSellEntry struct {
	ID                         int64
	UserID                     int64
	WalletID                   int64
	TokenAddressToSell         string
	Slippage                   decimal.Decimal // percent
	TokenAmountBought          decimal.Decimal
	TokenAmountSold            decimal.Decimal
	Strategy                   Strategy
	Simple                     *SimpleParams // set when Strategy == simple
	Grid                       *GridParams   // set when Strategy == grid
	InitialPriceExpressedInSol decimal.Decimal
	HighestPriceExpressedInSol decimal.Decimal
	CreatedAt                  int64 // Unix milliseconds
	UpdatedAt                  int64 // Unix milliseconds
}

// Remaining returns the unsold amount.
func (e *AutoSellEntry) Remaining() decimal.Decimal {
	r := e.TokenAmountBought.Sub(e.TokenAmountSold)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// Clone returns a deep copy so callers can mutate without racing the cache.
func (e *AutoSellEntry) Clone() *AutoSellEntry {
	c := *e
	if e.Simple != nil {
		s := *e.Simple
		c.Simple = &s
	}
	if e.Grid != nil {
		g := *e.Grid
		g.ProfitTargets = make([]ProfitTarget, len(e.Grid.ProfitTargets))
		copy(g.ProfitTargets, e.Grid.ProfitTargets)
		c.Grid = &g
	}
	return &c
}

// MarshalStrategyParams encodes the active strategy parameters for the strategy_params column.
func (e *AutoSellEntry) MarshalStrategyParams() ([]byte, error) {
	switch e.Strategy {
	case StrategySimple:
		return json.Marshal(e.Simple)
	case StrategyGrid:
		return json.Marshal(e.Grid)
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", ErrInvalidStrategy, e.Strategy)
	}
}

// UnmarshalStrategyParams decodes strategy_params according to e.Strategy.
func (e *AutoSellEntry) UnmarshalStrategyParams(data []byte) error {
	switch e.Strategy {
	case StrategySimple:
		var p SimpleParams
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("decode simple params: %w", err)
		}
		e.Simple, e.Grid = &p, nil
	case StrategyGrid:
		var p GridParams
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("decode grid params: %w", err)
		}
		e.Simple, e.Grid = nil, &p
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidStrategy, e.Strategy)
	}
	return nil
}

// Validate checks entry invariants before it is tracked.
func (e *AutoSellEntry) Validate() error {
	if e.TokenAddressToSell == "" {
		return fmt.Errorf("%w: empty token address", ErrInvalidStrategy)
	}
	if !e.TokenAmountBought.IsPositive() {
		return fmt.Errorf("%w: bought amount must be positive", ErrInvalidStrategy)
	}
	if e.TokenAmountSold.IsNegative() || e.TokenAmountSold.GreaterThan(e.TokenAmountBought) {
		return fmt.Errorf("%w: sold amount out of range", ErrInvalidStrategy)
	}
	if !e.InitialPriceExpressedInSol.IsPositive() {
		return fmt.Errorf("%w: initial price must be positive", ErrInvalidStrategy)
	}
	if e.Slippage.IsNegative() || e.Slippage.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%w: slippage out of range", ErrInvalidStrategy)
	}

	switch e.Strategy {
	case StrategySimple:
		if e.Simple == nil {
			return fmt.Errorf("%w: missing simple params", ErrInvalidStrategy)
		}
		if e.Simple.ProfitPercentage < 0 {
			return fmt.Errorf("%w: negative profit percentage", ErrInvalidStrategy)
		}
		if !percent(e.Simple.StopLossPercentage) {
			return fmt.Errorf("%w: stop loss must be within [0,100]", ErrInvalidStrategy)
		}
	case StrategyGrid:
		return e.Grid.validate()
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidStrategy, e.Strategy)
	}
	return nil
}

func (g *GridParams) validate() error {
	if g == nil {
		return fmt.Errorf("%w: missing grid params", ErrInvalidStrategy)
	}
	switch g.StopLossType {
	case StopLossStatic:
		if !percent(g.StaticStopLoss) {
			return fmt.Errorf("%w: static stop loss must be within [0,100]", ErrInvalidStrategy)
		}
	case StopLossTrailing:
		if !percent(g.TrailingStopLoss) {
			return fmt.Errorf("%w: trailing stop loss must be within [0,100]", ErrInvalidStrategy)
		}
	default:
		return fmt.Errorf("%w: unknown stop loss type %q", ErrInvalidStrategy, g.StopLossType)
	}

	var total float64
	for i, t := range g.ProfitTargets {
		if t.Multiplier < 1 {
			return fmt.Errorf("%w: target %d multiplier below 1", ErrInvalidStrategy, i)
		}
		if !percent(t.SellPercentage) {
			return fmt.Errorf("%w: target %d sell percentage must be within [0,100]", ErrInvalidStrategy, i)
		}
		if t.TrailingStopLossAfter != nil && !percent(*t.TrailingStopLossAfter) {
			return fmt.Errorf("%w: target %d trailing stop loss must be within [0,100]", ErrInvalidStrategy, i)
		}
		total += t.SellPercentage
	}
	if total > 100 {
		return fmt.Errorf("%w: profit targets sell %.2f%%", ErrInvalidStrategy, total)
	}
	return nil
}

func percent(v float64) bool {
	return v >= 0 && v <= 100
}
