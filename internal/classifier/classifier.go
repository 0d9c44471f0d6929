// Package classifier turns Raydium ray_log events into priced trade records.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"raydium-engine/internal/correlate"
	"raydium-engine/internal/diagnostics"
	"raydium-engine/internal/domain"
	"raydium-engine/internal/fixedpoint"
	"raydium-engine/internal/observability"
	"raydium-engine/internal/raylog"
	"raydium-engine/internal/solana"
	"raydium-engine/internal/storage"
)

var (
	// ErrUnclassifiable is returned when neither or both legs are primary tokens.
	ErrUnclassifiable = errors.New("classifier: unclassifiable")
	// ErrSanityThreshold is returned when the secondary amount is implausibly large.
	ErrSanityThreshold = errors.New("classifier: secondary amount above sanity threshold")
)

// SanityThreshold is the largest secondary token amount accepted.
var SanityThreshold = fixedpoint.FromUint64(1_000_000_000_000)

// PriceSource provides the current SOL price in USD.
type PriceSource interface {
	SOLPriceUSD() fixedpoint.Decimal
}

// Options configures a Classifier.
type Options struct {
	Trades      storage.TradeStore
	Pools       storage.PoolCreationStore
	Diagnostics diagnostics.Sink
	Oracle      PriceSource
	Correlator  *correlate.Correlator
	Metrics     *observability.Metrics
	Logger      logrus.FieldLogger
}

// Classifier decodes, correlates and prices Raydium transactions.
type Classifier struct {
	trades      storage.TradeStore
	pools       storage.PoolCreationStore
	diagnostics diagnostics.Sink
	oracle      PriceSource
	correlator  *correlate.Correlator
	metrics     *observability.Metrics
	log         logrus.FieldLogger
}

// New creates a Classifier.
func New(opts Options) *Classifier {
	if opts.Diagnostics == nil {
		opts.Diagnostics = diagnostics.Discard
	}
	if opts.Correlator == nil {
		opts.Correlator = correlate.New("")
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NewMetrics("", prometheus.NewRegistry())
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Classifier{
		trades:      opts.Trades,
		pools:       opts.Pools,
		diagnostics: opts.Diagnostics,
		oracle:      opts.Oracle,
		correlator:  opts.Correlator,
		metrics:     opts.Metrics,
		log:         opts.Logger.WithField("component", "classifier"),
	}
}

// Matches reports whether tx succeeded and carries Raydium ray_log output.
func Matches(tx *solana.Transaction) bool {
	if tx == nil || tx.Failed() {
		return false
	}
	return tx.LogContains(domain.RaydiumInvokeMarker) && tx.LogContains(domain.RaydiumLogPrefixMarker)
}

// BlockResult summarizes one processed block.
type BlockResult struct {
	Slot    int64
	Matched int // transactions carrying ray_log output
	Trades  int // trades written
	Pools   int // pool creations written
}

// ProcessBlock classifies every matching transaction of a block, records pool
// creations and writes all trades in one batch. A failed batch is dumped to the
// diagnostics sink and not retried.
func (c *Classifier) ProcessBlock(ctx context.Context, block *solana.Block) (BlockResult, error) {
	res := BlockResult{Slot: block.Slot}
	blockTime := time.Now().Unix()
	if block.BlockTime != nil {
		blockTime = *block.BlockTime
	}

	var trades []*domain.Trade
	for i := range block.Transactions {
		tx := &block.Transactions[i]
		if !Matches(tx) {
			continue
		}
		res.Matched++
		c.metrics.TransactionsMatched.Inc()

		txTrades, pools := c.ClassifyTransaction(tx, block.Slot, blockTime)
		trades = append(trades, txTrades...)
		for _, p := range pools {
			if c.insertPool(ctx, block.Slot, p) {
				res.Pools++
			}
		}
	}

	if len(trades) == 0 {
		return res, nil
	}

	start := time.Now()
	err := c.trades.InsertBulk(ctx, trades)
	c.metrics.RecordDBQuery("trades", "insert_bulk", time.Since(start), err)
	if err != nil {
		c.metrics.BatchFailures.Inc()
		c.log.WithError(err).WithFields(logrus.Fields{
			"slot":   block.Slot,
			"trades": len(trades),
		}).Error("batch insert failed")
		if dErr := c.diagnostics.Dump(ctx, diagnostics.NewRecord(diagnostics.KindBatchInsert, block.Slot, err, trades)); dErr != nil {
			c.log.WithError(dErr).WithField("slot", block.Slot).Error("diagnostic dump failed")
		}
		return res, fmt.Errorf("insert trades of slot %d: %w", block.Slot, err)
	}

	res.Trades = len(trades)
	c.metrics.TradesStored.Add(float64(len(trades)))
	return res, nil
}

func (c *Classifier) insertPool(ctx context.Context, slot int64, p *domain.PoolCreation) bool {
	if c.pools == nil {
		return false
	}
	err := c.pools.Insert(ctx, p)
	switch {
	case err == nil:
		c.metrics.PoolsCreated.Inc()
		return true
	case errors.Is(err, storage.ErrDuplicateKey):
		c.log.WithField("signature", p.CreationTransaction).Debug("pool creation already recorded")
	default:
		c.log.WithError(err).WithField("signature", p.CreationTransaction).Warn("pool creation insert failed")
		rec := diagnostics.NewRecord(diagnostics.KindPool, slot, err, p)
		rec.Signature = p.CreationTransaction
		rec.Signer = p.Creator
		if dErr := c.diagnostics.Dump(ctx, rec); dErr != nil {
			c.log.WithError(dErr).Error("diagnostic dump failed")
		}
	}
	return false
}

// ClassifyTransaction decodes every ray_log line of tx and returns the trades
// and pool creations it produced. Events that cannot be classified are logged
// and skipped.
func (c *Classifier) ClassifyTransaction(tx *solana.Transaction, slot, blockTime int64) ([]*domain.Trade, []*domain.PoolCreation) {
	var (
		trades []*domain.Trade
		pools  []*domain.PoolCreation
	)
	if tx.Meta == nil {
		return nil, nil
	}

	aggregated := tx.LogContains(domain.JupiterInvokeMarker)
	log := c.log.WithFields(logrus.Fields{"slot": slot, "signature": tx.Signature})

	for _, payload := range raylog.Payloads(tx.Meta.LogMessages) {
		ev, err := raylog.DecodeBase64(payload)
		if err != nil {
			c.metrics.RecordSkip("decode")
			log.WithError(err).Debug("ray_log decode failed")
			continue
		}
		c.metrics.RayLogsDecoded.Inc()

		trade, err := c.classifyEvent(tx, ev)
		if err != nil {
			c.metrics.RecordSkip(skipReason(err))
			log.WithError(err).WithField("event", ev.Tag().String()).Debug("event skipped")
			continue
		}

		trade.TransactionID = tx.Signature
		trade.BlockNumber = slot
		trade.Timestamp = blockTime
		trade.Signer = tx.Signer()
		trade.DexName = domain.DexRaydium
		trade.UsingAggregator = aggregated
		trades = append(trades, trade)
		c.metrics.TradesClassified.WithLabelValues(string(trade.TransactionType)).Inc()

		if trade.TransactionType == domain.TransactionInitLP {
			pools = append(pools, &domain.PoolCreation{
				PrimaryTokenName:       trade.PrimaryTokenName,
				InitialPrimaryAmount:   trade.PrimaryTokenAmount,
				SecondaryTokenAddress:  trade.SecondaryTokenAddress,
				InitialSecondaryAmount: trade.SecondaryTokenAmount,
				Creator:                trade.Signer,
				Timestamp:              blockTime,
				CreationTransaction:    tx.Signature,
				DexName:                domain.DexRaydium,
			})
		}
	}
	return trades, pools
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, correlate.ErrUnresolved):
		return "unresolved"
	case errors.Is(err, ErrSanityThreshold):
		return "sanity"
	case errors.Is(err, ErrUnclassifiable):
		return "unclassifiable"
	default:
		return "other"
	}
}

// side is one pool leg with its raw amount.
type side struct {
	leg    correlate.Leg
	amount uint64
}

func (c *Classifier) classifyEvent(tx *solana.Transaction, ev raylog.Event) (*domain.Trade, error) {
	switch e := ev.(type) {
	case raylog.SwapBaseIn:
		return c.swap(tx, e.AmountIn, e.AmountOut)
	case raylog.SwapBaseOut:
		return c.swap(tx, e.DeductIn, e.AmountOut)
	case raylog.Init:
		return c.pair(tx, e.CoinAmount, e.PcAmount, correlate.Deposit, domain.TransactionInitLP)
	case raylog.AddLiquidity:
		return c.pair(tx, e.DeductCoin, e.DeductPc, correlate.Deposit, domain.TransactionAddLiquidity)
	case raylog.RemoveLiquidity:
		return c.pair(tx, e.OutCoin, e.OutPc, correlate.Withdraw, domain.TransactionRemoveLiquidity)
	default:
		return nil, fmt.Errorf("%w: event %s", ErrUnclassifiable, ev.Tag())
	}
}

// swap prices a swap. Paying a primary token into the pool is a buy.
func (c *Classifier) swap(tx *solana.Transaction, amountIn, amountOut uint64) (*domain.Trade, error) {
	in, out, err := c.correlator.ResolveSwap(tx, amountIn)
	if err != nil {
		return nil, err
	}
	_, inPrimary := in.Primary()
	_, outPrimary := out.Primary()
	if inPrimary == outPrimary {
		return nil, fmt.Errorf("%w: swap %s -> %s", ErrUnclassifiable, in.Mint, out.Mint)
	}
	if inPrimary {
		return c.price(side{in, amountIn}, side{out, amountOut}, domain.TransactionBuy)
	}
	return c.price(side{out, amountOut}, side{in, amountIn}, domain.TransactionSell)
}

// pair prices init, deposit and withdraw events. The coin leg is checked first.
func (c *Classifier) pair(tx *solana.Transaction, coinAmount, pcAmount uint64, flow correlate.Flow, typ domain.TransactionType) (*domain.Trade, error) {
	coin, pc, err := c.correlator.ResolvePair(tx, coinAmount, pcAmount, flow)
	if err != nil {
		return nil, err
	}
	_, coinPrimary := coin.Primary()
	_, pcPrimary := pc.Primary()
	if coinPrimary == pcPrimary {
		return nil, fmt.Errorf("%w: pair %s / %s", ErrUnclassifiable, coin.Mint, pc.Mint)
	}
	if coinPrimary {
		return c.price(side{coin, coinAmount}, side{pc, pcAmount}, typ)
	}
	return c.price(side{pc, pcAmount}, side{coin, coinAmount}, typ)
}

func (c *Classifier) price(primary, secondary side, typ domain.TransactionType) (*domain.Trade, error) {
	name, _ := primary.leg.Primary()

	if secondary.amount == 0 {
		return nil, fmt.Errorf("%w: zero secondary amount", ErrUnclassifiable)
	}
	primaryAmount, err := units(primary.amount, primary.leg.Decimals)
	if err != nil {
		return nil, err
	}
	secondaryAmount, err := units(secondary.amount, secondary.leg.Decimals)
	if err != nil {
		return nil, err
	}
	if secondaryAmount.GreaterThan(SanityThreshold) {
		return nil, fmt.Errorf("%w: %s", ErrSanityThreshold, secondaryAmount)
	}

	primaryPrice := fixedpoint.FromInt64(1)
	if name == domain.PrimaryWSOL {
		primaryPrice = c.oracle.SOLPriceUSD()
		if primaryPrice.IsZero() {
			c.log.Warn("SOL price not available yet, pricing at zero")
		}
	}

	primaryValue := primaryPrice.Mul(primaryAmount)
	secondaryPrice, err := primaryValue.Div(secondaryAmount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnclassifiable, err)
	}

	value := primaryValue
	if typ.IsLiquidity() {
		value = value.Mul(fixedpoint.FromInt64(2))
	}

	return &domain.Trade{
		PrimaryTokenName:      name,
		PrimaryTokenAmount:    primaryAmount,
		PrimaryTokenPrice:     primaryPrice,
		SecondaryTokenAddress: secondary.leg.Mint,
		SecondaryTokenAmount:  secondaryAmount,
		SecondaryTokenPrice:   secondaryPrice,
		TransactionType:       typ,
		TransactionValueInUSD: value,
	}, nil
}

// units converts a raw token amount to whole tokens.
func units(raw uint64, decimals uint8) (fixedpoint.Decimal, error) {
	return fixedpoint.FromUint64(raw).Div(fixedpoint.Pow10(int(decimals)))
}
