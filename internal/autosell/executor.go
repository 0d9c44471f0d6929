package autosell

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"raydium-engine/internal/domain"
)

// Gateway executes swaps. Implementations bound their own latency; the
// executor waits for every call to return.
type Gateway interface {
	ExecuteSwap(ctx context.Context, req domain.SwapRequest) (domain.SwapResult, error)
}

// Executor runs triggered sells asynchronously and reports each outcome on
// the completions channel.
type Executor struct {
	gateway     Gateway
	completions chan<- Completion
	log         logrus.FieldLogger

	wg sync.WaitGroup
}

// NewExecutor creates an Executor.
func NewExecutor(gateway Gateway, completions chan<- Completion, logger logrus.FieldLogger) *Executor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Executor{
		gateway:     gateway,
		completions: completions,
		log:         logger.WithField("component", "autosell_executor"),
	}
}

// Dispatch starts the sell for t and returns immediately.
func (x *Executor) Dispatch(ctx context.Context, t Trigger) {
	x.wg.Add(1)
	go func() {
		defer x.wg.Done()

		req := SwapRequestFor(t)
		x.log.WithFields(logrus.Fields{
			"entry_id": t.EntryID,
			"user_id":  req.UserID,
			"trigger":  t.Label,
			"amount":   req.Amount.String(),
		}).Info("executing auto sell")

		res, err := x.gateway.ExecuteSwap(ctx, req)
		c := Completion{Trigger: t, Err: err, Signature: res.Signature, Output: res.OutputAmount}

		select {
		case x.completions <- c:
		case <-ctx.Done():
			x.log.WithField("entry_id", t.EntryID).Warn("shutdown before sell completion was applied")
		}
	}()
}

// Wait blocks until every dispatched sell has reported.
func (x *Executor) Wait() {
	x.wg.Wait()
}

// SwapRequestFor builds the token to WSOL sell order of t. Slippage is stored
// in percent and sent in basis points.
func SwapRequestFor(t Trigger) domain.SwapRequest {
	return domain.SwapRequest{
		InputMint:   t.Entry.TokenAddressToSell,
		OutputMint:  domain.WSOLMint.String(),
		Amount:      t.Amount.Truncate(0),
		SlippageBps: t.Entry.Slippage.Mul(hundred).IntPart(),
		UserID:      t.Entry.UserID,
		WalletID:    t.Entry.WalletID,
	}
}
