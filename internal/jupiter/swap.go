package jupiter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"raydium-engine/internal/domain"
	"raydium-engine/internal/observability"
)

// Submitter signs and sends serialized transactions for a wallet.
type Submitter interface {
	// PublicKey returns the base58 address of the wallet.
	PublicKey(walletID int64) (string, error)

	// SignAndSend signs tx with the wallet key and submits it, returning the signature.
	SignAndSend(ctx context.Context, walletID int64, tx []byte) (string, error)
}

// SwapClient executes swaps through the Jupiter quote and swap endpoints.
type SwapClient struct {
	baseURL   string
	client    *http.Client
	submitter Submitter
	metrics   *observability.Metrics
	log       logrus.FieldLogger
}

// NewSwapClient creates a SwapClient that hands built transactions to submitter.
func NewSwapClient(submitter Submitter, opts Options) *SwapClient {
	opts.defaults()
	return &SwapClient{
		baseURL:   opts.SwapURL,
		client:    opts.HTTPClient,
		submitter: submitter,
		metrics:   opts.Metrics,
		log:       opts.Logger.WithField("component", "jupiter"),
	}
}

type quote struct {
	raw       json.RawMessage
	OutAmount string `json:"outAmount"`
}

type swapRequest struct {
	UserPublicKey             string          `json:"userPublicKey"`
	QuoteResponse             json.RawMessage `json:"quoteResponse"`
	WrapAndUnwrapSol          bool            `json:"wrapAndUnwrapSol"`
	DynamicComputeUnitLimit   bool            `json:"dynamicComputeUnitLimit"`
	PrioritizationFeeLamports string          `json:"prioritizationFeeLamports"`
}

type swapResponse struct {
	SwapTransaction      string `json:"swapTransaction"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}

// ExecuteSwap quotes req, builds the swap transaction and submits it.
func (c *SwapClient) ExecuteSwap(ctx context.Context, req domain.SwapRequest) (domain.SwapResult, error) {
	amount := req.Amount.Truncate(0)
	if !amount.IsPositive() {
		return domain.SwapResult{}, errors.New("jupiter: swap amount must be at least one base unit")
	}

	owner, err := c.submitter.PublicKey(req.WalletID)
	if err != nil {
		return domain.SwapResult{}, fmt.Errorf("resolve wallet %d: %w", req.WalletID, err)
	}

	q, err := c.quote(ctx, req.InputMint, req.OutputMint, amount, req.SlippageBps)
	if err != nil {
		return domain.SwapResult{}, err
	}

	tx, err := c.swapTransaction(ctx, owner, q)
	if err != nil {
		return domain.SwapResult{}, err
	}

	sig, err := c.submitter.SignAndSend(ctx, req.WalletID, tx)
	if err != nil {
		return domain.SwapResult{}, fmt.Errorf("submit swap: %w", err)
	}

	out, err := decimal.NewFromString(q.OutAmount)
	if err != nil {
		c.log.WithField("out_amount", q.OutAmount).Warn("unparseable quote output amount")
		out = decimal.Zero
	}
	c.log.WithFields(logrus.Fields{
		"signature": sig,
		"input":     req.InputMint,
		"amount":    amount.String(),
		"out":       q.OutAmount,
	}).Info("swap submitted")
	return domain.SwapResult{OutputAmount: out, Signature: sig}, nil
}

func (c *SwapClient) quote(ctx context.Context, inputMint, outputMint string, amount decimal.Decimal, slippageBps int64) (*quote, error) {
	u, err := url.Parse(c.baseURL + "/quote")
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	q := u.Query()
	q.Set("inputMint", inputMint)
	q.Set("outputMint", outputMint)
	q.Set("amount", amount.String())
	q.Set("slippageBps", strconv.FormatInt(slippageBps, 10))
	u.RawQuery = q.Encode()

	req, err := newRequest(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if err := doJSON(c.client, c.metrics, "jupiter_quote", req, &raw); err != nil {
		return nil, fmt.Errorf("get quote: %w", err)
	}
	result := &quote{raw: raw}
	if err := json.Unmarshal(raw, result); err != nil {
		return nil, fmt.Errorf("decode quote: %w", err)
	}
	return result, nil
}

func (c *SwapClient) swapTransaction(ctx context.Context, owner string, q *quote) ([]byte, error) {
	body, err := json.Marshal(swapRequest{
		UserPublicKey:             owner,
		QuoteResponse:             q.raw,
		WrapAndUnwrapSol:          true,
		DynamicComputeUnitLimit:   true,
		PrioritizationFeeLamports: "auto",
	})
	if err != nil {
		return nil, fmt.Errorf("encode swap request: %w", err)
	}

	req, err := newRequest(ctx, http.MethodPost, c.baseURL+"/swap", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var resp swapResponse
	if err := doJSON(c.client, c.metrics, "jupiter_swap", req, &resp); err != nil {
		return nil, fmt.Errorf("build swap: %w", err)
	}
	if resp.SwapTransaction == "" {
		return nil, errors.New("jupiter: empty swap transaction")
	}

	tx, err := base64.StdEncoding.DecodeString(resp.SwapTransaction)
	if err != nil {
		return nil, fmt.Errorf("decode swap transaction: %w", err)
	}
	return tx, nil
}
