package solana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// Defaults used by NewHTTPClient.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 1 * time.Second

	maxRetryDelay = 10 * time.Second
)

// HTTPClient talks JSON-RPC 2.0 to a Solana node over HTTP. Transport
// failures, 5xx and 429 responses are retried with exponential backoff;
// JSON-RPC errors are returned to the caller on the first attempt.
type HTTPClient struct {
	endpoint   string
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
	commitment string
	observe    func(method string, elapsed time.Duration)
	nextID     atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets the per-attempt HTTP timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets how many times a transient failure is retried.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets the first backoff delay. It doubles per attempt up to 10s.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithCommitment sets the commitment sent with every request.
func WithCommitment(commitment string) ClientOption {
	return func(c *HTTPClient) {
		c.commitment = commitment
	}
}

// WithLatencyHook registers a callback run once per call, retries included.
func WithLatencyHook(fn func(method string, elapsed time.Duration)) ClientOption {
	return func(c *HTTPClient) {
		c.observe = fn
	}
}

// NewHTTPClient creates a client for endpoint with confirmed commitment.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:   endpoint,
		client:     &http.Client{Timeout: DefaultTimeout},
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		commitment: "confirmed",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var (
	_ RPCClient          = (*HTTPClient)(nil)
	_ TransactionFetcher = (*HTTPClient)(nil)
	_ TransactionSender  = (*HTTPClient)(nil)
)

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// transientError marks an attempt worth repeating. wait is the server's
// Retry-After hint, zero when absent.
type transientError struct {
	err  error
	wait time.Duration
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	if c.observe != nil {
		start := time.Now()
		defer func() { c.observe(method, time.Since(start)) }()
	}

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	delay := c.retryDelay
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = min(delay*2, maxRetryDelay)
		}

		raw, err := c.post(ctx, body)
		var transient *transientError
		if errors.As(err, &transient) {
			lastErr = transient.err
			delay = max(delay, transient.wait)
			continue
		}
		if err != nil {
			return err
		}

		if result != nil && len(raw) > 0 {
			if err := json.Unmarshal(raw, result); err != nil {
				return fmt.Errorf("unmarshal %s result: %w", method, err)
			}
		}
		return nil
	}
	return fmt.Errorf("%s: max retries exceeded: %w", method, lastErr)
}

// post sends one request and returns the raw result.
func (c *HTTPClient) post(ctx context.Context, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &transientError{err: fmt.Errorf("http request: %w", err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transientError{err: fmt.Errorf("read response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &transientError{err: errors.New("rate limited (429)"), wait: retryAfter(resp.Header)}
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, &transientError{err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, data)}
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, data)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return nil, &transientError{err: fmt.Errorf("unmarshal response: %w", err)}
	}
	// slot-level conditions such as skipped slots are decided by the caller
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}
	return rpcResp.Result, nil
}

// retryAfter reads a Retry-After header given in seconds, capped at the
// maximum backoff.
func retryAfter(h http.Header) time.Duration {
	secs, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}
	return min(time.Duration(secs)*time.Second, maxRetryDelay)
}

type commitmentConfig struct {
	Commitment string `json:"commitment"`
}

type getBlockConfig struct {
	Encoding                       string `json:"encoding"`
	TransactionDetails             string `json:"transactionDetails"`
	Rewards                        bool   `json:"rewards"`
	Commitment                     string `json:"commitment"`
	MaxSupportedTransactionVersion int    `json:"maxSupportedTransactionVersion"`
}

type getTransactionConfig struct {
	Encoding                       string `json:"encoding"`
	Commitment                     string `json:"commitment"`
	MaxSupportedTransactionVersion int    `json:"maxSupportedTransactionVersion"`
}

type sendTransactionConfig struct {
	Encoding            string `json:"encoding"`
	SkipPreflight       bool   `json:"skipPreflight"`
	PreflightCommitment string `json:"preflightCommitment"`
	MaxRetries          int    `json:"maxRetries"`
}

// GetSlot returns the latest slot at the client's commitment.
func (c *HTTPClient) GetSlot(ctx context.Context) (int64, error) {
	var slot int64
	if err := c.call(ctx, "getSlot", []interface{}{commitmentConfig{c.commitment}}, &slot); err != nil {
		return 0, err
	}
	return slot, nil
}

// GetBlock fetches a block with full transaction details and log messages.
func (c *HTTPClient) GetBlock(ctx context.Context, slot int64) (*Block, error) {
	params := []interface{}{slot, getBlockConfig{
		Encoding:           "json",
		TransactionDetails: "full",
		Commitment:         c.commitment,
	}}

	var result getBlockResult
	if err := c.call(ctx, "getBlock", params, &result); err != nil {
		return nil, err
	}

	block := &Block{
		Slot:         slot,
		BlockTime:    result.BlockTime,
		Transactions: make([]Transaction, 0, len(result.Transactions)),
	}
	for _, w := range result.Transactions {
		block.Transactions = append(block.Transactions, w.toTransaction(slot, result.BlockTime))
	}
	return block, nil
}

type getBlockResult struct {
	BlockTime    *int64         `json:"blockTime"`
	Transactions []rawTxWrapper `json:"transactions"`
}

// rawTxWrapper is one getBlock transaction entry, or a getTransaction result.
type rawTxWrapper struct {
	Slot        int64            `json:"slot"`
	BlockTime   *int64           `json:"blockTime"`
	Transaction rawTx            `json:"transaction"`
	Meta        *TransactionMeta `json:"meta"`
}

type rawTx struct {
	Signatures []string            `json:"signatures"`
	Message    *TransactionMessage `json:"message"`
}

func (w rawTxWrapper) toTransaction(slot int64, blockTime *int64) Transaction {
	tx := Transaction{
		Slot:       slot,
		Signatures: w.Transaction.Signatures,
		Meta:       w.Meta,
		Message:    w.Transaction.Message,
	}
	if blockTime != nil {
		tx.BlockTime = *blockTime
	}
	if len(w.Transaction.Signatures) > 0 {
		tx.Signature = w.Transaction.Signatures[0]
	}
	return tx
}

// GetTransaction fetches a confirmed transaction. It returns nil, nil when
// the node does not know the signature.
func (c *HTTPClient) GetTransaction(ctx context.Context, signature string) (*Transaction, error) {
	params := []interface{}{signature, getTransactionConfig{
		Encoding:   "json",
		Commitment: c.commitment,
	}}

	var result *rawTxWrapper
	if err := c.call(ctx, "getTransaction", params, &result); err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	tx := result.toTransaction(result.Slot, result.BlockTime)
	if tx.Signature == "" {
		tx.Signature = signature
	}
	return &tx, nil
}

// SendTransaction submits a signed transaction and returns its signature.
// Preflight is skipped; the node rebroadcasts up to twice.
func (c *HTTPClient) SendTransaction(ctx context.Context, raw []byte) (string, error) {
	params := []interface{}{base64.StdEncoding.EncodeToString(raw), sendTransactionConfig{
		Encoding:            "base64",
		SkipPreflight:       true,
		PreflightCommitment: c.commitment,
		MaxRetries:          2,
	}}

	var signature string
	if err := c.call(ctx, "sendTransaction", params, &signature); err != nil {
		return "", err
	}
	return signature, nil
}
