package stub

import (
	"context"
	"errors"
	"sync"

	"raydium-engine/internal/solana"
)

// ErrNotFound is returned when a transaction or block is not found.
var ErrNotFound = errors.New("not found")

// RPCClient implements solana.RPCClient for testing.
// Errors queued for a slot are returned, in order, before its block.
type RPCClient struct {
	mu           sync.Mutex
	Slot         int64
	Transactions map[string]*solana.Transaction
	Blocks       map[int64]*solana.Block
	Errors       map[int64][]error
	Calls        []int64
	Sent         [][]byte
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Transactions: make(map[string]*solana.Transaction),
		Blocks:       make(map[int64]*solana.Block),
		Errors:       make(map[int64][]error),
	}
}

// GetSlot returns the configured slot.
func (c *RPCClient) GetSlot(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Slot, nil
}

// GetBlock returns the next queued error for slot, else the stored block.
func (c *RPCClient) GetBlock(_ context.Context, slot int64) (*solana.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Calls = append(c.Calls, slot)
	if errs := c.Errors[slot]; len(errs) > 0 {
		c.Errors[slot] = errs[1:]
		return nil, errs[0]
	}
	block, ok := c.Blocks[slot]
	if !ok {
		return nil, &solana.RPCError{Code: solana.CodeBlockNotAvailable, Message: "Block not available for slot"}
	}
	return block, nil
}

// GetTransaction retrieves a transaction by signature from the stub store.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tx, ok := c.Transactions[signature]
	if !ok {
		return nil, ErrNotFound
	}
	return tx, nil
}

// SendTransaction records raw and returns a fixed signature.
func (c *RPCClient) SendTransaction(_ context.Context, raw []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Sent = append(c.Sent, raw)
	return "stub-signature", nil
}

// AddTransaction adds a transaction to the stub store.
func (c *RPCClient) AddTransaction(tx *solana.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Transactions[tx.Signature] = tx
}

// AddBlock adds a block to the stub store.
func (c *RPCClient) AddBlock(block *solana.Block) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Blocks[block.Slot] = block
}

// FailSlot queues errors to be returned for slot before its block.
func (c *RPCClient) FailSlot(slot int64, errs ...error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Errors[slot] = append(c.Errors[slot], errs...)
}

// SlotCalls returns the slots GetBlock was called with, in order.
func (c *RPCClient) SlotCalls() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int64, len(c.Calls))
	copy(out, c.Calls)
	return out
}

var _ solana.RPCClient = (*RPCClient)(nil)
var _ solana.TransactionFetcher = (*RPCClient)(nil)
var _ solana.TransactionSender = (*RPCClient)(nil)
