package solana

import "context"

// RPCClient defines the Solana RPC HTTP calls used by the block listener.
type RPCClient interface {
	// GetSlot retrieves the current confirmed slot.
	GetSlot(ctx context.Context) (int64, error)

	// GetBlock retrieves a block with full transaction details.
	GetBlock(ctx context.Context, slot int64) (*Block, error)
}

// TransactionFetcher retrieves single transactions by signature.
type TransactionFetcher interface {
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)
}

// TransactionSender submits signed, serialized transactions.
type TransactionSender interface {
	SendTransaction(ctx context.Context, raw []byte) (string, error)
}
