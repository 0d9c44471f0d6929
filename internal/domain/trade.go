package domain

import "raydium-engine/internal/fixedpoint"

// TransactionType classifies a decoded pool mutation.
type TransactionType string

// Transaction type constants
const (
	TransactionBuy             TransactionType = "buy"
	TransactionSell            TransactionType = "sell"
	TransactionAddLiquidity    TransactionType = "add_liquidity"
	TransactionRemoveLiquidity TransactionType = "remove_liquidity"
	TransactionInitLP          TransactionType = "init_lp"
)

// IsLiquidity reports whether both pool legs move in the same direction.
func (t TransactionType) IsLiquidity() bool {
	return t == TransactionAddLiquidity || t == TransactionRemoveLiquidity
}

// Trade is a normalized Raydium pool event priced in USD.
// Corresponds to dex_transactions table in PostgreSQL.
// Amounts are decimal-adjusted, prices are USD per token.
type Trade struct {
	ID                    int64        // SERIAL primary key, 0 until stored
	TransactionID         string       // transaction signature
	BlockNumber           int64        // slot
	Timestamp             int64        // block time, Unix seconds
	Signer                string       // fee payer
	PrimaryTokenName      PrimaryToken // WSOL | USDC
	PrimaryTokenAmount    fixedpoint.Decimal
	PrimaryTokenPrice     fixedpoint.Decimal
	SecondaryTokenAddress string // mint of the traded token
	SecondaryTokenAmount  fixedpoint.Decimal
	SecondaryTokenPrice   fixedpoint.Decimal
	TransactionType       TransactionType
	TransactionValueInUSD fixedpoint.Decimal
	DexName               string
	UsingAggregator       bool // routed through Jupiter
}

// StoredScale is the number of fractional digits kept by storage.
const StoredScale = 8
