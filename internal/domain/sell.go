package domain

import "github.com/shopspring/decimal"

// SwapRequest asks the swap gateway to sell a token.
type SwapRequest struct {
	InputMint   string
	OutputMint  string
	Amount      decimal.Decimal // raw base units, rounded down before quoting
	SlippageBps int64
	UserID      int64
	WalletID    int64 // selects the signing key
}

// SwapResult is a confirmed submission.
type SwapResult struct {
	OutputAmount decimal.Decimal // raw units of OutputMint quoted
	Signature    string
}
