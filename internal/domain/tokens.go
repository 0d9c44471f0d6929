package domain

import (
	"github.com/gagliardetto/solana-go"
)

// Well-known program and mint addresses.
var (
	// RaydiumAMMProgram is the Raydium liquidity pool v4 program.
	RaydiumAMMProgram = solana.MustPublicKeyFromBase58("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")

	// RaydiumAuthority is the pool authority PDA that signs vault outflows.
	RaydiumAuthority = solana.MustPublicKeyFromBase58("5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1")

	// JupiterAggregator is the Jupiter v6 program.
	JupiterAggregator = solana.MustPublicKeyFromBase58("JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4")

	// WSOLMint is wrapped SOL.
	WSOLMint = solana.SolMint

	// USDCMint is Circle USDC.
	USDCMint = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
)

// Log markers emitted by the Raydium program.
var (
	RaydiumInvokeMarker    = "Program " + RaydiumAMMProgram.String() + " invoke"
	JupiterInvokeMarker    = "Program " + JupiterAggregator.String() + " invoke"
	RaydiumLogPrefixMarker = "Program log: ray_log:"
)

// DexRaydium is the only DEX name written to storage.
const DexRaydium = "Raydium"

// PrimaryToken names a reference token that trades are priced against.
type PrimaryToken string

// Primary token names
const (
	PrimaryWSOL PrimaryToken = "WSOL"
	PrimaryUSDC PrimaryToken = "USDC"
)

// PrimaryTokenName maps a mint to its primary token name.
// ok is false for any other mint.
func PrimaryTokenName(mint string) (PrimaryToken, bool) {
	switch mint {
	case WSOLMint.String():
		return PrimaryWSOL, true
	case USDCMint.String():
		return PrimaryUSDC, true
	default:
		return "", false
	}
}
