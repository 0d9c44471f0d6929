package domain

import "raydium-engine/internal/fixedpoint"

// PoolCreation records a new Raydium pool.
// Corresponds to token_pair_info table in PostgreSQL.
type PoolCreation struct {
	ID                     int64
	PrimaryTokenName       PrimaryToken
	InitialPrimaryAmount   fixedpoint.Decimal
	SecondaryTokenAddress  string
	InitialSecondaryAmount fixedpoint.Decimal
	Creator                string
	Timestamp              int64 // Unix seconds
	CreationTransaction    string
	DexName                string
}
