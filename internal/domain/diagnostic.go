package domain

// TransactionError is an operator-visible failure tied to a transaction.
// Corresponds to dex_transactions_errors table in PostgreSQL.
type TransactionError struct {
	ID            int64
	TransactionID string
	Signer        string
	Error         string
	DexName       string
}
