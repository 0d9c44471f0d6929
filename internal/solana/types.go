package solana

import "strings"

// Block represents a Solana block fetched with full transaction details.
type Block struct {
	Slot         int64
	BlockTime    *int64
	Transactions []Transaction
}

// Transaction represents a Solana transaction in "json" encoding.
type Transaction struct {
	Slot       int64               `json:"slot"`
	Signature  string              `json:"signature"`
	Signatures []string            `json:"signatures"`
	BlockTime  int64               `json:"blockTime"` // Unix timestamp (seconds)
	Meta       *TransactionMeta    `json:"meta"`
	Message    *TransactionMessage `json:"message"`
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err               interface{}           `json:"err"`
	LogMessages       []string              `json:"logMessages"`
	InnerInstructions []InnerInstructionSet `json:"innerInstructions"`
	PreTokenBalances  []TokenBalance        `json:"preTokenBalances"`
	PostTokenBalances []TokenBalance        `json:"postTokenBalances"`
	LoadedAddresses   *LoadedAddresses      `json:"loadedAddresses,omitempty"`
}

// TransactionMessage contains the compiled transaction message.
type TransactionMessage struct {
	AccountKeys  []string              `json:"accountKeys"`
	Instructions []CompiledInstruction `json:"instructions"`
}

// InnerInstructionSet groups the instructions invoked by one top-level instruction.
type InnerInstructionSet struct {
	Index        int                   `json:"index"`
	Instructions []CompiledInstruction `json:"instructions"`
}

// CompiledInstruction references accounts by index into the full account key list.
// Data is base58 encoded.
type CompiledInstruction struct {
	ProgramIDIndex int    `json:"programIdIndex"`
	Accounts       []int  `json:"accounts"`
	Data           string `json:"data"`
	StackHeight    *int   `json:"stackHeight,omitempty"`
}

// TokenBalance is an SPL token account balance snapshot.
type TokenBalance struct {
	AccountIndex  int           `json:"accountIndex"`
	Mint          string        `json:"mint"`
	Owner         string        `json:"owner,omitempty"`
	ProgramID     string        `json:"programId,omitempty"`
	UITokenAmount UITokenAmount `json:"uiTokenAmount"`
}

// UITokenAmount carries the raw amount and mint decimals.
type UITokenAmount struct {
	Amount         string `json:"amount"`
	Decimals       uint8  `json:"decimals"`
	UIAmountString string `json:"uiAmountString"`
}

// LoadedAddresses lists accounts resolved from address lookup tables.
type LoadedAddresses struct {
	Writable []string `json:"writable"`
	Readonly []string `json:"readonly"`
}

// AccountKeys returns static keys followed by lookup-table writable and
// readonly keys, the order instruction and balance indices refer to.
func (tx *Transaction) AccountKeys() []string {
	if tx.Message == nil {
		return nil
	}
	keys := tx.Message.AccountKeys
	if tx.Meta == nil || tx.Meta.LoadedAddresses == nil {
		return keys
	}
	loaded := tx.Meta.LoadedAddresses
	all := make([]string, 0, len(keys)+len(loaded.Writable)+len(loaded.Readonly))
	all = append(all, keys...)
	all = append(all, loaded.Writable...)
	all = append(all, loaded.Readonly...)
	return all
}

// Signer returns the fee payer.
func (tx *Transaction) Signer() string {
	if tx.Message == nil || len(tx.Message.AccountKeys) == 0 {
		return ""
	}
	return tx.Message.AccountKeys[0]
}

// Failed reports whether the transaction executed with an error.
func (tx *Transaction) Failed() bool {
	return tx.Meta != nil && tx.Meta.Err != nil
}

// LogContains reports whether any log line contains substr.
func (tx *Transaction) LogContains(substr string) bool {
	if tx.Meta == nil {
		return false
	}
	for _, line := range tx.Meta.LogMessages {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

// SlotNotification is pushed by slotSubscribe.
type SlotNotification struct {
	Slot   int64
	Parent int64
	Root   int64
}
