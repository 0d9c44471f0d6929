package solana

import (
	"errors"
	"fmt"
)

// JSON-RPC server error codes the block listener reacts to.
const (
	CodeBlockNotAvailable          = -32004
	CodeSlotSkipped                = -32007
	CodeLongTermStorageSlotSkipped = -32009
)

// RPCError represents a JSON-RPC 2.0 error.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// IsSlotSkipped reports whether err means the slot produced no block.
func IsSlotSkipped(err error) bool {
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		return false
	}
	return rpcErr.Code == CodeSlotSkipped || rpcErr.Code == CodeLongTermStorageSlotSkipped
}

// IsBlockNotAvailable reports whether err means the block is not produced yet.
func IsBlockNotAvailable(err error) bool {
	var rpcErr *RPCError
	return errors.As(err, &rpcErr) && rpcErr.Code == CodeBlockNotAvailable
}
