// Package raylog decodes the binary ray_log records emitted by the Raydium AMM v4 program.
package raylog

import "fmt"

// Tag is the first byte of a ray_log buffer and selects the event layout.
type Tag uint8

const (
	TagInit            Tag = 0
	TagAddLiquidity    Tag = 1
	TagRemoveLiquidity Tag = 2
	TagSwapBaseIn      Tag = 3
	TagSwapBaseOut     Tag = 4
)

func (t Tag) String() string {
	switch t {
	case TagInit:
		return "init"
	case TagAddLiquidity:
		return "add_liquidity"
	case TagRemoveLiquidity:
		return "remove_liquidity"
	case TagSwapBaseIn:
		return "swap_base_in"
	case TagSwapBaseOut:
		return "swap_base_out"
	default:
		return fmt.Sprintf("tag(%d)", uint8(t))
	}
}

// Encoded sizes including the tag byte.
const (
	InitLen            = 75
	AddLiquidityLen    = 105
	RemoveLiquidityLen = 89
	SwapBaseInLen      = 57
	SwapBaseOutLen     = 57
)

// DirectionPcToCoin is the swap direction in which the user pays the quote (pc)
// leg and receives the base (coin) leg. Every other value is treated as coin to pc.
const DirectionPcToCoin = 1

// Event is one decoded ray_log record.
type Event interface {
	Tag() Tag
}

// Init is emitted when a pool is initialized.
type Init struct {
	Time         uint64 `json:"time"`
	PcDecimals   uint8  `json:"pc_decimals"`
	CoinDecimals uint8  `json:"coin_decimals"`
	PcLotSize    uint64 `json:"pc_lot_size"`
	CoinLotSize  uint64 `json:"coin_lot_size"`
	PcAmount     uint64 `json:"pc_amount"`
	CoinAmount   uint64 `json:"coin_amount"`
	Market       string `json:"market"`
}

// AddLiquidity is emitted on deposit.
type AddLiquidity struct {
	MaxCoin        uint64 `json:"max_coin"`
	MaxPc          uint64 `json:"max_pc"`
	Base           uint64 `json:"base"`
	PoolCoinBefore uint64 `json:"pool_coin_before"`
	PoolCoinAfter  uint64 `json:"pool_coin_after"`
	PoolPcBefore   uint64 `json:"pool_pc_before"`
	PoolPcAfter    uint64 `json:"pool_pc_after"`
	PoolLpBefore   uint64 `json:"pool_lp_before"`
	PoolLpAfter    uint64 `json:"pool_lp_after"`
	DeductCoin     uint64 `json:"deduct_coin"`
	DeductPc       uint64 `json:"deduct_pc"`
	MintLp         uint64 `json:"mint_lp"`
}

// RemoveLiquidity is emitted on withdrawal.
type RemoveLiquidity struct {
	WithdrawLp     uint64 `json:"withdraw_lp"`
	UserLp         uint64 `json:"user_lp"`
	PoolCoinBefore uint64 `json:"pool_coin_before"`
	PoolCoinAfter  uint64 `json:"pool_coin_after"`
	PoolPcBefore   uint64 `json:"pool_pc_before"`
	PoolPcAfter    uint64 `json:"pool_pc_after"`
	PoolLpBefore   uint64 `json:"pool_lp_before"`
	PoolLpAfter    uint64 `json:"pool_lp_after"`
	OutCoin        uint64 `json:"out_coin"`
	OutPc          uint64 `json:"out_pc"`
}

// SwapBaseIn is a swap with a fixed input amount.
type SwapBaseIn struct {
	AmountIn       uint64 `json:"amount_in"`
	MinimumOut     uint64 `json:"minimum_out"`
	Direction      uint64 `json:"direction"`
	UserSource     uint64 `json:"user_source"`
	AmountOut      uint64 `json:"amount_out"`
	PoolCoinBefore uint64 `json:"pool_coin_before"`
	PoolPcBefore   uint64 `json:"pool_pc_before"`
	PoolCoinAfter  uint64 `json:"pool_coin_after"`
	PoolPcAfter    uint64 `json:"pool_pc_after"`
}

// SwapBaseOut is a swap with a fixed output amount.
type SwapBaseOut struct {
	MaxIn          uint64 `json:"max_in"`
	AmountOut      uint64 `json:"amount_out"`
	Direction      uint64 `json:"direction"`
	UserSource     uint64 `json:"user_source"`
	DeductIn       uint64 `json:"deduct_in"`
	PoolCoinBefore uint64 `json:"pool_coin_before"`
	PoolPcBefore   uint64 `json:"pool_pc_before"`
	PoolCoinAfter  uint64 `json:"pool_coin_after"`
	PoolPcAfter    uint64 `json:"pool_pc_after"`
}

func (Init) Tag() Tag            { return TagInit }
func (AddLiquidity) Tag() Tag    { return TagAddLiquidity }
func (RemoveLiquidity) Tag() Tag { return TagRemoveLiquidity }
func (SwapBaseIn) Tag() Tag      { return TagSwapBaseIn }
func (SwapBaseOut) Tag() Tag     { return TagSwapBaseOut }

// BoughtCoin reports whether the user received the base (coin) leg.
func (s SwapBaseIn) BoughtCoin() bool { return s.Direction == DirectionPcToCoin }

// BoughtCoin reports whether the user received the base (coin) leg.
func (s SwapBaseOut) BoughtCoin() bool { return s.Direction == DirectionPcToCoin }
