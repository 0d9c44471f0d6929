package raylog

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/mr-tron/base58"
)

// LogPrefix marks a ray_log line inside a transaction's log messages.
const LogPrefix = "Program log: ray_log:"

var (
	// ErrShortBuffer is returned when a buffer is shorter than its tag's layout.
	ErrShortBuffer = errors.New("raylog: buffer too short")
	// ErrUnknownTag is returned for a tag byte outside 0..4.
	ErrUnknownTag = errors.New("raylog: unknown tag")
	// ErrNotRayLog is returned by ParseLogLine for lines without the ray_log prefix.
	ErrNotRayLog = errors.New("raylog: not a ray_log line")
	// ErrReserveUnderflow is returned when an outflow exceeds the pre-trade reserve.
	ErrReserveUnderflow = errors.New("raylog: reserve underflow")
)

var payloadPattern = regexp.MustCompile(`ray_log: ?([A-Za-z0-9+/=]+)`)

// Payloads returns the base64 payload of every ray_log line, in log order.
func Payloads(logs []string) []string {
	var out []string
	for _, line := range logs {
		if !strings.Contains(line, LogPrefix) {
			continue
		}
		if m := payloadPattern.FindStringSubmatch(line); len(m) == 2 {
			out = append(out, m[1])
		}
	}
	return out
}

// ParseLogLine decodes a full "Program log: ray_log: <base64>" line.
func ParseLogLine(line string) (Event, error) {
	idx := strings.Index(line, LogPrefix)
	if idx < 0 {
		return nil, ErrNotRayLog
	}
	return DecodeBase64(strings.TrimSpace(line[idx+len(LogPrefix):]))
}

// DecodeBase64 decodes a base64 ray_log payload.
func DecodeBase64(payload string) (Event, error) {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("raylog: base64: %w", err)
	}
	return Decode(data)
}

// Decode decodes a raw ray_log buffer. It never returns a partially filled event.
func Decode(data []byte) (Event, error) {
	if len(data) == 0 {
		return nil, ErrShortBuffer
	}

	tag := Tag(data[0])
	need, ok := layoutLen(tag)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTag, data[0])
	}
	if len(data) < need {
		return nil, fmt.Errorf("%w: %s needs %d bytes, got %d", ErrShortBuffer, tag, need, len(data))
	}

	r := &reader{dec: bin.NewBinDecoder(data[1:need])}
	var (
		ev        Event
		settleErr error
	)
	switch tag {
	case TagInit:
		ev = r.init()
	case TagAddLiquidity:
		e := r.addLiquidity()
		settleErr = e.settle()
		ev = e
	case TagRemoveLiquidity:
		e := r.removeLiquidity()
		settleErr = e.settle()
		ev = e
	case TagSwapBaseIn:
		e := r.swapBaseIn()
		settleErr = e.settle()
		ev = e
	case TagSwapBaseOut:
		e := r.swapBaseOut()
		settleErr = e.settle()
		ev = e
	}
	if r.err != nil {
		return nil, fmt.Errorf("raylog: decode %s: %w", tag, r.err)
	}
	if settleErr != nil {
		return nil, fmt.Errorf("raylog: %s: %w", tag, settleErr)
	}
	return ev, nil
}

func layoutLen(tag Tag) (int, bool) {
	switch tag {
	case TagInit:
		return InitLen, true
	case TagAddLiquidity:
		return AddLiquidityLen, true
	case TagRemoveLiquidity:
		return RemoveLiquidityLen, true
	case TagSwapBaseIn:
		return SwapBaseInLen, true
	case TagSwapBaseOut:
		return SwapBaseOutLen, true
	default:
		return 0, false
	}
}

// reader keeps the first error and turns later reads into no-ops.
type reader struct {
	dec *bin.Decoder
	err error
}

func (r *reader) u64() uint64 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadUint64(bin.LE)
	r.err = err
	return v
}

func (r *reader) u8() uint8 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadUint8()
	r.err = err
	return v
}

// skip128 consumes an unused u128 field.
func (r *reader) skip128() {
	if r.err != nil {
		return
	}
	r.err = r.dec.SkipBytes(16)
}

func (r *reader) pubkey() string {
	if r.err != nil {
		return ""
	}
	b, err := r.dec.ReadNBytes(32)
	if err != nil {
		r.err = err
		return ""
	}
	return base58.Encode(b)
}

func (r *reader) init() Init {
	var ev Init
	ev.Time = r.u64()
	ev.PcDecimals = r.u8()
	ev.CoinDecimals = r.u8()
	ev.PcLotSize = r.u64()
	ev.CoinLotSize = r.u64()
	ev.PcAmount = r.u64()
	ev.CoinAmount = r.u64()
	ev.Market = r.pubkey()
	return ev
}

func (r *reader) addLiquidity() AddLiquidity {
	var ev AddLiquidity
	ev.MaxCoin = r.u64()
	ev.MaxPc = r.u64()
	ev.Base = r.u64()
	ev.PoolCoinBefore = r.u64()
	ev.PoolPcBefore = r.u64()
	ev.PoolLpBefore = r.u64()
	r.skip128() // calc_pnl_x
	r.skip128() // calc_pnl_y
	ev.DeductCoin = r.u64()
	ev.DeductPc = r.u64()
	ev.MintLp = r.u64()
	return ev
}

func (r *reader) removeLiquidity() RemoveLiquidity {
	var ev RemoveLiquidity
	ev.WithdrawLp = r.u64()
	ev.UserLp = r.u64()
	ev.PoolCoinBefore = r.u64()
	ev.PoolPcBefore = r.u64()
	ev.PoolLpBefore = r.u64()
	r.skip128()
	r.skip128()
	ev.OutCoin = r.u64()
	ev.OutPc = r.u64()
	return ev
}

func (r *reader) swapBaseIn() SwapBaseIn {
	var ev SwapBaseIn
	ev.AmountIn = r.u64()
	ev.MinimumOut = r.u64()
	ev.Direction = r.u64()
	ev.UserSource = r.u64()
	ev.PoolCoinBefore = r.u64()
	ev.PoolPcBefore = r.u64()
	ev.AmountOut = r.u64()
	return ev
}

func (r *reader) swapBaseOut() SwapBaseOut {
	var ev SwapBaseOut
	ev.MaxIn = r.u64()
	ev.AmountOut = r.u64()
	ev.Direction = r.u64()
	ev.UserSource = r.u64()
	ev.PoolCoinBefore = r.u64()
	ev.PoolPcBefore = r.u64()
	ev.DeductIn = r.u64()
	return ev
}
