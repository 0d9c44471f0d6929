package stub

import (
	"encoding/base64"
	"encoding/binary"

	"github.com/mr-tron/base58"

	"raydium-engine/internal/solana"
)

// Well-known keys used by fixtures.
const (
	TokenProgram     = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	RaydiumProgram   = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	RaydiumAuthority = "5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1"
	JupiterProgram   = "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"
	WSOLMint         = "So11111111111111111111111111111111111111112"
	USDCMint         = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

// TxBuilder assembles "json" encoded transactions for tests.
type TxBuilder struct {
	tx *solana.Transaction
}

// NewTx starts a transaction signed by signer.
func NewTx(signature, signer string) *TxBuilder {
	return &TxBuilder{tx: &solana.Transaction{
		Signature:  signature,
		Signatures: []string{signature},
		Message:    &solana.TransactionMessage{AccountKeys: []string{signer}},
		Meta:       &solana.TransactionMeta{},
	}}
}

// Key returns the index of key in the static account keys, appending it if new.
func (b *TxBuilder) Key(key string) int {
	for i, k := range b.tx.Message.AccountKeys {
		if k == key {
			return i
		}
	}
	b.tx.Message.AccountKeys = append(b.tx.Message.AccountKeys, key)
	return len(b.tx.Message.AccountKeys) - 1
}

// Log appends log lines.
func (b *TxBuilder) Log(lines ...string) *TxBuilder {
	b.tx.Meta.LogMessages = append(b.tx.Meta.LogMessages, lines...)
	return b
}

// RaydiumInvoke appends the Raydium invoke marker and the given ray_log lines.
func (b *TxBuilder) RaydiumInvoke(rayLogs ...string) *TxBuilder {
	b.Key(RaydiumProgram)
	b.Log("Program " + RaydiumProgram + " invoke [1]")
	b.Log(rayLogs...)
	return b.Log("Program " + RaydiumProgram + " success")
}

// Inner appends an inner instruction set for top-level instruction index.
func (b *TxBuilder) Inner(index int, ixs ...solana.CompiledInstruction) *TxBuilder {
	b.tx.Meta.InnerInstructions = append(b.tx.Meta.InnerInstructions, solana.InnerInstructionSet{
		Index:        index,
		Instructions: ixs,
	})
	return b
}

// Transfer builds an SPL token Transfer between accounts, registering the keys.
func (b *TxBuilder) Transfer(source, destination, authority string, amount uint64) solana.CompiledInstruction {
	data := make([]byte, 9)
	data[0] = 3
	binary.LittleEndian.PutUint64(data[1:], amount)
	return solana.CompiledInstruction{
		ProgramIDIndex: b.Key(TokenProgram),
		Accounts:       []int{b.Key(source), b.Key(destination), b.Key(authority)},
		Data:           base58.Encode(data),
	}
}

// TransferChecked builds an SPL token TransferChecked.
func (b *TxBuilder) TransferChecked(source, mint, destination, authority string, amount uint64, decimals uint8) solana.CompiledInstruction {
	data := make([]byte, 10)
	data[0] = 12
	binary.LittleEndian.PutUint64(data[1:9], amount)
	data[9] = decimals
	return solana.CompiledInstruction{
		ProgramIDIndex: b.Key(TokenProgram),
		Accounts:       []int{b.Key(source), b.Key(mint), b.Key(destination), b.Key(authority)},
		Data:           base58.Encode(data),
	}
}

// Balance records a post token balance for account.
func (b *TxBuilder) Balance(account, mint string, decimals uint8) *TxBuilder {
	b.tx.Meta.PostTokenBalances = append(b.tx.Meta.PostTokenBalances, solana.TokenBalance{
		AccountIndex:  b.Key(account),
		Mint:          mint,
		UITokenAmount: solana.UITokenAmount{Decimals: decimals},
	})
	return b
}

// OwnedBalance registers a post balance for a token account held by owner.
func (b *TxBuilder) OwnedBalance(account, mint, owner string, decimals uint8) *TxBuilder {
	b.Balance(account, mint, decimals)
	b.tx.Meta.PostTokenBalances[len(b.tx.Meta.PostTokenBalances)-1].Owner = owner
	return b
}

// Failed marks the transaction as failed.
func (b *TxBuilder) Failed() *TxBuilder {
	b.tx.Meta.Err = map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}
	return b
}

// Build returns the transaction.
func (b *TxBuilder) Build() *solana.Transaction {
	return b.tx
}

// RayLog returns a "Program log: ray_log:" line for a raw buffer.
func RayLog(data []byte) string {
	return "Program log: ray_log: " + base64.StdEncoding.EncodeToString(data)
}

// SwapBaseInLog encodes a SwapBaseIn ray_log line.
func SwapBaseInLog(amountIn, minOut, direction, poolCoin, poolPc, amountOut uint64) string {
	return RayLog(fields(3, amountIn, minOut, direction, 0, poolCoin, poolPc, amountOut))
}

// SwapBaseOutLog encodes a SwapBaseOut ray_log line.
func SwapBaseOutLog(maxIn, amountOut, direction, poolCoin, poolPc, deductIn uint64) string {
	return RayLog(fields(4, maxIn, amountOut, direction, 0, poolCoin, poolPc, deductIn))
}

// InitLog encodes an Init ray_log line with a zero market.
func InitLog(pcDecimals, coinDecimals uint8, pcAmount, coinAmount uint64) string {
	buf := make([]byte, 75)
	buf[9] = pcDecimals
	buf[10] = coinDecimals
	binary.LittleEndian.PutUint64(buf[27:], pcAmount)
	binary.LittleEndian.PutUint64(buf[35:], coinAmount)
	return RayLog(buf)
}

// AddLiquidityLog encodes an AddLiquidity ray_log line.
func AddLiquidityLog(poolCoin, poolPc, poolLp, deductCoin, deductPc, mintLp uint64) string {
	buf := make([]byte, 105)
	buf[0] = 1
	binary.LittleEndian.PutUint64(buf[25:], poolCoin)
	binary.LittleEndian.PutUint64(buf[33:], poolPc)
	binary.LittleEndian.PutUint64(buf[41:], poolLp)
	binary.LittleEndian.PutUint64(buf[81:], deductCoin)
	binary.LittleEndian.PutUint64(buf[89:], deductPc)
	binary.LittleEndian.PutUint64(buf[97:], mintLp)
	return RayLog(buf)
}

// RemoveLiquidityLog encodes a RemoveLiquidity ray_log line.
func RemoveLiquidityLog(withdrawLp, poolCoin, poolPc, poolLp, outCoin, outPc uint64) string {
	buf := make([]byte, 89)
	buf[0] = 2
	binary.LittleEndian.PutUint64(buf[1:], withdrawLp)
	binary.LittleEndian.PutUint64(buf[17:], poolCoin)
	binary.LittleEndian.PutUint64(buf[25:], poolPc)
	binary.LittleEndian.PutUint64(buf[33:], poolLp)
	binary.LittleEndian.PutUint64(buf[73:], outCoin)
	binary.LittleEndian.PutUint64(buf[81:], outPc)
	return RayLog(buf)
}

func fields(tag byte, vals ...uint64) []byte {
	buf := make([]byte, 1+8*len(vals))
	buf[0] = tag
	for i, v := range vals {
		binary.LittleEndian.PutUint64(buf[1+8*i:], v)
	}
	return buf
}
