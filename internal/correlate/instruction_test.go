package correlate

import (
	"testing"

	"github.com/mr-tron/base58"

	"raydium-engine/internal/solana"
	"raydium-engine/internal/solana/stub"
)

func TestDecodeInstruction_Transfer(t *testing.T) {
	b := stub.NewTx("sig", trader)
	ix := b.Transfer(userWSOL, poolWSOL, trader, 123456789)

	got := DecodeInstruction(ix, b.Build().AccountKeys())
	tr, ok := got.(Transfer)
	if !ok {
		t.Fatalf("expected Transfer, got %T", got)
	}
	if tr.Checked || tr.Amount != 123456789 {
		t.Errorf("unexpected transfer: %+v", tr)
	}
	if tr.Source != userWSOL || tr.Destination != poolWSOL || tr.Authority != trader {
		t.Errorf("unexpected accounts: %+v", tr)
	}
}

func TestDecodeInstruction_TransferChecked(t *testing.T) {
	b := stub.NewTx("sig", trader)
	ix := b.TransferChecked(userToken, tokenMint, poolToken, trader, 5000, 6)

	got := DecodeInstruction(ix, b.Build().AccountKeys())
	tr, ok := got.(Transfer)
	if !ok {
		t.Fatalf("expected Transfer, got %T", got)
	}
	if !tr.Checked || tr.Amount != 5000 || tr.Decimals != 6 || tr.Mint != tokenMint {
		t.Errorf("unexpected transfer: %+v", tr)
	}
	if tr.Destination != poolToken || tr.Authority != trader {
		t.Errorf("unexpected accounts: %+v", tr)
	}
}

func TestDecodeInstruction_Variants(t *testing.T) {
	b := stub.NewTx("sig", trader)
	tokenIdx := b.Key(stub.TokenProgram)
	raydiumIdx := b.Key(stub.RaydiumProgram)

	tests := []struct {
		name string
		ix   solana.CompiledInstruction
		want string
	}{
		{"foreign program", solana.CompiledInstruction{ProgramIDIndex: raydiumIdx, Data: "3Bxs"}, "foreign"},
		{"program index out of range", solana.CompiledInstruction{ProgramIDIndex: 99}, "unparseable"},
		{"bad base58", solana.CompiledInstruction{ProgramIDIndex: tokenIdx, Data: "0OIl"}, "unparseable"},
		{"empty data", solana.CompiledInstruction{ProgramIDIndex: tokenIdx, Data: ""}, "unparseable"},
		{"truncated amount", solana.CompiledInstruction{ProgramIDIndex: tokenIdx, Accounts: []int{0, 0, 0}, Data: base58.Encode([]byte{3, 1, 2})}, "unparseable"},
		{"missing accounts", func() solana.CompiledInstruction {
			ix := b.Transfer(userWSOL, poolWSOL, trader, 1)
			ix.Accounts = ix.Accounts[:2]
			return ix
		}(), "unparseable"},
		// opcode 7 (MintTo) is not a transfer
		{"other token instruction", solana.CompiledInstruction{ProgramIDIndex: tokenIdx, Data: "8"}, "foreign"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var kind string
			switch DecodeInstruction(tt.ix, b.Build().AccountKeys()).(type) {
			case Transfer:
				kind = "transfer"
			case Foreign:
				kind = "foreign"
			case Unparseable:
				kind = "unparseable"
			}
			if kind != tt.want {
				t.Errorf("got %s, want %s", kind, tt.want)
			}
		})
	}
}
