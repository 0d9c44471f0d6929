package correlate

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"

	"raydium-engine/internal/solana"
)

// SPL token instruction opcodes used by pool vault movements.
const (
	opTransfer        = 3
	opTransferChecked = 12
)

// Instruction is a decoded inner instruction.
// It is one of Transfer, Foreign or Unparseable.
type Instruction interface {
	instruction()
}

// Transfer is an SPL token Transfer or TransferChecked.
type Transfer struct {
	Checked          bool
	Amount           uint64
	Source           string
	SourceIndex      int
	Destination      string
	DestinationIndex int
	Authority        string
	Mint             string // TransferChecked only
	Decimals         uint8  // TransferChecked only
}

// Foreign is any instruction that is not a token transfer.
type Foreign struct {
	ProgramID string
}

// Unparseable is a token program instruction whose data or accounts are malformed.
type Unparseable struct {
	ProgramID string
	Reason    string
}

func (Transfer) instruction()    {}
func (Foreign) instruction()     {}
func (Unparseable) instruction() {}

// IsTokenProgram reports whether programID is SPL Token or Token-2022.
func IsTokenProgram(programID string) bool {
	return programID == solanago.TokenProgramID.String() || programID == solanago.Token2022ProgramID.String()
}

// DecodeInstruction decodes a compiled instruction against the full account key list.
func DecodeInstruction(ix solana.CompiledInstruction, keys []string) Instruction {
	if ix.ProgramIDIndex < 0 || ix.ProgramIDIndex >= len(keys) {
		return Unparseable{Reason: fmt.Sprintf("program index %d out of range", ix.ProgramIDIndex)}
	}
	programID := keys[ix.ProgramIDIndex]
	if !IsTokenProgram(programID) {
		return Foreign{ProgramID: programID}
	}

	data, err := base58.Decode(ix.Data)
	if err != nil {
		return Unparseable{ProgramID: programID, Reason: "data is not base58"}
	}
	if len(data) == 0 {
		return Unparseable{ProgramID: programID, Reason: "empty data"}
	}

	dec := bin.NewBinDecoder(data)
	op, _ := dec.ReadUint8()

	switch op {
	case opTransfer:
		amount, err := dec.ReadUint64(bin.LE)
		if err != nil {
			return Unparseable{ProgramID: programID, Reason: "transfer amount truncated"}
		}
		// accounts: source, destination, authority
		accts, ok := resolve(ix.Accounts, keys, 3)
		if !ok {
			return Unparseable{ProgramID: programID, Reason: "transfer accounts out of range"}
		}
		return Transfer{
			Amount:           amount,
			Source:           accts[0],
			SourceIndex:      ix.Accounts[0],
			Destination:      accts[1],
			DestinationIndex: ix.Accounts[1],
			Authority:        accts[2],
		}

	case opTransferChecked:
		amount, err := dec.ReadUint64(bin.LE)
		if err != nil {
			return Unparseable{ProgramID: programID, Reason: "transferChecked amount truncated"}
		}
		decimals, err := dec.ReadUint8()
		if err != nil {
			return Unparseable{ProgramID: programID, Reason: "transferChecked decimals truncated"}
		}
		// accounts: source, mint, destination, authority
		accts, ok := resolve(ix.Accounts, keys, 4)
		if !ok {
			return Unparseable{ProgramID: programID, Reason: "transferChecked accounts out of range"}
		}
		return Transfer{
			Checked:          true,
			Amount:           amount,
			Source:           accts[0],
			SourceIndex:      ix.Accounts[0],
			Mint:             accts[1],
			Destination:      accts[2],
			DestinationIndex: ix.Accounts[2],
			Authority:        accts[3],
			Decimals:         decimals,
		}

	default:
		return Foreign{ProgramID: programID}
	}
}

func resolve(indices []int, keys []string, n int) ([]string, bool) {
	if len(indices) < n {
		return nil, false
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		idx := indices[i]
		if idx < 0 || idx >= len(keys) {
			return nil, false
		}
		out[i] = keys[idx]
	}
	return out, true
}
