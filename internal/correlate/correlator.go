package correlate

import (
	"errors"
	"fmt"

	"raydium-engine/internal/domain"
	"raydium-engine/internal/solana"
)

// ErrUnresolved is returned when a decoded amount cannot be tied to token accounts.
var ErrUnresolved = errors.New("correlate: unresolved")

// Leg is one side of a pool movement resolved to its mint.
type Leg struct {
	Account      string
	AccountIndex int
	Mint         string
	Decimals     uint8
}

// Primary returns the primary token name of the leg's mint, if any.
func (l Leg) Primary() (domain.PrimaryToken, bool) {
	return domain.PrimaryTokenName(l.Mint)
}

// Flow tells ResolvePair which side of the paired transfers are the pool vaults.
type Flow int

const (
	// Deposit: funds move into the pool, vaults are destinations.
	Deposit Flow = iota
	// Withdraw: funds leave the pool, vaults are sources.
	Withdraw
)

// Correlator ties decoded ray_log amounts to token accounts and mints.
type Correlator struct {
	authority string
}

// New creates a Correlator matching vault outflows signed by authority.
// An empty authority selects the Raydium AMM authority.
func New(authority string) *Correlator {
	if authority == "" {
		authority = domain.RaydiumAuthority.String()
	}
	return &Correlator{authority: authority}
}

// ResolveSwap finds the transfer of amountIn into the pool that is directly
// followed by a pool authority transfer out. It returns the pool vaults
// receiving the input and paying the output.
func (c *Correlator) ResolveSwap(tx *solana.Transaction, amountIn uint64) (in, out Leg, err error) {
	keys := tx.AccountKeys()
	found := c.scan(tx, keys, func(ins []Instruction, j int) bool {
		t, ok := ins[j].(Transfer)
		if !ok || t.Amount != amountIn || j+1 >= len(ins) {
			return false
		}
		next, ok := ins[j+1].(Transfer)
		if !ok || next.Authority != c.authority {
			return false
		}
		in = Leg{Account: t.Destination, AccountIndex: t.DestinationIndex}
		out = Leg{Account: next.Source, AccountIndex: next.SourceIndex}
		return !c.walletOwned(tx, in) && !c.walletOwned(tx, out)
	})
	if !found {
		return Leg{}, Leg{}, fmt.Errorf("%w: no transfer of %d followed by authority transfer", ErrUnresolved, amountIn)
	}

	if in, err = c.mint(tx, in); err != nil {
		return Leg{}, Leg{}, err
	}
	if out, err = c.mint(tx, out); err != nil {
		return Leg{}, Leg{}, err
	}
	return in, out, nil
}

// ResolvePair finds the coin transfer of coinAmount with the pc transfer of
// pcAmount immediately before or after it, as emitted by init, deposit and
// withdraw instructions.
func (c *Correlator) ResolvePair(tx *solana.Transaction, coinAmount, pcAmount uint64, flow Flow) (coin, pc Leg, err error) {
	keys := tx.AccountKeys()
	vault := func(t Transfer) Leg {
		if flow == Withdraw {
			return Leg{Account: t.Source, AccountIndex: t.SourceIndex}
		}
		return Leg{Account: t.Destination, AccountIndex: t.DestinationIndex}
	}
	paired := func(ins []Instruction, k int) (Transfer, bool) {
		if k < 0 || k >= len(ins) {
			return Transfer{}, false
		}
		t, ok := ins[k].(Transfer)
		return t, ok && t.Amount == pcAmount
	}

	found := c.scan(tx, keys, func(ins []Instruction, j int) bool {
		t, ok := ins[j].(Transfer)
		if !ok || t.Amount != coinAmount {
			return false
		}
		p, ok := paired(ins, j+1)
		if !ok {
			p, ok = paired(ins, j-1)
		}
		if !ok {
			return false
		}
		coin, pc = vault(t), vault(p)
		return !c.walletOwned(tx, coin) && !c.walletOwned(tx, pc)
	})
	if !found {
		return Leg{}, Leg{}, fmt.Errorf("%w: no adjacent transfers of %d and %d", ErrUnresolved, coinAmount, pcAmount)
	}

	if coin, err = c.mint(tx, coin); err != nil {
		return Leg{}, Leg{}, err
	}
	if pc, err = c.mint(tx, pc); err != nil {
		return Leg{}, Leg{}, err
	}
	return coin, pc, nil
}

// scan decodes every inner instruction set and calls match for each position
// until it returns true.
func (c *Correlator) scan(tx *solana.Transaction, keys []string, match func(ins []Instruction, j int) bool) bool {
	if tx.Meta == nil {
		return false
	}
	for _, set := range tx.Meta.InnerInstructions {
		ins := make([]Instruction, len(set.Instructions))
		for i, ix := range set.Instructions {
			ins[i] = DecodeInstruction(ix, keys)
		}
		for j := range ins {
			if match(ins, j) {
				return true
			}
		}
	}
	return false
}

// walletOwned reports whether the leg's token account belongs to a wallet
// rather than the pool. Vaults are owned by the program authority, a PDA off
// the ed25519 curve; user accounts are owned by signing keys on it. Balances
// that carry no owner are not rejected.
func (c *Correlator) walletOwned(tx *solana.Transaction, leg Leg) bool {
	for _, balances := range [][]solana.TokenBalance{tx.Meta.PostTokenBalances, tx.Meta.PreTokenBalances} {
		for _, b := range balances {
			if b.AccountIndex == leg.AccountIndex && b.Owner != "" {
				return solana.IsOnCurve(b.Owner)
			}
		}
	}
	return false
}

// mint resolves the leg's account to a mint through the post balances,
// falling back to pre balances for accounts closed by the transaction.
func (c *Correlator) mint(tx *solana.Transaction, leg Leg) (Leg, error) {
	for _, balances := range [][]solana.TokenBalance{tx.Meta.PostTokenBalances, tx.Meta.PreTokenBalances} {
		for _, b := range balances {
			if b.AccountIndex == leg.AccountIndex {
				leg.Mint = b.Mint
				leg.Decimals = b.UITokenAmount.Decimals
				return leg, nil
			}
		}
	}
	return Leg{}, fmt.Errorf("%w: no token balance for account %s", ErrUnresolved, leg.Account)
}
