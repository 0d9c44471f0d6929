package solana

import (
	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// IsOnCurve reports whether a base58 public key is a valid ed25519 point, i.e.
// an address that can sign. Program derived addresses are off curve.
func IsOnCurve(pubkey string) bool {
	raw, err := base58.Decode(pubkey)
	if err != nil || len(raw) != 32 {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(raw)
	return err == nil
}
