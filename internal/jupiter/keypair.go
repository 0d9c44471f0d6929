package jupiter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	bin "github.com/gagliardetto/binary"
	solanago "github.com/gagliardetto/solana-go"

	"raydium-engine/internal/solana"
)

// ErrUnknownWallet is returned for a wallet id without a key.
var ErrUnknownWallet = errors.New("unknown wallet")

// KeypairSubmitter signs with locally held wallet keys and sends through a
// Solana RPC node.
type KeypairSubmitter struct {
	keys   map[int64]solanago.PrivateKey
	sender solana.TransactionSender
}

// NewKeypairSubmitter parses base58 secret keys keyed by wallet id.
func NewKeypairSubmitter(keys map[int64]string, sender solana.TransactionSender) (*KeypairSubmitter, error) {
	parsed := make(map[int64]solanago.PrivateKey, len(keys))
	for id, secret := range keys {
		key, err := solanago.PrivateKeyFromBase58(secret)
		if err != nil {
			return nil, fmt.Errorf("wallet %d: invalid private key: %w", id, err)
		}
		parsed[id] = key
	}
	return &KeypairSubmitter{keys: parsed, sender: sender}, nil
}

// LoadKeys reads a JSON object mapping wallet ids to base58 secret keys.
func LoadKeys(path string) (map[int64]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keys file: %w", err)
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode keys file: %w", err)
	}

	keys := make(map[int64]string, len(raw))
	for k, v := range raw {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("keys file: wallet id %q: %w", k, err)
		}
		keys[id] = v
	}
	return keys, nil
}

// PublicKey returns the wallet address.
func (s *KeypairSubmitter) PublicKey(walletID int64) (string, error) {
	key, ok := s.keys[walletID]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownWallet, walletID)
	}
	return key.PublicKey().String(), nil
}

// SignAndSend fills the wallet's signature slot of a serialized transaction
// and submits it.
func (s *KeypairSubmitter) SignAndSend(ctx context.Context, walletID int64, raw []byte) (string, error) {
	key, ok := s.keys[walletID]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownWallet, walletID)
	}

	signed, err := Sign(raw, key)
	if err != nil {
		return "", err
	}
	return s.sender.SendTransaction(ctx, signed)
}

// Sign decodes a legacy or v0 transaction, writes key's signature into the
// slot of its account and re-serializes it.
func Sign(raw []byte, key solanago.PrivateKey) ([]byte, error) {
	tx, err := solanago.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}

	signers := int(tx.Message.Header.NumRequiredSignatures)
	pub := key.PublicKey()
	slot := -1
	for i := 0; i < signers && i < len(tx.Message.AccountKeys); i++ {
		if tx.Message.AccountKeys[i].Equals(pub) {
			slot = i
			break
		}
	}
	if slot < 0 {
		return nil, fmt.Errorf("wallet %s is not a signer of the transaction", pub)
	}

	message, err := tx.Message.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	sig, err := key.Sign(message)
	if err != nil {
		return nil, fmt.Errorf("sign message: %w", err)
	}

	for len(tx.Signatures) < signers {
		tx.Signatures = append(tx.Signatures, solanago.Signature{})
	}
	tx.Signatures[slot] = sig

	out, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode transaction: %w", err)
	}
	return out, nil
}
