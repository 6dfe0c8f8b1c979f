// Package signer holds the trading credential and signs serialized
// Solana transactions.
package signer

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Signer signs serialized Solana transactions for one wallet.
type Signer interface {
	// PublicKey returns the base58 wallet address.
	PublicKey() string

	// SignTransaction signs a base64-encoded unsigned (or pre-signed)
	// transaction and returns the base64-encoded signed transaction.
	// The wallet is assumed to be the fee payer: its signature goes
	// into the first signature slot.
	SignTransaction(txBase64 string) (string, error)
}

// LocalSigner implements Signer with an in-process ed25519 keypair.
type LocalSigner struct {
	priv   ed25519.PrivateKey
	pubkey string
}

var _ Signer = (*LocalSigner)(nil)

// NewLocalSigner builds a signer from a base58-encoded secret key.
// Accepts the 64-byte keypair format exported by most wallets, or a
// 32-byte seed.
func NewLocalSigner(secretBase58 string) (*LocalSigner, error) {
	raw, err := base58.Decode(secretBase58)
	if err != nil {
		return nil, fmt.Errorf("decode secret key: %w", err)
	}

	var priv ed25519.PrivateKey
	switch len(raw) {
	case ed25519.PrivateKeySize:
		priv = ed25519.PrivateKey(raw)
	case ed25519.SeedSize:
		priv = ed25519.NewKeyFromSeed(raw)
	default:
		return nil, fmt.Errorf("secret key must be %d or %d bytes, got %d",
			ed25519.PrivateKeySize, ed25519.SeedSize, len(raw))
	}

	pub := priv.Public().(ed25519.PublicKey)
	if !isOnCurve(pub) {
		return nil, fmt.Errorf("derived public key is not on the ed25519 curve")
	}

	return &LocalSigner{
		priv:   priv,
		pubkey: base58.Encode(pub),
	}, nil
}

// PublicKey returns the base58 wallet address.
func (s *LocalSigner) PublicKey() string {
	return s.pubkey
}

// SignTransaction signs the message portion of a serialized transaction
// and writes the signature into the fee-payer slot.
//
// Wire layout: shortvec signature count, then count*64 signature bytes,
// then the message. The swap builder allocates the signature slots, so
// the count is already present; only the bytes are blank.
func (s *LocalSigner) SignTransaction(txBase64 string) (string, error) {
	tx, err := base64.StdEncoding.DecodeString(txBase64)
	if err != nil {
		return "", fmt.Errorf("decode transaction: %w", err)
	}

	numSigs, offset, err := decodeShortvecLen(tx)
	if err != nil {
		return "", fmt.Errorf("parse signature count: %w", err)
	}
	if numSigs == 0 {
		return "", fmt.Errorf("transaction has no signature slots")
	}

	msgStart := offset + numSigs*ed25519.SignatureSize
	if msgStart >= len(tx) {
		return "", fmt.Errorf("transaction truncated: %d bytes, message starts at %d", len(tx), msgStart)
	}

	sig := ed25519.Sign(s.priv, tx[msgStart:])

	signed := make([]byte, len(tx))
	copy(signed, tx)
	copy(signed[offset:offset+ed25519.SignatureSize], sig)

	return base64.StdEncoding.EncodeToString(signed), nil
}

// decodeShortvecLen decodes a Solana compact-u16 length prefix.
// Returns the value and the number of bytes consumed.
func decodeShortvecLen(data []byte) (int, int, error) {
	value := 0
	for i := 0; i < 3; i++ {
		if i >= len(data) {
			return 0, 0, fmt.Errorf("truncated shortvec")
		}
		b := data[i]
		value |= int(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			return value, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("shortvec too long")
}

// isOnCurve checks that a 32-byte public key is a valid ed25519 point.
func isOnCurve(pub []byte) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(pub)
	return err == nil
}
