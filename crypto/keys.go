package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrMalformedKey is returned for key material of the wrong encoding or size.
var ErrMalformedKey = errors.New("malformed key")

// PrivateKey is a raw ed25519 private key (seed followed by public half).
type PrivateKey []byte

// PublicKey is a raw ed25519 public key. Its lowercase hex form is the
// account address players sign with and receive payouts at.
type PublicKey []byte

// GenerateKeyPair draws a fresh ed25519 key pair from crypto/rand.
func GenerateKeyPair() (PrivateKey, PublicKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("generate key: %w", err)
	}
	return PrivateKey(priv), PublicKey(pub), nil
}

// Hex returns the account address of pub.
func (pub PublicKey) Hex() string {
	return hex.EncodeToString(pub)
}

// Hex encodes the full private key. Only the keystore should need it.
func (priv PrivateKey) Hex() string {
	return hex.EncodeToString(priv)
}

// Public returns the account key belonging to priv.
func (priv PrivateKey) Public() PublicKey {
	return PublicKey(ed25519.PrivateKey(priv).Public().(ed25519.PublicKey))
}

// PubKeyFromHex parses an account address back into its public key.
// Application escrow addresses parse too but have no private key, so a
// successful parse says nothing about who can sign.
func PubKeyFromHex(addr string) (PublicKey, error) {
	b, err := decodeKey(addr, ed25519.PublicKeySize)
	if err != nil {
		return nil, fmt.Errorf("account %q: %w", addr, err)
	}
	return PublicKey(b), nil
}

func decodeKey(s string, size int) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	if len(b) != size {
		return nil, fmt.Errorf("%w: %d bytes, want %d", ErrMalformedKey, len(b), size)
	}
	return b, nil
}
