package rps

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"

	"golang.org/x/crypto/sha3"
)

const (
	// SecretLen is the length of secrets produced by NewSecret.
	SecretLen = 32
	// MaxSecretLen bounds caller supplied secrets.
	MaxSecretLen = 64
)

var commitDomain = []byte("rpschain/commit/v1")

// Digest is a commitment to a move. The zero digest means "no commitment".
type Digest [32]byte

// IsZero reports whether d is unset.
func (d Digest) IsZero() bool { return d == Digest{} }

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Digest) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Digest{}
		return nil
	}
	raw, err := hex.DecodeString(string(b))
	if err != nil {
		return fmt.Errorf("digest: %w", err)
	}
	parsed, err := DigestFromBytes(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DigestFromBytes copies a 32-byte slice into a Digest.
func DigestFromBytes(b []byte) (Digest, error) {
	var d Digest
	if len(b) != len(d) {
		return d, fmt.Errorf("digest must be %d bytes, got %d", len(d), len(b))
	}
	copy(d[:], b)
	return d, nil
}

// Commit binds move and secret to playerAddress. Binding the address keeps
// a player from copying the opponent's commitment and revealing it later.
func Commit(move Move, secret []byte, playerAddress string) Digest {
	h := sha3.New256()
	h.Write(commitDomain)
	h.Write([]byte{byte(move)})
	writeLenPrefixed(h, secret)
	writeLenPrefixed(h, []byte(playerAddress))
	var d Digest
	h.Sum(d[:0])
	return d
}

// Verify reports whether (move, secret, playerAddress) opens digest.
func Verify(digest Digest, move Move, secret []byte, playerAddress string) bool {
	got := Commit(move, secret, playerAddress)
	return subtle.ConstantTimeCompare(got[:], digest[:]) == 1
}

// NewSecret draws a fresh secret. The commitment scheme itself has no
// entropy; whoever commits must keep this until reveal.
func NewSecret() ([]byte, error) {
	s := make([]byte, SecretLen)
	if _, err := rand.Read(s); err != nil {
		return nil, fmt.Errorf("draw secret: %w", err)
	}
	return s, nil
}

func validSecret(s []byte) bool {
	return len(s) > 0 && len(s) <= MaxSecretLen
}

func writeLenPrefixed(h hash.Hash, b []byte) {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(b)))
	h.Write(n[:])
	h.Write(b)
}
