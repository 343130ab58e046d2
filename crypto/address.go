package crypto

import (
	"encoding/binary"
	"encoding/hex"
	"strings"
)

// AddressLen is the length of a hex-encoded account address.
const AddressLen = 64

// ZeroAddress is the empty-slot sentinel. No key pair maps to it.
var ZeroAddress = strings.Repeat("0", AddressLen)

// AppAddress derives the escrow account address of an application.
// The address is a hash, so nobody holds a private key for it and only the
// application itself can move its balance.
func AppAddress(appID uint64) string {
	var id [8]byte
	binary.BigEndian.PutUint64(id[:], appID)
	return Hash(append([]byte("appID"), id[:]...))
}

// IsAddress reports whether s is shaped like an account address.
func IsAddress(s string) bool {
	if len(s) != AddressLen {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
