package rps_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/rpschain/vm/modules/rps"
)

var (
	alice = strings.Repeat("a1", 32)
	bob   = strings.Repeat("b2", 32)
	carol = strings.Repeat("c3", 32)
)

func TestCommitVerifyRoundTrip(t *testing.T) {
	for _, m := range []rps.Move{rps.Rock, rps.Paper, rps.Scissors} {
		secret, err := rps.NewSecret()
		require.NoError(t, err)
		d := rps.Commit(m, secret, alice)
		assert.True(t, rps.Verify(d, m, secret, alice), m.String())
		assert.Equal(t, d, rps.Commit(m, secret, alice), "commit must be deterministic")
	}
}

func TestVerifyRejectsAlteredInputs(t *testing.T) {
	secret := []byte("correct horse battery staple")
	d := rps.Commit(rps.Rock, secret, alice)

	assert.False(t, rps.Verify(d, rps.Paper, secret, alice), "other move")
	assert.False(t, rps.Verify(d, rps.Scissors, secret, alice), "other move")
	assert.False(t, rps.Verify(d, rps.Rock, []byte("correct horse battery stapler"), alice), "other secret")
	assert.False(t, rps.Verify(d, rps.Rock, secret[:len(secret)-1], alice), "truncated secret")
	assert.False(t, rps.Verify(d, rps.Rock, secret, bob), "other address")

	tampered := d
	tampered[0] ^= 1
	assert.False(t, rps.Verify(tampered, rps.Rock, secret, alice), "other digest")
}

func TestCommitSeparatesSecretFromAddress(t *testing.T) {
	// Moving bytes between the secret and the address must not collide.
	a := rps.Commit(rps.Rock, []byte("ab"), "cd")
	b := rps.Commit(rps.Rock, []byte("abc"), "d")
	assert.NotEqual(t, a, b)
}

func TestNewSecretIsFresh(t *testing.T) {
	s1, err := rps.NewSecret()
	require.NoError(t, err)
	s2, err := rps.NewSecret()
	require.NoError(t, err)
	assert.Len(t, s1, rps.SecretLen)
	assert.NotEqual(t, s1, s2)
}

func TestDigestJSON(t *testing.T) {
	d := rps.Commit(rps.Paper, []byte("s"), alice)
	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"`+d.String()+`"`, string(raw))

	var back rps.Digest
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, d, back)

	_, err = rps.DigestFromBytes(make([]byte, 31))
	assert.Error(t, err)
}
