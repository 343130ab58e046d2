// Package testutil provides in-memory fixtures for tests across the module.
// Never import this in production code.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tolelom/rpschain/core"
	"github.com/tolelom/rpschain/storage"
	"github.com/tolelom/rpschain/wallet"
)

// ChainID is the chain id used by test fixtures.
const ChainID = "rps-test"

// NewDB opens an in-memory LevelDB that is closed when the test ends.
func NewDB(t testing.TB) *storage.LevelDB {
	t.Helper()
	db, err := storage.NewMemLevelDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// NewStateDB returns a storage.StateDB backed by a fresh in-memory DB.
func NewStateDB(t testing.TB) *storage.StateDB {
	t.Helper()
	return storage.NewStateDB(NewDB(t))
}

// NewWallet generates a wallet bound to ChainID.
func NewWallet(t testing.TB) *wallet.Wallet {
	t.Helper()
	w, err := wallet.Generate(ChainID)
	require.NoError(t, err)
	return w
}

// Fund credits addr with amount. The change stays in the write buffer.
func Fund(t testing.TB, state core.State, addr string, amount uint64) {
	t.Helper()
	acc, err := state.GetAccount(addr)
	require.NoError(t, err)
	acc.Balance += amount
	require.NoError(t, state.SetAccount(acc))
}

// Balance returns the balance of addr.
func Balance(t testing.TB, state core.State, addr string) uint64 {
	t.Helper()
	acc, err := state.GetAccount(addr)
	require.NoError(t, err)
	return acc.Balance
}
