package rps_test

import (
	"bytes"
	"testing"

	"cosmossdk.io/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/rpschain/core"
	"github.com/tolelom/rpschain/crypto"
	"github.com/tolelom/rpschain/internal/testutil"
	"github.com/tolelom/rpschain/storage"
	"github.com/tolelom/rpschain/vm"
	_ "github.com/tolelom/rpschain/vm/modules/application"
	_ "github.com/tolelom/rpschain/vm/modules/economy"
	"github.com/tolelom/rpschain/vm/modules/rps"
	"github.com/tolelom/rpschain/wallet"
)

const startBalance = 10_000_000

// ledger executes one group per round directly against a StateDB.
type ledger struct {
	t     *testing.T
	state *storage.StateDB
	exec  *vm.Executor
	round uint64
}

func newLedger(t *testing.T) *ledger {
	state := testutil.NewStateDB(t)
	return &ledger{
		t:     t,
		state: state,
		exec:  vm.NewExecutor(state, testutil.ChainID, log.NewNopLogger()),
		round: 1,
	}
}

func (l *ledger) player() *wallet.Wallet {
	w := testutil.NewWallet(l.t)
	testutil.Fund(l.t, l.state, w.Address(), startBalance)
	return w
}

func (l *ledger) nonce(w *wallet.Wallet) uint64 {
	acc, err := l.state.GetAccount(w.Address())
	require.NoError(l.t, err)
	return acc.Nonce
}

func (l *ledger) apply(b *core.Batch) (*vm.GroupResult, error) {
	blk := core.NewBlock(l.round, "", "", nil)
	l.round++
	res, err := l.exec.ExecuteGroup(blk, b.Txs())
	require.NoError(l.t, l.state.Commit())
	return res, err
}

func (l *ledger) createGame(creator *wallet.Wallet) uint64 {
	art, err := rps.Build(params)
	require.NoError(l.t, err)
	code, err := art.Encode()
	require.NoError(l.t, err)
	tx, err := creator.CreateApp(l.nonce(creator), code, rps.GlobalSchema)
	require.NoError(l.t, err)
	b, err := creator.Single(tx)
	require.NoError(l.t, err)
	res, err := l.apply(b)
	require.NoError(l.t, err)
	appID := res.Receipts[0].ApplicationIndex
	require.NotZero(l.t, appID)

	b, err = creator.PaidCall(l.nonce(creator), appID, params.SetupFunding, rps.SetupArgs())
	require.NoError(l.t, err)
	_, err = l.apply(b)
	require.NoError(l.t, err)
	return appID
}

func (l *ledger) bid(w *wallet.Wallet, appID, amount uint64) (*vm.GroupResult, error) {
	b, err := w.PaidCall(l.nonce(w), appID, amount, rps.BidArgs(amount))
	require.NoError(l.t, err)
	return l.apply(b)
}

func (l *ledger) call(w *wallet.Wallet, appID uint64, args [][]byte) (*vm.GroupResult, error) {
	tx, err := w.CallApp(l.nonce(w), appID, args)
	require.NoError(l.t, err)
	b, err := w.Single(tx)
	require.NoError(l.t, err)
	return l.apply(b)
}

func (l *ledger) game(appID uint64) *rps.GameState {
	app, err := l.state.GetApp(appID)
	require.NoError(l.t, err)
	g, err := rps.DecodeState(app.Global)
	require.NoError(l.t, err)
	return g
}

func (l *ledger) balance(addr string) uint64 {
	return testutil.Balance(l.t, l.state, addr)
}

func TestCreateStoresEmptyGame(t *testing.T) {
	l := newLedger(t)
	creator := l.player()
	appID := l.createGame(creator)

	app, err := l.state.GetApp(appID)
	require.NoError(t, err)
	assert.Equal(t, creator.Address(), app.Creator)
	assert.Equal(t, crypto.AppAddress(appID), app.Address)
	assert.Equal(t, vm.ProgramHash(app.Program), app.ProgramHash)
	assert.Equal(t, rps.GlobalSchema, app.Schema)

	g := l.game(appID)
	assert.Equal(t, rps.PhaseBidding, g.Phase)
	assert.Equal(t, crypto.ZeroAddress, g.Player1)
	assert.Equal(t, crypto.ZeroAddress, g.Player2)
	assert.Equal(t, params.SetupFunding, l.balance(app.Address))
}

func TestCreateRejectsUndersizedSchema(t *testing.T) {
	l := newLedger(t)
	creator := l.player()
	art, err := rps.Build(params)
	require.NoError(t, err)
	code, err := art.Encode()
	require.NoError(t, err)
	tx, err := creator.CreateApp(0, code, core.StateSchema{NumUint: 6, NumByteSlice: 3})
	require.NoError(t, err)
	b, err := creator.Single(tx)
	require.NoError(t, err)

	_, err = l.apply(b)
	assert.ErrorIs(t, err, core.ErrSchemaViolation)
	assert.Equal(t, uint64(startBalance), l.balance(creator.Address()), "fee is reverted with the group")
}

func TestSetupOnlyByCreator(t *testing.T) {
	l := newLedger(t)
	creator, other := l.player(), l.player()
	appID := l.createGame(creator)

	b, err := other.PaidCall(l.nonce(other), appID, params.SetupFunding, rps.SetupArgs())
	require.NoError(t, err)
	_, err = l.apply(b)
	assert.ErrorIs(t, err, rps.ErrUnauthorizedCaller)
}

func TestWinnerTakesPot(t *testing.T) {
	l := newLedger(t)
	creator, p1, p2 := l.player(), l.player(), l.player()
	appID := l.createGame(creator)
	appAddr := crypto.AppAddress(appID)
	const stake = 200_000

	_, err := l.bid(p1, appID, stake)
	require.NoError(t, err)
	res, err := l.bid(p2, appID, stake)
	require.NoError(t, err)
	require.Len(t, res.Receipts, 2)
	assert.Equal(t, rps.PhaseCommitted, l.game(appID).Phase)

	s1, s2 := []byte("p1 secret"), []byte("p2 secret")
	_, err = l.call(p1, appID, rps.CommitArgs(rps.Commit(rps.Rock, s1, p1.Address())))
	require.NoError(t, err)
	_, err = l.call(p2, appID, rps.CommitArgs(rps.Commit(rps.Scissors, s2, p2.Address())))
	require.NoError(t, err)
	assert.Equal(t, rps.PhaseRevealed, l.game(appID).Phase)

	_, err = l.call(p2, appID, rps.RevealArgs(rps.Scissors, s2))
	require.NoError(t, err)

	before := l.balance(p1.Address())
	res, err = l.call(p1, appID, rps.RevealArgs(rps.Rock, s1))
	require.NoError(t, err)

	rcpt := res.Receipts[0]
	require.Len(t, rcpt.InnerTxns, 1)
	assert.Equal(t, core.InnerTxn{Sender: appAddr, Receiver: p1.Address(), Amount: 2*stake - rps.FeeReserve, Fee: core.MinTxFee}, rcpt.InnerTxns[0])
	assert.Equal(t, before-core.MinTxFee+2*stake-rps.FeeReserve, l.balance(p1.Address()))
	assert.Equal(t, params.SetupFunding, l.balance(appAddr))
	assert.True(t, hasLog(rcpt.Logs, "settled outcome=player1_wins"))
	assert.Contains(t, rcpt.GlobalDelta, core.StateDelta{
		Key: rps.KeyPhase, Action: core.DeltaSet,
		Value: &core.KeyValue{Key: rps.KeyPhase, Type: core.ValueUint, Uint: uint64(rps.PhaseSettled)},
	})

	g := l.game(appID)
	assert.Equal(t, rps.PhaseSettled, g.Phase)
	assert.Equal(t, rps.Rock, g.Player1Move)
	assert.Equal(t, rps.Scissors, g.Player2Move)

	_, err = l.call(p2, appID, rps.TimeoutArgs())
	assert.ErrorIs(t, err, rps.ErrPhaseViolation, "settled games accept nothing")
}

func TestBidWithoutPaymentRejected(t *testing.T) {
	l := newLedger(t)
	creator, p1 := l.player(), l.player()
	appID := l.createGame(creator)

	_, err := l.call(p1, appID, rps.BidArgs(150_000))
	assert.ErrorIs(t, err, rps.ErrInvalidGroupShape)
	assert.Equal(t, uint64(startBalance), l.balance(p1.Address()))
}

func TestBidAmountMustMatchPayment(t *testing.T) {
	l := newLedger(t)
	creator, p1 := l.player(), l.player()
	appID := l.createGame(creator)

	pay, err := p1.Payment(0, crypto.AppAddress(appID), 100_000)
	require.NoError(t, err)
	call, err := p1.CallApp(1, appID, rps.BidArgs(150_000))
	require.NoError(t, err)
	b, err := core.NewPaidCall(pay, call)
	require.NoError(t, err)
	require.NoError(t, b.Sign(p1.PrivKey()))

	_, err = l.apply(b)
	assert.ErrorIs(t, err, rps.ErrInvalidGroupShape)
	assert.Equal(t, uint64(startBalance), l.balance(p1.Address()), "payment is reverted with the call")
	assert.Equal(t, crypto.ZeroAddress, l.game(appID).Player1)
}

func TestBidPaymentMustReachApplication(t *testing.T) {
	l := newLedger(t)
	creator, p1, elsewhere := l.player(), l.player(), l.player()
	appID := l.createGame(creator)

	pay, err := p1.Payment(0, elsewhere.Address(), 150_000)
	require.NoError(t, err)
	call, err := p1.CallApp(1, appID, rps.BidArgs(150_000))
	require.NoError(t, err)
	b, err := core.NewBatch(pay, call)
	require.NoError(t, err)
	require.NoError(t, b.Sign(p1.PrivKey()))

	_, err = l.apply(b)
	assert.ErrorIs(t, err, rps.ErrInvalidGroupShape)
	assert.Equal(t, uint64(startBalance), l.balance(elsewhere.Address()))
}

func TestThirdPlayerBidRejectedOnLedger(t *testing.T) {
	l := newLedger(t)
	creator, p1, p2, p3 := l.player(), l.player(), l.player(), l.player()
	appID := l.createGame(creator)

	_, err := l.bid(p1, appID, 300_000)
	require.NoError(t, err)
	_, err = l.bid(p2, appID, 301_500)
	require.NoError(t, err)
	_, err = l.bid(p3, appID, 1_500)
	assert.ErrorIs(t, err, rps.ErrUnauthorizedCaller)
	assert.Equal(t, uint64(startBalance), l.balance(p3.Address()))

	_, err = l.bid(p1, appID, 1_500)
	require.NoError(t, err)
	g := l.game(appID)
	assert.Equal(t, rps.PhaseCommitted, g.Phase)
	assert.Equal(t, uint64(301_500), g.Player1Stake)
	assert.Equal(t, uint64(301_500), g.Player2Stake)
}

func TestMismatchedRevealLeavesStateUnchanged(t *testing.T) {
	l := newLedger(t)
	creator, p1, p2 := l.player(), l.player(), l.player()
	appID := l.createGame(creator)
	_, err := l.bid(p1, appID, params.MinStake)
	require.NoError(t, err)
	_, err = l.bid(p2, appID, params.MinStake)
	require.NoError(t, err)

	s1, s2 := []byte("one"), []byte("two")
	_, err = l.call(p1, appID, rps.CommitArgs(rps.Commit(rps.Paper, s1, p1.Address())))
	require.NoError(t, err)
	_, err = l.call(p2, appID, rps.CommitArgs(rps.Commit(rps.Paper, s2, p2.Address())))
	require.NoError(t, err)

	before := l.game(appID)
	_, err = l.call(p2, appID, rps.RevealArgs(rps.Rock, s2))
	assert.ErrorIs(t, err, rps.ErrCommitmentMismatch)
	assert.Equal(t, before, l.game(appID))

	_, err = l.call(p2, appID, rps.RevealArgs(rps.Paper, s2))
	require.NoError(t, err)
	res, err := l.call(p1, appID, rps.RevealArgs(rps.Paper, s1))
	require.NoError(t, err)

	// Draw: each gets half the pot less one fee.
	rcpt := res.Receipts[0]
	require.Len(t, rcpt.InnerTxns, 2)
	for _, in := range rcpt.InnerTxns {
		assert.Equal(t, params.MinStake-rps.FeeReserve, in.Amount)
	}
}

func TestNonRevealForfeitsOnLedger(t *testing.T) {
	l := newLedger(t)
	creator, p1, p2, anyone := l.player(), l.player(), l.player(), l.player()
	appID := l.createGame(creator)
	_, err := l.bid(p1, appID, params.MinStake)
	require.NoError(t, err)
	_, err = l.bid(p2, appID, params.MinStake)
	require.NoError(t, err)

	s1 := []byte("p1")
	_, err = l.call(p1, appID, rps.CommitArgs(rps.Commit(rps.Paper, s1, p1.Address())))
	require.NoError(t, err)
	_, err = l.call(p2, appID, rps.CommitArgs(rps.Commit(rps.Scissors, []byte("p2"), p2.Address())))
	require.NoError(t, err)
	_, err = l.call(p1, appID, rps.RevealArgs(rps.Paper, s1))
	require.NoError(t, err)

	_, err = l.call(anyone, appID, rps.TimeoutArgs())
	assert.ErrorIs(t, err, rps.ErrPhaseViolation, "window still open")

	l.round = l.game(appID).DeadlineRound + 1
	before := l.balance(p1.Address())
	_, err = l.call(anyone, appID, rps.TimeoutArgs())
	require.NoError(t, err)
	assert.Equal(t, before+2*params.MinStake-rps.FeeReserve, l.balance(p1.Address()))
	assert.Equal(t, rps.PhaseSettled, l.game(appID).Phase)
}

func TestStaleNonceRejected(t *testing.T) {
	l := newLedger(t)
	p1 := l.player()
	tx, err := p1.Payment(5, crypto.AppAddress(1), 10)
	require.NoError(t, err)
	b, err := p1.Single(tx)
	require.NoError(t, err)
	_, err = l.apply(b)
	assert.ErrorIs(t, err, core.ErrBadNonce)
}

func hasLog(logs [][]byte, prefix string) bool {
	for _, line := range logs {
		if bytes.HasPrefix(line, []byte(prefix)) {
			return true
		}
	}
	return false
}
