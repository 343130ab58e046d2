package rps_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/rpschain/crypto"
	"github.com/tolelom/rpschain/vm/modules/rps"
)

var params = rps.DefaultParams()

// biddingGame returns a game that has just opened bidding at round 1.
func biddingGame(t *testing.T) *rps.GameState {
	t.Helper()
	g := rps.NewGameState()
	require.NoError(t, g.Setup(1, params))
	return g
}

// committedGame returns a game with both players bound at stake.
func committedGame(t *testing.T, stake uint64) *rps.GameState {
	t.Helper()
	g := biddingGame(t)
	_, err := g.Bid(alice, stake, 2, params)
	require.NoError(t, err)
	advanced, err := g.Bid(bob, stake, 2, params)
	require.NoError(t, err)
	require.True(t, advanced)
	return g
}

func TestNewGameHasEmptySlots(t *testing.T) {
	g := rps.NewGameState()
	assert.Equal(t, rps.PhaseCreated, g.Phase)
	assert.Equal(t, crypto.ZeroAddress, g.Player1)
	assert.Equal(t, crypto.ZeroAddress, g.Player2)

	_, err := g.Bid(alice, 1, 1, params)
	assert.ErrorIs(t, err, rps.ErrPhaseViolation)

	require.NoError(t, g.Setup(10, params))
	assert.Equal(t, rps.PhaseBidding, g.Phase)
	assert.Equal(t, 10+params.BidRounds, g.DeadlineRound)
	assert.ErrorIs(t, g.Setup(11, params), rps.ErrPhaseViolation)
}

func TestMatchedStakesCloseBidding(t *testing.T) {
	g := biddingGame(t)

	advanced, err := g.Bid(alice, 300_000, 2, params)
	require.NoError(t, err)
	assert.False(t, advanced)

	advanced, err = g.Bid(bob, 301_500, 3, params)
	require.NoError(t, err)
	assert.False(t, advanced, "unequal stakes keep bidding open")
	assert.Equal(t, rps.PhaseBidding, g.Phase)

	advanced, err = g.Bid(alice, 1_500, 4, params)
	require.NoError(t, err)
	assert.True(t, advanced)

	s1, s2 := g.Stakes()
	assert.Equal(t, uint64(301_500), s1)
	assert.Equal(t, uint64(301_500), s2)
	assert.Equal(t, rps.PhaseCommitted, g.Phase)
	assert.Equal(t, 4+params.CommitRounds, g.DeadlineRound)
}

func TestStakesBelowMinimumKeepBiddingOpen(t *testing.T) {
	g := biddingGame(t)
	_, err := g.Bid(alice, params.MinStake-1, 2, params)
	require.NoError(t, err)
	advanced, err := g.Bid(bob, params.MinStake-1, 2, params)
	require.NoError(t, err)
	assert.False(t, advanced)
	assert.Equal(t, rps.PhaseBidding, g.Phase)
}

func TestThirdBidderRejected(t *testing.T) {
	g := biddingGame(t)
	_, err := g.Bid(alice, 300_000, 2, params)
	require.NoError(t, err)
	_, err = g.Bid(bob, 301_500, 2, params)
	require.NoError(t, err)

	before := *g
	_, err = g.Bid(carol, 1_500, 3, params)
	assert.ErrorIs(t, err, rps.ErrUnauthorizedCaller)
	assert.Equal(t, before, *g)

	// Still unauthorized once bidding has closed.
	g = committedGame(t, params.MinStake)
	_, err = g.Bid(carol, 1, 3, params)
	assert.ErrorIs(t, err, rps.ErrUnauthorizedCaller)
}

func TestBidAfterDeadlineRejected(t *testing.T) {
	g := biddingGame(t)
	_, err := g.Bid(alice, 1, g.DeadlineRound+1, params)
	assert.ErrorIs(t, err, rps.ErrPhaseViolation)
}

func TestDuplicateCommitmentRejected(t *testing.T) {
	g := committedGame(t, params.MinStake)
	d := rps.Commit(rps.Rock, []byte("one"), alice)

	_, err := g.CommitMove(alice, d, 3, params)
	require.NoError(t, err)
	after := *g

	_, err = g.CommitMove(alice, d, 3, params)
	assert.ErrorIs(t, err, rps.ErrDuplicateSubmission)
	assert.Equal(t, after, *g)

	other := rps.Commit(rps.Paper, []byte("two"), alice)
	_, err = g.CommitMove(alice, other, 4, params)
	assert.ErrorIs(t, err, rps.ErrDuplicateSubmission)
	assert.Equal(t, after, *g)
}

func TestCommitRequiresPlayerAndPhase(t *testing.T) {
	g := biddingGame(t)
	_, err := g.CommitMove(alice, rps.Commit(rps.Rock, []byte("x"), alice), 2, params)
	assert.ErrorIs(t, err, rps.ErrPhaseViolation)

	g = committedGame(t, params.MinStake)
	_, err = g.CommitMove(carol, rps.Commit(rps.Rock, []byte("x"), carol), 3, params)
	assert.ErrorIs(t, err, rps.ErrUnauthorizedCaller)
	_, err = g.CommitMove(alice, rps.Digest{}, 3, params)
	assert.ErrorIs(t, err, rps.ErrInvalidArgument)
}

func TestRevealBeforeBothCommitsRejected(t *testing.T) {
	g := committedGame(t, params.MinStake)
	secret := []byte("early")
	_, err := g.CommitMove(alice, rps.Commit(rps.Rock, secret, alice), 3, params)
	require.NoError(t, err)
	_, err = g.RevealMove(alice, rps.Rock, secret, 3)
	assert.ErrorIs(t, err, rps.ErrPhaseViolation)
}

func TestMismatchedRevealCanBeRetried(t *testing.T) {
	g := committedGame(t, params.MinStake)
	aliceSecret, bobSecret := []byte("alice-secret"), []byte("bob-secret")
	_, err := g.CommitMove(alice, rps.Commit(rps.Rock, aliceSecret, alice), 3, params)
	require.NoError(t, err)
	_, err = g.CommitMove(bob, rps.Commit(rps.Scissors, bobSecret, bob), 3, params)
	require.NoError(t, err)
	require.Equal(t, rps.PhaseRevealed, g.Phase)

	before := *g
	_, err = g.RevealMove(bob, rps.Paper, bobSecret, 4)
	assert.ErrorIs(t, err, rps.ErrCommitmentMismatch)
	assert.Equal(t, before, *g)

	_, err = g.RevealMove(bob, rps.Scissors, []byte("wrong"), 4)
	assert.ErrorIs(t, err, rps.ErrCommitmentMismatch)

	st, err := g.RevealMove(bob, rps.Scissors, bobSecret, 5)
	require.NoError(t, err)
	assert.Nil(t, st)

	_, err = g.RevealMove(bob, rps.Scissors, bobSecret, 5)
	assert.ErrorIs(t, err, rps.ErrDuplicateSubmission)

	st, err = g.RevealMove(alice, rps.Rock, aliceSecret, 6)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, rps.Player1Wins, st.Outcome)
	assert.Equal(t, rps.PhaseSettled, g.Phase)
}

// play runs a full game in which seat 1 plays m1 and seat 2 plays m2.
// The *First arguments pick which of alice (0) or bob (1) acts first in
// each phase.
func play(t *testing.T, m1, m2 rps.Move, bidFirst, commitFirst, revealFirst int) *rps.Settlement {
	t.Helper()
	players := []string{alice, bob}
	order := func(first int) []string { return []string{players[first], players[1-first]} }
	secrets := map[string][]byte{alice: []byte("secret-a"), bob: []byte("secret-b")}

	g := biddingGame(t)
	for _, p := range order(bidFirst) {
		_, err := g.Bid(p, params.MinStake, 2, params)
		require.NoError(t, err)
	}
	// The first bidder holds seat 1.
	moves := map[string]rps.Move{players[bidFirst]: m1, players[1-bidFirst]: m2}

	for _, p := range order(commitFirst) {
		_, err := g.CommitMove(p, rps.Commit(moves[p], secrets[p], p), 3, params)
		require.NoError(t, err)
	}
	var st *rps.Settlement
	for _, p := range order(revealFirst) {
		var err error
		st, err = g.RevealMove(p, moves[p], secrets[p], 4)
		require.NoError(t, err)
	}
	require.NotNil(t, st)
	return st
}

func TestOutcomeIndependentOfArrivalOrder(t *testing.T) {
	all := []rps.Move{rps.Rock, rps.Paper, rps.Scissors}
	for _, m1 := range all {
		for _, m2 := range all {
			want := rps.Resolve(m1, m2)
			for bid := 0; bid < 2; bid++ {
				for c := 0; c < 2; c++ {
					for r := 0; r < 2; r++ {
						st := play(t, m1, m2, bid, c, r)
						assert.Equal(t, want, st.Outcome, "%s vs %s bid=%d commit=%d reveal=%d", m1, m2, bid, c, r)
					}
				}
			}
		}
	}
}

func TestTimeoutBeforeDeadlineRejected(t *testing.T) {
	g := committedGame(t, params.MinStake)
	_, err := g.Timeout(g.DeadlineRound)
	assert.ErrorIs(t, err, rps.ErrPhaseViolation)

	_, err = rps.NewGameState().Timeout(1_000)
	assert.ErrorIs(t, err, rps.ErrPhaseViolation)
}

func TestTimeoutDuringBiddingRefunds(t *testing.T) {
	g := biddingGame(t)
	_, err := g.Bid(alice, 50_000, 2, params)
	require.NoError(t, err)

	st, err := g.Timeout(g.DeadlineRound + 1)
	require.NoError(t, err)
	assert.Equal(t, rps.ReasonRefund, st.Reason)
	assert.Equal(t, []rps.Disbursement{{To: alice, Amount: 50_000 - rps.FeeReserve}}, st.Payouts)
	assert.Equal(t, rps.PhaseSettled, g.Phase)

	_, err = g.Timeout(g.DeadlineRound + 2)
	assert.ErrorIs(t, err, rps.ErrPhaseViolation)
}

func TestSilentCommitterForfeits(t *testing.T) {
	g := committedGame(t, params.MinStake)
	_, err := g.CommitMove(bob, rps.Commit(rps.Paper, []byte("b"), bob), 3, params)
	require.NoError(t, err)

	st, err := g.Timeout(g.DeadlineRound + 1)
	require.NoError(t, err)
	assert.Equal(t, rps.Player2Wins, st.Outcome)
	assert.Equal(t, rps.ReasonForfeit, st.Reason)
	assert.Equal(t, []rps.Disbursement{{To: bob, Amount: 2*params.MinStake - rps.FeeReserve}}, st.Payouts)
}

func TestNoCommitmentsRefundBoth(t *testing.T) {
	g := committedGame(t, params.MinStake)
	st, err := g.Timeout(g.DeadlineRound + 1)
	require.NoError(t, err)
	assert.Equal(t, rps.OutcomeNone, st.Outcome)
	assert.Len(t, st.Payouts, 2)
}

func TestNonRevealerForfeits(t *testing.T) {
	g := committedGame(t, params.MinStake)
	secret := []byte("alice")
	_, err := g.CommitMove(alice, rps.Commit(rps.Scissors, secret, alice), 3, params)
	require.NoError(t, err)
	_, err = g.CommitMove(bob, rps.Commit(rps.Rock, []byte("bob"), bob), 3, params)
	require.NoError(t, err)
	_, err = g.RevealMove(alice, rps.Scissors, secret, 4)
	require.NoError(t, err)

	// Bob would have won on moves, but never revealed in time.
	_, err = g.RevealMove(bob, rps.Rock, []byte("bob"), g.DeadlineRound+1)
	assert.ErrorIs(t, err, rps.ErrPhaseViolation)

	st, err := g.Timeout(g.DeadlineRound + 1)
	require.NoError(t, err)
	assert.Equal(t, rps.Player1Wins, st.Outcome)
	assert.Equal(t, []rps.Disbursement{{To: alice, Amount: 2*params.MinStake - rps.FeeReserve}}, st.Payouts)
}

func TestGlobalsProjection(t *testing.T) {
	g := committedGame(t, params.MinStake)
	kvs, err := g.Globals()
	require.NoError(t, err)
	assert.Len(t, kvs, 6, "commitments and moves are absent until set")

	_, err = g.CommitMove(alice, rps.Commit(rps.Rock, []byte("a"), alice), 3, params)
	require.NoError(t, err)
	kvs, err = g.Globals()
	require.NoError(t, err)
	assert.Len(t, kvs, 7)

	back, err := rps.StateFromGlobals(kvs)
	require.NoError(t, err)
	assert.Equal(t, *g, *back)
}

func TestParamsValidate(t *testing.T) {
	p := rps.DefaultParams()
	p.MinStake = 2 * rps.FeeReserve
	assert.Error(t, p.Validate())

	p = rps.DefaultParams()
	p.RevealRounds = 0
	_, err := rps.Build(p)
	assert.Error(t, err)

	art, err := rps.Build(rps.DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, rps.ProgramName, art.Name)
}
