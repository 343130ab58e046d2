package rps

import (
	"math"

	errorsmod "cosmossdk.io/errors"
)

// Transitions of the game state machine. Each one checks the phase and
// the caller's seat before touching g; on error g must be discarded.

func deadlineAfter(round, window uint64) uint64 {
	if round > math.MaxUint64-window {
		return math.MaxUint64
	}
	return round + window
}

func (g *GameState) requirePhase(want Phase, round uint64) error {
	if g.Phase != want {
		return errorsmod.Wrapf(ErrPhaseViolation, "game is %s, need %s", g.Phase, want)
	}
	if round > g.DeadlineRound {
		return errorsmod.Wrapf(ErrPhaseViolation, "%s window closed at round %d", g.Phase, g.DeadlineRound)
	}
	return nil
}

// requireSeat returns caller's seat or ErrUnauthorizedCaller.
func (g *GameState) requireSeat(caller string) (seat, error) {
	s := g.seatOf(caller)
	if s == noSeat {
		return noSeat, errorsmod.Wrapf(ErrUnauthorizedCaller, "%s is not a player", caller)
	}
	return s, nil
}

// Setup opens bidding.
func (g *GameState) Setup(round uint64, p Params) error {
	if g.Phase != PhaseCreated {
		return errorsmod.Wrapf(ErrPhaseViolation, "game is %s, need %s", g.Phase, PhaseCreated)
	}
	g.Phase = PhaseBidding
	g.DeadlineRound = deadlineAfter(round, p.BidRounds)
	return nil
}

// Bid escrows amount for caller. Bidding closes once both players are
// bound with equal stakes of at least MinStake; it reports whether that
// happened.
func (g *GameState) Bid(caller string, amount uint64, round uint64, p Params) (bool, error) {
	if g.slotsFull() && g.seatOf(caller) == noSeat {
		return false, errorsmod.Wrapf(ErrUnauthorizedCaller, "%s is not a player and both seats are taken", caller)
	}
	if err := g.requirePhase(PhaseBidding, round); err != nil {
		return false, err
	}
	if err := g.registerStake(caller, amount); err != nil {
		return false, err
	}
	if !g.slotsFull() || g.Player1Stake < p.MinStake || g.Player1Stake != g.Player2Stake {
		return false, nil
	}
	g.Phase = PhaseCommitted
	g.DeadlineRound = deadlineAfter(round, p.CommitRounds)
	return true, nil
}

// CommitMove stores caller's commitment. It reports whether both are now
// in and reveals are open.
func (g *GameState) CommitMove(caller string, d Digest, round uint64, p Params) (bool, error) {
	if g.slotsFull() && g.seatOf(caller) == noSeat {
		return false, errorsmod.Wrapf(ErrUnauthorizedCaller, "%s is not a player", caller)
	}
	if err := g.requirePhase(PhaseCommitted, round); err != nil {
		return false, err
	}
	s, err := g.requireSeat(caller)
	if err != nil {
		return false, err
	}
	if d.IsZero() {
		return false, errorsmod.Wrap(ErrInvalidArgument, "empty commitment")
	}
	slot := &g.Player1Commitment
	if s == seat2 {
		slot = &g.Player2Commitment
	}
	if !slot.IsZero() {
		return false, errorsmod.Wrap(ErrDuplicateSubmission, "commitment already recorded")
	}
	*slot = d
	if g.Player1Commitment.IsZero() || g.Player2Commitment.IsZero() {
		return false, nil
	}
	g.Phase = PhaseRevealed
	g.DeadlineRound = deadlineAfter(round, p.RevealRounds)
	return true, nil
}

// RevealMove opens caller's commitment. A mismatch leaves g as it was so
// the player can retry before the deadline. Once both moves are in the
// game settles and the settlement is returned.
func (g *GameState) RevealMove(caller string, m Move, secret []byte, round uint64) (*Settlement, error) {
	if g.slotsFull() && g.seatOf(caller) == noSeat {
		return nil, errorsmod.Wrapf(ErrUnauthorizedCaller, "%s is not a player", caller)
	}
	if err := g.requirePhase(PhaseRevealed, round); err != nil {
		return nil, err
	}
	s, err := g.requireSeat(caller)
	if err != nil {
		return nil, err
	}
	if !m.Valid() {
		return nil, errorsmod.Wrapf(ErrInvalidArgument, "invalid move %d", uint8(m))
	}
	if !validSecret(secret) {
		return nil, errorsmod.Wrapf(ErrInvalidArgument, "secret must be 1..%d bytes", MaxSecretLen)
	}
	digest, move := g.Player1Commitment, &g.Player1Move
	if s == seat2 {
		digest, move = g.Player2Commitment, &g.Player2Move
	}
	if *move != 0 {
		return nil, errorsmod.Wrap(ErrDuplicateSubmission, "move already revealed")
	}
	if !Verify(digest, m, secret, caller) {
		return nil, errorsmod.Wrap(ErrCommitmentMismatch, "move and secret do not open the stored commitment")
	}
	*move = m
	if g.Player1Move == 0 || g.Player2Move == 0 {
		return nil, nil
	}
	st, err := settleMoves(g)
	if err != nil {
		return nil, err
	}
	g.Phase = PhaseSettled
	return st, nil
}

// Timeout settles a game whose current window has closed. Whoever kept to
// the protocol wins; if nobody did, stakes go back.
func (g *GameState) Timeout(round uint64) (*Settlement, error) {
	switch g.Phase {
	case PhaseBidding, PhaseCommitted, PhaseRevealed:
	default:
		return nil, errorsmod.Wrapf(ErrPhaseViolation, "game is %s", g.Phase)
	}
	if round <= g.DeadlineRound {
		return nil, errorsmod.Wrapf(ErrPhaseViolation, "%s window open until round %d", g.Phase, g.DeadlineRound)
	}

	var (
		st  *Settlement
		err error
	)
	switch g.Phase {
	case PhaseBidding:
		st = PlanRefund(g)
	case PhaseCommitted:
		st, err = g.settleSingle(!g.Player1Commitment.IsZero(), !g.Player2Commitment.IsZero())
	case PhaseRevealed:
		st, err = g.settleSingle(g.Player1Move != 0, g.Player2Move != 0)
	}
	if err != nil {
		return nil, err
	}
	g.Phase = PhaseSettled
	return st, nil
}

// settleSingle rewards the one compliant player, or refunds when neither
// (or, impossibly, both) complied.
func (g *GameState) settleSingle(p1Done, p2Done bool) (*Settlement, error) {
	switch {
	case p1Done && !p2Done:
		return settleForfeit(g, seat1)
	case p2Done && !p1Done:
		return settleForfeit(g, seat2)
	default:
		return PlanRefund(g), nil
	}
}
