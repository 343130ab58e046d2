package rps

import (
	"fmt"
	"strings"

	"github.com/tolelom/rpschain/core"
)

// FeeReserve is held back from the pot for each outbound payment.
const FeeReserve = core.MinTxFee

// Reason says why a game settled.
type Reason string

const (
	ReasonMoves   Reason = "moves"
	ReasonForfeit Reason = "forfeit"
	ReasonRefund  Reason = "refund"
)

// Disbursement is one outbound payment from the application.
type Disbursement struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// Settlement is the full distribution of a pot. Residual is what stays in
// the application account: an odd remainder on a draw, or any share too
// small to cover its own fee.
type Settlement struct {
	Outcome  Outcome        `json:"outcome"`
	Reason   Reason         `json:"reason"`
	Payouts  []Disbursement `json:"payouts"`
	Residual uint64         `json:"residual"`
}

// String renders the settlement as a log line.
func (s *Settlement) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "settled outcome=%s reason=%s", s.Outcome, s.Reason)
	for _, p := range s.Payouts {
		fmt.Fprintf(&b, " pay=%s:%d", p.To, p.Amount)
	}
	fmt.Fprintf(&b, " residual=%d", s.Residual)
	return b.String()
}

// add pays share to addr if it covers the fee, else keeps it as residual.
func (s *Settlement) add(addr string, share uint64) {
	if share <= FeeReserve {
		s.Residual += share
		return
	}
	s.Payouts = append(s.Payouts, Disbursement{To: addr, Amount: share - FeeReserve})
}

// PlanWin gives the whole pot, less one fee, to winner.
func PlanWin(outcome Outcome, reason Reason, winner string, pot uint64) *Settlement {
	s := &Settlement{Outcome: outcome, Reason: reason}
	s.add(winner, pot)
	return s
}

// PlanDraw splits the pot evenly. An odd remainder is kept as residual
// rather than favouring either player.
func PlanDraw(player1, player2 string, pot uint64) *Settlement {
	s := &Settlement{Outcome: Draw, Reason: ReasonMoves}
	half := pot / 2
	s.add(player1, half)
	s.add(player2, half)
	s.Residual += pot % 2
	return s
}

// PlanRefund returns each bound player's own stake.
func PlanRefund(g *GameState) *Settlement {
	s := &Settlement{Outcome: OutcomeNone, Reason: ReasonRefund}
	if g.Player1Stake > 0 {
		s.add(g.Player1, g.Player1Stake)
	}
	if g.Player2Stake > 0 {
		s.add(g.Player2, g.Player2Stake)
	}
	return s
}

// settleMoves decides a game in which both moves are revealed.
func settleMoves(g *GameState) (*Settlement, error) {
	pot, err := g.Pot()
	if err != nil {
		return nil, err
	}
	switch out := Resolve(g.Player1Move, g.Player2Move); out {
	case Player1Wins:
		return PlanWin(out, ReasonMoves, g.Player1, pot), nil
	case Player2Wins:
		return PlanWin(out, ReasonMoves, g.Player2, pot), nil
	default:
		return PlanDraw(g.Player1, g.Player2, pot), nil
	}
}

// settleForfeit awards the pot to the player in s.
func settleForfeit(g *GameState, s seat) (*Settlement, error) {
	pot, err := g.Pot()
	if err != nil {
		return nil, err
	}
	if s == seat1 {
		return PlanWin(Player1Wins, ReasonForfeit, g.Player1, pot), nil
	}
	return PlanWin(Player2Wins, ReasonForfeit, g.Player2, pot), nil
}
