package rps

import (
	"math"

	errorsmod "cosmossdk.io/errors"

	"github.com/tolelom/rpschain/crypto"
)

// seat identifies a player slot.
type seat int

const (
	noSeat seat = iota
	seat1
	seat2
)

func (g *GameState) seatOf(addr string) seat {
	switch {
	case addr == crypto.ZeroAddress:
		return noSeat
	case addr == g.Player1:
		return seat1
	case addr == g.Player2:
		return seat2
	default:
		return noSeat
	}
}

// slotsFull reports whether both players are bound.
func (g *GameState) slotsFull() bool {
	return g.Player1 != crypto.ZeroAddress && g.Player2 != crypto.ZeroAddress
}

// registerStake credits amount to caller's stake, binding caller to the
// first empty slot if it is not yet a player.
func (g *GameState) registerStake(caller string, amount uint64) error {
	if amount == 0 {
		return errorsmod.Wrap(ErrInvalidArgument, "stake must be positive")
	}
	if caller == crypto.ZeroAddress {
		return errorsmod.Wrap(ErrUnauthorizedCaller, "zero address cannot play")
	}
	var stake *uint64
	switch {
	case g.Player1 == caller:
		stake = &g.Player1Stake
	case g.Player1 == crypto.ZeroAddress:
		g.Player1 = caller
		stake = &g.Player1Stake
	case g.Player2 == caller:
		stake = &g.Player2Stake
	case g.Player2 == crypto.ZeroAddress:
		g.Player2 = caller
		stake = &g.Player2Stake
	default:
		return errorsmod.Wrapf(ErrUnauthorizedCaller, "%s is not a player and both seats are taken", caller)
	}
	if *stake > math.MaxUint64-amount {
		return errorsmod.Wrap(ErrInvalidArgument, "stake overflows")
	}
	*stake += amount
	return nil
}

// Stakes returns both players' escrowed amounts.
func (g *GameState) Stakes() (player1, player2 uint64) {
	return g.Player1Stake, g.Player2Stake
}

// Pot is the combined escrow.
func (g *GameState) Pot() (uint64, error) {
	if g.Player1Stake > math.MaxUint64-g.Player2Stake {
		return 0, errorsmod.Wrap(ErrInvalidArgument, "pot overflows")
	}
	return g.Player1Stake + g.Player2Stake, nil
}
