// Package rps is the rock-paper-scissors wager program: escrowed bids,
// commit-reveal moves and an on-ledger payout.
package rps

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	errorsmod "cosmossdk.io/errors"

	"github.com/tolelom/rpschain/core"
	"github.com/tolelom/rpschain/events"
	"github.com/tolelom/rpschain/vm"
)

// Method names, passed as args[0].
const (
	MethodSetup   = "setup"
	MethodBid     = "bid"
	MethodCommit  = "commit"
	MethodReveal  = "reveal"
	MethodTimeout = "timeout"
)

func init() {
	vm.RegisterProgram(ProgramName, func(raw json.RawMessage) (vm.Program, error) {
		p, err := decodeParams(raw)
		if err != nil {
			return nil, err
		}
		return &program{params: p}, nil
	})
}

type program struct {
	params Params
}

func (p *program) Schema() core.StateSchema { return GlobalSchema }

func (p *program) Globals(raw json.RawMessage) ([]core.KeyValue, error) {
	g, err := DecodeState(raw)
	if err != nil {
		return nil, err
	}
	return g.Globals()
}

func (p *program) Create(c *vm.Call) error {
	if len(c.Args) != 0 {
		return errorsmod.Wrap(ErrInvalidArgument, "create takes no arguments")
	}
	return p.save(c, NewGameState())
}

func (p *program) Call(c *vm.Call) error {
	g, err := DecodeState(c.App.Global)
	if err != nil {
		return err
	}
	switch m := c.Method(); m {
	case MethodSetup:
		err = p.setup(c, g)
	case MethodBid:
		err = p.bid(c, g)
	case MethodCommit:
		err = p.commit(c, g)
	case MethodReveal:
		err = p.reveal(c, g)
	case MethodTimeout:
		err = p.timeout(c, g)
	default:
		err = errorsmod.Wrapf(ErrInvalidArgument, "unknown method %q", m)
	}
	if err != nil {
		return err
	}
	return p.save(c, g)
}

func (p *program) setup(c *vm.Call, g *GameState) error {
	if err := wantArgs(c, 1); err != nil {
		return err
	}
	if c.Sender() != c.App.Creator {
		return errorsmod.Wrap(ErrUnauthorizedCaller, "only the creator can set up the game")
	}
	funded, err := precedingPayment(c)
	if err != nil {
		return err
	}
	if funded < p.params.SetupFunding {
		return errorsmod.Wrapf(ErrInvalidGroupShape, "setup funding %d below %d", funded, p.params.SetupFunding)
	}
	if err := g.Setup(c.Round(), p.params); err != nil {
		return err
	}
	c.Log([]byte(fmt.Sprintf("setup deadline=%d", g.DeadlineRound)))
	return nil
}

func (p *program) bid(c *vm.Call, g *GameState) error {
	if err := wantArgs(c, 2); err != nil {
		return err
	}
	amount, err := uintArg(c.Args[1])
	if err != nil {
		return err
	}
	paid, err := precedingPayment(c)
	if err != nil {
		return err
	}
	if paid != amount {
		return errorsmod.Wrapf(ErrInvalidGroupShape, "bid of %d backed by payment of %d", amount, paid)
	}
	advanced, err := g.Bid(c.Sender(), amount, c.Round(), p.params)
	if err != nil {
		return err
	}
	s1, s2 := g.Stakes()
	c.Log([]byte(fmt.Sprintf("bid player=%s amount=%d stakes=%d/%d", c.Sender(), amount, s1, s2)))
	c.Emit(events.EventStakeRegistered, map[string]any{
		"app_id": c.App.ID,
		"player": c.Sender(),
		"amount": amount,
	})
	if advanced {
		c.Log([]byte(fmt.Sprintf("bidding closed deadline=%d", g.DeadlineRound)))
	}
	return nil
}

func (p *program) commit(c *vm.Call, g *GameState) error {
	if err := wantArgs(c, 2); err != nil {
		return err
	}
	d, err := DigestFromBytes(c.Args[1])
	if err != nil {
		return errorsmod.Wrap(ErrInvalidArgument, err.Error())
	}
	advanced, err := g.CommitMove(c.Sender(), d, c.Round(), p.params)
	if err != nil {
		return err
	}
	c.Log([]byte(fmt.Sprintf("commit player=%s", c.Sender())))
	c.Emit(events.EventMoveCommitted, map[string]any{"app_id": c.App.ID, "player": c.Sender()})
	if advanced {
		c.Log([]byte(fmt.Sprintf("reveals open deadline=%d", g.DeadlineRound)))
	}
	return nil
}

func (p *program) reveal(c *vm.Call, g *GameState) error {
	if err := wantArgs(c, 3); err != nil {
		return err
	}
	if len(c.Args[1]) != 1 {
		return errorsmod.Wrap(ErrInvalidArgument, "move must be one byte")
	}
	m := Move(c.Args[1][0])
	st, err := g.RevealMove(c.Sender(), m, c.Args[2], c.Round())
	if err != nil {
		return err
	}
	c.Log([]byte(fmt.Sprintf("reveal player=%s move=%s", c.Sender(), m)))
	c.Emit(events.EventMoveRevealed, map[string]any{"app_id": c.App.ID, "player": c.Sender(), "move": m.String()})
	if st == nil {
		return nil
	}
	return p.disburse(c, st)
}

func (p *program) timeout(c *vm.Call, g *GameState) error {
	if err := wantArgs(c, 1); err != nil {
		return err
	}
	st, err := g.Timeout(c.Round())
	if err != nil {
		return err
	}
	return p.disburse(c, st)
}

// disburse pays out a settlement from the application account.
func (p *program) disburse(c *vm.Call, st *Settlement) error {
	for _, d := range st.Payouts {
		if err := c.Pay(d.To, d.Amount); err != nil {
			return errorsmod.Wrapf(err, "pay %s", d.To)
		}
	}
	c.Log([]byte(st.String()))
	c.Logger.Info("game settled", "app", c.App.ID, "outcome", st.Outcome.String(), "reason", string(st.Reason), "residual", st.Residual)
	c.Emit(events.EventGameSettled, map[string]any{
		"app_id":   c.App.ID,
		"outcome":  st.Outcome.String(),
		"reason":   string(st.Reason),
		"payouts":  st.Payouts,
		"residual": st.Residual,
	})
	return nil
}

func (p *program) save(c *vm.Call, g *GameState) error {
	raw, err := g.Encode()
	if err != nil {
		return err
	}
	c.App.Global = raw
	return nil
}

// precedingPayment returns the amount of the payment immediately before
// the call, which must come from the caller and pay this application.
func precedingPayment(c *vm.Call) (uint64, error) {
	prev, ok := c.Prev()
	if !ok {
		return 0, errorsmod.Wrap(ErrInvalidGroupShape, "call must follow a payment in the same group")
	}
	pay, err := prev.Payment()
	if err != nil {
		return 0, errorsmod.Wrap(ErrInvalidGroupShape, "transaction before the call is not a payment")
	}
	if prev.From != c.Sender() {
		return 0, errorsmod.Wrap(ErrInvalidGroupShape, "payment and call have different senders")
	}
	if pay.To != c.App.Address {
		return 0, errorsmod.Wrapf(ErrInvalidGroupShape, "payment goes to %s, not the application", pay.To)
	}
	return pay.Amount, nil
}

func wantArgs(c *vm.Call, n int) error {
	if len(c.Args) != n {
		return errorsmod.Wrapf(ErrInvalidArgument, "%s takes %d arguments, got %d", c.Method(), n-1, len(c.Args)-1)
	}
	return nil
}

func uintArg(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, errorsmod.Wrapf(ErrInvalidArgument, "integer argument must be 8 bytes, got %d", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}

// Uint encodes an integer call argument.
func Uint(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}

// Call arguments for each method.

func SetupArgs() [][]byte { return [][]byte{[]byte(MethodSetup)} }

func BidArgs(amount uint64) [][]byte { return [][]byte{[]byte(MethodBid), Uint(amount)} }

func CommitArgs(d Digest) [][]byte { return [][]byte{[]byte(MethodCommit), d[:]} }

func RevealArgs(m Move, secret []byte) [][]byte {
	return [][]byte{[]byte(MethodReveal), {byte(m)}, secret}
}

func TimeoutArgs() [][]byte { return [][]byte{[]byte(MethodTimeout)} }
