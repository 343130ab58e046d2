// Package client drives a game from one player's side: it builds each
// operation's group, signs it and waits for the ledger to confirm it.
package client

import (
	"context"
	"fmt"

	"cosmossdk.io/log"

	"github.com/tolelom/rpschain/confirm"
	"github.com/tolelom/rpschain/core"
	"github.com/tolelom/rpschain/rpc"
	"github.com/tolelom/rpschain/vm/modules/rps"
	"github.com/tolelom/rpschain/wallet"
)

// Player is one participant's session against a node. Calls on a Player
// must not overlap: nonces are read from the ledger per operation.
type Player struct {
	wallet        *wallet.Wallet
	node          *rpc.Client
	waiter        *confirm.Waiter
	timeoutRounds uint64
	logger        log.Logger
}

// NewPlayer creates a session for w against node. timeoutRounds of 0
// uses confirm.DefaultTimeoutRounds.
func NewPlayer(w *wallet.Wallet, node *rpc.Client, timeoutRounds uint64, logger log.Logger) *Player {
	return &Player{
		wallet:        w,
		node:          node,
		waiter:        confirm.NewWaiter(node, confirm.WithLogger(logger), confirm.WithKnownErrors(rps.Errors()...)),
		timeoutRounds: timeoutRounds,
		logger:        logger.With("module", "client", "player", w.Address()),
	}
}

// Address returns the player's account address.
func (p *Player) Address() string { return p.wallet.Address() }

func (p *Player) nonce(ctx context.Context) (uint64, error) {
	acc, err := p.node.GetAccount(ctx, p.wallet.Address())
	if err != nil {
		return 0, fmt.Errorf("read nonce: %w", err)
	}
	return acc.Nonce, nil
}

// CreateGame deploys a new game built from params and returns its id.
func (p *Player) CreateGame(ctx context.Context, params rps.Params) (uint64, error) {
	art, err := rps.Build(params)
	if err != nil {
		return 0, err
	}
	code, err := art.Encode()
	if err != nil {
		return 0, err
	}
	nonce, err := p.nonce(ctx)
	if err != nil {
		return 0, err
	}
	tx, err := p.wallet.CreateApp(nonce, code, rps.GlobalSchema)
	if err != nil {
		return 0, err
	}
	b, err := p.wallet.Single(tx)
	if err != nil {
		return 0, err
	}
	res, err := p.waiter.SubmitAndWait(ctx, b, p.timeoutRounds)
	if err != nil {
		return 0, fmt.Errorf("create game: %w", err)
	}
	id := res.ApplicationIndex()
	if id == 0 {
		return 0, fmt.Errorf("create game: confirmed in round %d without an application id", res.ConfirmedRound)
	}
	p.logger.Info("game created", "app", id, "round", res.ConfirmedRound)
	return id, nil
}

// Setup funds the game's account and opens bidding. Only the creator may
// call it. The funding amount is read from the deployed program.
func (p *Player) Setup(ctx context.Context, appID uint64) (*confirm.Result, error) {
	view, err := p.node.GetApplication(ctx, appID)
	if err != nil {
		return nil, err
	}
	params, err := rps.ParamsOf(view.Program)
	if err != nil {
		return nil, err
	}
	return p.paidCall(ctx, appID, params.SetupFunding, rps.SetupArgs())
}

// Bid adds amount to the player's stake, claiming a seat on first bid.
func (p *Player) Bid(ctx context.Context, appID, amount uint64) (*confirm.Result, error) {
	return p.paidCall(ctx, appID, amount, rps.BidArgs(amount))
}

// Commit submits the commitment to move under a fresh secret. The secret
// is returned and must be kept until Reveal.
func (p *Player) Commit(ctx context.Context, appID uint64, move rps.Move) ([]byte, *confirm.Result, error) {
	secret, err := rps.NewSecret()
	if err != nil {
		return nil, nil, err
	}
	res, err := p.CommitWith(ctx, appID, move, secret)
	if err != nil {
		return nil, nil, err
	}
	return secret, res, nil
}

// CommitWith submits the commitment to move under a caller-chosen secret.
func (p *Player) CommitWith(ctx context.Context, appID uint64, move rps.Move, secret []byte) (*confirm.Result, error) {
	if !move.Valid() {
		return nil, fmt.Errorf("invalid move %d", move)
	}
	d := rps.Commit(move, secret, p.wallet.Address())
	return p.call(ctx, appID, rps.CommitArgs(d))
}

// Reveal opens the player's commitment. When it is the second reveal the
// result carries the settlement log and the payouts.
func (p *Player) Reveal(ctx context.Context, appID uint64, move rps.Move, secret []byte) (*confirm.Result, error) {
	return p.call(ctx, appID, rps.RevealArgs(move, secret))
}

// Timeout settles a game whose deadline has passed.
func (p *Player) Timeout(ctx context.Context, appID uint64) (*confirm.Result, error) {
	return p.call(ctx, appID, rps.TimeoutArgs())
}

// Game reads the game's state from its global key/value projection.
func (p *Player) Game(ctx context.Context, appID uint64) (*rps.GameState, error) {
	view, err := p.node.GetApplication(ctx, appID)
	if err != nil {
		return nil, err
	}
	return rps.StateFromGlobals(view.GlobalState)
}

// Games lists the games the player created or staked in.
func (p *Player) Games(ctx context.Context) ([]uint64, error) {
	return p.node.GetGamesByPlayer(ctx, p.wallet.Address())
}

func (p *Player) call(ctx context.Context, appID uint64, args [][]byte) (*confirm.Result, error) {
	nonce, err := p.nonce(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := p.wallet.CallApp(nonce, appID, args)
	if err != nil {
		return nil, err
	}
	b, err := p.wallet.Single(tx)
	if err != nil {
		return nil, err
	}
	return p.submit(ctx, appID, string(args[0]), b)
}

func (p *Player) paidCall(ctx context.Context, appID, amount uint64, args [][]byte) (*confirm.Result, error) {
	nonce, err := p.nonce(ctx)
	if err != nil {
		return nil, err
	}
	b, err := p.wallet.PaidCall(nonce, appID, amount, args)
	if err != nil {
		return nil, err
	}
	return p.submit(ctx, appID, string(args[0]), b)
}

func (p *Player) submit(ctx context.Context, appID uint64, method string, b *core.Batch) (*confirm.Result, error) {
	res, err := p.waiter.SubmitAndWait(ctx, b, p.timeoutRounds)
	if err != nil {
		return nil, fmt.Errorf("%s game %d: %w", method, appID, err)
	}
	for _, line := range res.Logs() {
		p.logger.Debug("program log", "app", appID, "line", string(line))
	}
	p.logger.Info("operation confirmed", "app", appID, "method", method, "round", res.ConfirmedRound)
	return res, nil
}
