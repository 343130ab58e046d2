package confirm

import (
	"context"
	"fmt"
	"time"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"

	"github.com/tolelom/rpschain/core"
)

// DefaultTimeoutRounds is how many rounds a wait lasts when the caller
// does not say.
const DefaultTimeoutRounds uint64 = 10

// DefaultMaxWait bounds the wall time of one wait when the ledger stops
// producing rounds.
const DefaultMaxWait = 5 * time.Minute

type kindKey struct {
	codespace string
	code      uint32
}

// Option configures a Waiter.
type Option func(*Waiter)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger log.Logger) Option {
	return func(w *Waiter) { w.logger = logger.With("module", "confirm") }
}

// WithMaxWait bounds how long a wait may take in wall time, regardless of
// the round budget. Zero removes the bound.
func WithMaxWait(d time.Duration) Option {
	return func(w *Waiter) { w.maxWait = d }
}

// WithKnownErrors lets pool errors carrying these codes be matched with
// errors.Is against the same sentinels on the client side.
func WithKnownErrors(errs ...*errorsmod.Error) Option {
	return func(w *Waiter) {
		for _, e := range errs {
			w.known[kindKey{e.Codespace(), e.ABCICode()}] = e
		}
	}
}

// Waiter runs the confirmation protocol against one ledger. It holds no
// mutable state, so any number of goroutines may wait through it at once.
type Waiter struct {
	ledger  Ledger
	logger  log.Logger
	maxWait time.Duration
	known   map[kindKey]*errorsmod.Error
}

// NewWaiter creates a Waiter. Ledger-level error kinds are always known.
func NewWaiter(ledger Ledger, opts ...Option) *Waiter {
	w := &Waiter{
		ledger:  ledger,
		logger:  log.NewNopLogger(),
		maxWait: DefaultMaxWait,
		known:   make(map[kindKey]*errorsmod.Error),
	}
	WithKnownErrors(
		core.ErrInvalidGroup,
		core.ErrInsufficientFunds,
		core.ErrSchemaViolation,
		core.ErrBadNonce,
		core.ErrFeeTooLow,
		core.ErrUnknownTxType,
	)(w)
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WaitForConfirmation blocks until txID is confirmed, the ledger drops it
// (ErrPoolRejected) or timeoutRounds rounds pass without either
// (ErrConfirmationTimeout). Only rounds the ledger actually reports count
// against the budget; a stalled ledger runs into the wall-time bound
// instead, which also yields ErrConfirmationTimeout. A timeout says
// nothing about the outcome.
func (w *Waiter) WaitForConfirmation(ctx context.Context, txID string, timeoutRounds uint64) (*core.PendingTxInfo, error) {
	if timeoutRounds == 0 {
		timeoutRounds = DefaultTimeoutRounds
	}
	waitCtx := ctx
	if w.maxWait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, w.maxWait)
		defer cancel()
	}

	st, err := w.ledger.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger status: %w", err)
	}
	lastRound := st.LastRound
	startRound := lastRound
	w.logger.Debug("waiting for confirmation", "tx", txID, "round", startRound, "timeout_rounds", timeoutRounds)

	for lastRound < startRound+timeoutRounds {
		info, err := w.ledger.PendingTransaction(ctx, txID)
		if err != nil {
			return nil, fmt.Errorf("pending transaction %s: %w", txID, err)
		}
		if info.ConfirmedRound > 0 {
			w.logger.Debug("transaction confirmed", "tx", txID, "round", info.ConfirmedRound)
			return info, nil
		}
		if info.PoolError != "" {
			rej := w.rejected(txID, info)
			w.logger.Warn("transaction rejected", "tx", txID, "reason", info.PoolError)
			return nil, rej
		}

		st, err = w.ledger.StatusAfterRound(waitCtx, lastRound)
		if err != nil {
			if ctx.Err() == nil && waitCtx.Err() != nil {
				return nil, w.stalled(txID, lastRound-startRound)
			}
			return nil, fmt.Errorf("wait for round %d: %w", lastRound+1, err)
		}
		if st.LastRound > lastRound {
			lastRound = st.LastRound
		} else if waitCtx.Err() != nil {
			return nil, w.stalled(txID, lastRound-startRound)
		}
	}

	w.logger.Warn("confirmation timed out", "tx", txID, "rounds", timeoutRounds)
	return nil, errorsmod.Wrapf(ErrConfirmationTimeout, "tx %s not confirmed after %d rounds", txID, timeoutRounds)
}

func (w *Waiter) stalled(txID string, rounds uint64) error {
	w.logger.Warn("ledger stalled during confirmation", "tx", txID, "rounds_seen", rounds, "max_wait", w.maxWait.String())
	return errorsmod.Wrapf(ErrConfirmationTimeout, "tx %s not confirmed within %s (%d rounds seen)", txID, w.maxWait, rounds)
}

func (w *Waiter) rejected(txID string, info *core.PendingTxInfo) *PoolRejectedError {
	rej := &PoolRejectedError{
		TxID:      txID,
		Reason:    info.PoolError,
		Codespace: info.PoolErrorCodespace,
		Code:      info.PoolErrorCode,
	}
	if kind, ok := w.known[kindKey{info.PoolErrorCodespace, info.PoolErrorCode}]; ok {
		rej.Kind = kind
	}
	return rej
}

// SubmitAndWait sends a signed batch and waits for it. All members of a
// group confirm in the same round, so the wait follows the first member
// and then collects the rest.
func (w *Waiter) SubmitAndWait(ctx context.Context, b *core.Batch, timeoutRounds uint64) (*Result, error) {
	txs := b.Txs()
	if len(txs) == 0 {
		return nil, errorsmod.Wrap(core.ErrInvalidGroup, "empty batch")
	}
	id, err := w.ledger.SendGroup(ctx, txs)
	if err != nil {
		return nil, fmt.Errorf("send group: %w", err)
	}
	if id != txs[0].ID {
		return nil, fmt.Errorf("ledger accepted %s, expected %s", id, txs[0].ID)
	}

	first, err := w.WaitForConfirmation(ctx, id, timeoutRounds)
	if err != nil {
		return nil, err
	}
	res := &Result{GroupID: b.ID(), ConfirmedRound: first.ConfirmedRound, Txns: []*core.PendingTxInfo{first}}
	for _, tx := range txs[1:] {
		info, err := w.ledger.PendingTransaction(ctx, tx.ID)
		if err != nil {
			return nil, fmt.Errorf("pending transaction %s: %w", tx.ID, err)
		}
		if info.ConfirmedRound != first.ConfirmedRound {
			return nil, fmt.Errorf("group member %s confirmed in round %d, group in %d", tx.ID, info.ConfirmedRound, first.ConfirmedRound)
		}
		res.Txns = append(res.Txns, info)
	}
	return res, nil
}
