package vm

import (
	"fmt"
	"math"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"

	"github.com/tolelom/rpschain/core"
	"github.com/tolelom/rpschain/events"
)

// GroupResult is what a committed group produced. Events are returned
// rather than emitted so the caller can publish them once the block is
// durable.
type GroupResult struct {
	Receipts []*core.Receipt
	Events   []events.Event
}

// Executor applies transaction groups to the state using the global
// Handler registry.
type Executor struct {
	state   core.State
	chainID string
	logger  log.Logger
}

// NewExecutor creates an Executor for chainID over state.
func NewExecutor(state core.State, chainID string, logger log.Logger) *Executor {
	return &Executor{state: state, chainID: chainID, logger: logger.With("module", "vm")}
}

// ExecuteGroup applies every member of group in order. Either all members
// take effect and their receipts are stored, or the state is rolled back
// to where it was before the group and the first failure is returned.
func (e *Executor) ExecuteGroup(block *core.Block, group []*core.Transaction) (*GroupResult, error) {
	if err := core.ValidateGroup(group); err != nil {
		return nil, err
	}
	for i, tx := range group {
		if err := tx.Verify(); err != nil {
			return nil, errorsmod.Wrapf(err, "tx %s (group index %d): signature", tx.ID, i)
		}
	}

	snapID, err := e.state.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	res := &GroupResult{Receipts: make([]*core.Receipt, 0, len(group))}
	for i, tx := range group {
		rcpt, err := e.applyTx(block, group, i, &res.Events)
		if err != nil {
			if revertErr := e.state.RevertToSnapshot(snapID); revertErr != nil {
				return nil, errorsmod.Wrapf(err, "revert snapshot after tx failure (revert: %s)", revertErr.Error())
			}
			return nil, errorsmod.Wrapf(err, "tx %s (group index %d)", tx.ID, i)
		}
		res.Receipts = append(res.Receipts, rcpt)
	}

	for _, rcpt := range res.Receipts {
		if err := e.state.SetReceipt(rcpt); err != nil {
			_ = e.state.RevertToSnapshot(snapID)
			return nil, fmt.Errorf("store receipt %s: %w", rcpt.TxID, err)
		}
		res.Events = append(res.Events, events.Event{
			Type:  events.EventTxExecuted,
			TxID:  rcpt.TxID,
			Round: rcpt.ConfirmedRound,
			Data:  map[string]any{"type": string(rcpt.Txn.Type), "from": rcpt.Txn.From, "group": rcpt.GroupID},
		})
	}
	e.logger.Debug("group applied", "round", block.Header.Round, "size", len(group), "group", group[0].Group)
	return res, nil
}

// applyTx checks the envelope, deducts the fee, increments the nonce, then
// dispatches to the handler.
func (e *Executor) applyTx(block *core.Block, group []*core.Transaction, index int, evs *[]events.Event) (*core.Receipt, error) {
	tx := group[index]
	if tx.ChainID != e.chainID {
		return nil, errorsmod.Wrapf(core.ErrInvalidGroup, "chain id %q, want %q", tx.ChainID, e.chainID)
	}
	if tx.Fee < core.MinTxFee {
		return nil, errorsmod.Wrapf(core.ErrFeeTooLow, "fee %d below %d", tx.Fee, core.MinTxFee)
	}

	acc, err := e.state.GetAccount(tx.From)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if acc.Nonce != tx.Nonce {
		return nil, errorsmod.Wrapf(core.ErrBadNonce, "expected %d got %d", acc.Nonce, tx.Nonce)
	}
	if acc.Balance < tx.Fee {
		return nil, errorsmod.Wrapf(core.ErrInsufficientFunds, "fee: have %d need %d", acc.Balance, tx.Fee)
	}
	if acc.Nonce == math.MaxUint64 {
		return nil, errorsmod.Wrapf(core.ErrBadNonce, "nonce overflow for account %s", tx.From)
	}
	acc.Balance -= tx.Fee
	acc.Nonce++
	if err := e.state.SetAccount(acc); err != nil {
		return nil, err
	}

	rcpt := &core.Receipt{
		TxID:           tx.ID,
		Txn:            tx,
		GroupID:        tx.Group,
		ConfirmedRound: block.Header.Round,
	}
	ctx := &Context{
		State:   e.state,
		Block:   block,
		Tx:      tx,
		Group:   group,
		Index:   index,
		Receipt: rcpt,
		Logger:  e.logger,
		events:  evs,
	}
	if err := globalRegistry.Execute(tx.Type, ctx, tx.Payload); err != nil {
		return nil, err
	}
	return rcpt, nil
}
