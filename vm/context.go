package vm

import (
	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"

	"github.com/tolelom/rpschain/core"
	"github.com/tolelom/rpschain/events"
)

// Context is passed to every Handler and provides access to the chain
// state, the current block, the triggering transaction and its group, and
// the receipt being built for it.
type Context struct {
	State   core.State
	Block   *core.Block
	Tx      *core.Transaction
	Group   []*core.Transaction
	Index   int
	Receipt *core.Receipt
	Logger  log.Logger

	events *[]events.Event
}

// Round returns the round the transaction executes in.
func (c *Context) Round() uint64 { return c.Block.Header.Round }

// Prev returns the group member immediately before the current one.
func (c *Context) Prev() (*core.Transaction, bool) {
	if c.Index <= 0 || c.Index > len(c.Group) {
		return nil, false
	}
	return c.Group[c.Index-1], true
}

// Log appends a line to the transaction's log output.
func (c *Context) Log(line []byte) {
	c.Receipt.Logs = append(c.Receipt.Logs, append([]byte(nil), line...))
}

// Emit queues an event. Queued events are published only if the whole
// group commits.
func (c *Context) Emit(typ events.EventType, data map[string]any) {
	if c.events == nil {
		return
	}
	*c.events = append(*c.events, events.Event{
		Type:  typ,
		TxID:  c.Tx.ID,
		Round: c.Round(),
		Data:  data,
	})
}

// Transfer moves amount from one account to another.
func (c *Context) Transfer(from, to string, amount uint64) error {
	sender, err := c.State.GetAccount(from)
	if err != nil {
		return err
	}
	if sender.Balance < amount {
		return errorsmod.Wrapf(core.ErrInsufficientFunds, "%s has %d, needs %d", from, sender.Balance, amount)
	}
	sender.Balance -= amount
	if err := c.State.SetAccount(sender); err != nil {
		return err
	}

	recipient, err := c.State.GetAccount(to)
	if err != nil {
		return err
	}
	if recipient.Balance > ^uint64(0)-amount {
		return errorsmod.Wrapf(core.ErrInsufficientFunds, "balance of %s overflows", to)
	}
	recipient.Balance += amount
	return c.State.SetAccount(recipient)
}

// InnerPay issues a payment from an application's escrow account. The
// application pays core.MinTxFee on top of amount.
func (c *Context) InnerPay(appAddress, to string, amount uint64) error {
	if amount > ^uint64(0)-core.MinTxFee {
		return errorsmod.Wrap(core.ErrInsufficientFunds, "inner payment overflows")
	}
	acc, err := c.State.GetAccount(appAddress)
	if err != nil {
		return err
	}
	if acc.Balance < amount+core.MinTxFee {
		return errorsmod.Wrapf(core.ErrInsufficientFunds, "application %s has %d, needs %d", appAddress, acc.Balance, amount+core.MinTxFee)
	}
	acc.Balance -= core.MinTxFee
	if err := c.State.SetAccount(acc); err != nil {
		return err
	}
	if err := c.Transfer(appAddress, to, amount); err != nil {
		return err
	}
	c.Receipt.InnerTxns = append(c.Receipt.InnerTxns, core.InnerTxn{
		Sender:   appAddress,
		Receiver: to,
		Amount:   amount,
		Fee:      core.MinTxFee,
	})
	c.Emit(events.EventPayment, map[string]any{"from": appAddress, "to": to, "amount": amount, "inner": true})
	return nil
}
