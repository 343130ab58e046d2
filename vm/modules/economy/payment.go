// Package economy implements native token payments.
package economy

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tolelom/rpschain/core"
	"github.com/tolelom/rpschain/crypto"
	"github.com/tolelom/rpschain/events"
	"github.com/tolelom/rpschain/vm"
)

func init() {
	vm.Register(core.TxPayment, handlePayment)
}

func handlePayment(ctx *vm.Context, payload json.RawMessage) error {
	var p core.PaymentPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode pay payload: %w", err)
	}
	if p.Amount == 0 {
		return errors.New("payment amount must be > 0")
	}
	if !crypto.IsAddress(p.To) {
		return fmt.Errorf("invalid receiver %q", p.To)
	}
	if err := ctx.Transfer(ctx.Tx.From, p.To, p.Amount); err != nil {
		return err
	}
	ctx.Emit(events.EventPayment, map[string]any{
		"from":   ctx.Tx.From,
		"to":     p.To,
		"amount": p.Amount,
	})
	return nil
}
