package confirm

import (
	"fmt"

	errorsmod "cosmossdk.io/errors"
)

// Codespace scopes the protocol's error codes.
const Codespace = "confirm"

var (
	// ErrPoolRejected means the ledger dropped the transaction. Nothing was
	// applied, so a corrected operation can be retried.
	ErrPoolRejected = errorsmod.Register(Codespace, 2, "rejected by the ledger")
	// ErrConfirmationTimeout means the round budget ran out. The
	// transaction may still apply: re-read ledger state before retrying.
	ErrConfirmationTimeout = errorsmod.Register(Codespace, 3, "confirmation timed out")
)

// PoolRejectedError carries the ledger's reason for dropping a
// transaction. It matches ErrPoolRejected and, when the ledger reported a
// known error code, that error's sentinel too.
type PoolRejectedError struct {
	TxID      string
	Reason    string
	Codespace string
	Code      uint32
	// Kind is the registered error the ledger reported, if recognised.
	Kind error
}

func (e *PoolRejectedError) Error() string {
	return fmt.Sprintf("tx %s rejected by the ledger: %s", e.TxID, e.Reason)
}

func (e *PoolRejectedError) Unwrap() []error {
	if e.Kind == nil {
		return []error{ErrPoolRejected}
	}
	return []error{ErrPoolRejected, e.Kind}
}
