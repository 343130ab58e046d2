package core

import (
	"errors"

	errorsmod "cosmossdk.io/errors"
)

// LedgerCodespace scopes ledger-level error codes.
const LedgerCodespace = "ledger"

// ErrNotFound is returned when a requested object does not exist in storage.
var ErrNotFound = errors.New("not found")

var (
	ErrInvalidGroup      = errorsmod.Register(LedgerCodespace, 2, "invalid transaction group")
	ErrInsufficientFunds = errorsmod.Register(LedgerCodespace, 3, "insufficient funds")
	ErrSchemaViolation   = errorsmod.Register(LedgerCodespace, 4, "global state schema violation")
	ErrBadNonce          = errorsmod.Register(LedgerCodespace, 5, "invalid nonce")
	ErrFeeTooLow         = errorsmod.Register(LedgerCodespace, 6, "fee below minimum")
	ErrUnknownTxType     = errorsmod.Register(LedgerCodespace, 7, "unknown transaction type")
)

// PoolError describes why the ledger dropped a pending transaction. When
// the failure wraps a registered error its codespace and code are kept so
// clients can map it back to the same sentinel.
type PoolError struct {
	Reason    string `json:"reason"`
	Codespace string `json:"codespace,omitempty"`
	Code      uint32 `json:"code,omitempty"`
}

// NewPoolError captures err as a PoolError.
func NewPoolError(err error) PoolError {
	pe := PoolError{Reason: err.Error()}
	var coded *errorsmod.Error
	if errors.As(err, &coded) {
		pe.Codespace = coded.Codespace()
		pe.Code = coded.ABCICode()
	}
	return pe
}
