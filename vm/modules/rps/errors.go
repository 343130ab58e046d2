package rps

import errorsmod "cosmossdk.io/errors"

// Codespace scopes the game's error codes.
const Codespace = "rps"

var (
	ErrInvalidGroupShape   = errorsmod.Register(Codespace, 2, "invalid group shape")
	ErrPhaseViolation      = errorsmod.Register(Codespace, 3, "operation not valid in current phase")
	ErrUnauthorizedCaller  = errorsmod.Register(Codespace, 4, "unauthorized caller")
	ErrDuplicateSubmission = errorsmod.Register(Codespace, 5, "duplicate submission")
	ErrCommitmentMismatch  = errorsmod.Register(Codespace, 6, "reveal does not match commitment")
	ErrInvalidArgument     = errorsmod.Register(Codespace, 7, "invalid argument")
)

// Errors lists the game's error kinds, for clients that map pool errors
// back to sentinels.
func Errors() []*errorsmod.Error {
	return []*errorsmod.Error{
		ErrInvalidGroupShape,
		ErrPhaseViolation,
		ErrUnauthorizedCaller,
		ErrDuplicateSubmission,
		ErrCommitmentMismatch,
		ErrInvalidArgument,
	}
}
