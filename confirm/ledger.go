// Package confirm submits transaction groups to the ledger and waits,
// round by round, until they are confirmed, rejected, or out of time.
package confirm

//go:generate mockgen -source ledger.go -destination ledger_mocks.go -package confirm

import (
	"context"

	"github.com/tolelom/rpschain/core"
)

// Ledger is the part of the ledger's query/submit API the protocol uses.
// It is also the protocol's only round source, so tests drive time by
// faking it.
type Ledger interface {
	// Status returns the ledger's current round.
	Status(ctx context.Context) (*core.NodeStatus, error)
	// StatusAfterRound blocks until a round later than round exists (or
	// the ledger gives up waiting) and returns the status at that time.
	StatusAfterRound(ctx context.Context, round uint64) (*core.NodeStatus, error)
	// PendingTransaction reports whether txID is pending, confirmed, or
	// dropped with a pool error.
	PendingTransaction(ctx context.Context, txID string) (*core.PendingTxInfo, error)
	// SendGroup submits signed transactions as one atomic group and
	// returns the id of the first member.
	SendGroup(ctx context.Context, txs []*core.Transaction) (string, error)
}
