package core

import "encoding/json"

// Account holds a participant's token balance and replay-protection nonce.
// Address is the hex-encoded ed25519 public key, or an application's
// derived escrow address.
type Account struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

// Application is one instance of an on-ledger program. Global is owned by
// the program: the ledger only stores it and checks that its key/value
// projection fits Schema.
type Application struct {
	ID           uint64          `json:"id"`
	Creator      string          `json:"creator"`
	Address      string          `json:"address"`
	Program      []byte          `json:"program"`
	ProgramHash  string          `json:"program_hash"`
	Schema       StateSchema     `json:"global_schema"`
	Global       json.RawMessage `json:"global"`
	CreatedRound uint64          `json:"created_round"`
}

// State is the full ledger state interface. Implementations must be
// snapshot-able so the executor can roll back failed groups.
type State interface {
	// Accounts
	GetAccount(address string) (*Account, error)
	SetAccount(account *Account) error

	// Applications
	GetApp(id uint64) (*Application, error)
	SetApp(app *Application) error
	// NextAppID allocates the next application id.
	NextAppID() (uint64, error)

	// Receipts of confirmed transactions
	GetReceipt(txID string) (*Receipt, error)
	SetReceipt(r *Receipt) error

	// Snapshot / rollback / commit
	Snapshot() (int, error)
	RevertToSnapshot(id int) error
	// ComputeRoot returns the deterministic state root from the current write
	// buffer without flushing. Call this before signing a block.
	ComputeRoot() string
	// Commit flushes the write buffer to the underlying DB and clears it.
	Commit() error
}
