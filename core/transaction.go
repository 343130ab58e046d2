package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tolelom/rpschain/crypto"
)

// TxType identifies the kind of operation a transaction performs.
type TxType string

const (
	TxPayment TxType = "pay"
	TxAppCall TxType = "appl"
)

// MinTxFee is the smallest fee the ledger accepts, for top-level and inner
// transactions alike.
const MinTxFee uint64 = 1_000

// Transaction is the unit of work on the chain.
// From holds the sender's full hex-encoded ed25519 public key (64 chars).
// Group is empty for a standalone transaction; inside an atomic group every
// member carries the same group id. Signature covers all fields except
// Signature and ID.
type Transaction struct {
	ID        string          `json:"id"`
	ChainID   string          `json:"chain_id"`
	Type      TxType          `json:"type"`
	From      string          `json:"from"`
	Nonce     uint64          `json:"nonce"`
	Fee       uint64          `json:"fee"`
	Timestamp int64           `json:"timestamp"`
	Group     string          `json:"group,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	Signature string          `json:"signature"`
}

type signingBody struct {
	ChainID   string          `json:"chain_id"`
	Type      TxType          `json:"type"`
	From      string          `json:"from"`
	Nonce     uint64          `json:"nonce"`
	Fee       uint64          `json:"fee"`
	Timestamp int64           `json:"timestamp"`
	Group     string          `json:"group,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

// Hash returns a deterministic hash of the transaction (sans Signature).
// Returns an empty string if marshalling fails (which cannot happen in practice).
func (tx *Transaction) Hash() string {
	data, err := json.Marshal(signingBody{
		ChainID:   tx.ChainID,
		Type:      tx.Type,
		From:      tx.From,
		Nonce:     tx.Nonce,
		Fee:       tx.Fee,
		Timestamp: tx.Timestamp,
		Group:     tx.Group,
		Payload:   tx.Payload,
	})
	if err != nil {
		return ""
	}
	return crypto.Hash(data)
}

// Sign computes the signature and sets ID.
func (tx *Transaction) Sign(priv crypto.PrivateKey) {
	hash := tx.Hash()
	tx.Signature = crypto.Sign(priv, []byte(hash))
	tx.ID = hash
}

// Verify checks the signature and that From is a valid public key.
func (tx *Transaction) Verify() error {
	if tx.From == "" {
		return errors.New("missing from field")
	}
	return crypto.VerifyFrom(tx.From, []byte(tx.Hash()), tx.Signature)
}

// Payment decodes the payload of a payment transaction.
func (tx *Transaction) Payment() (*PaymentPayload, error) {
	if tx.Type != TxPayment {
		return nil, fmt.Errorf("tx %s is %q, not a payment", tx.ID, tx.Type)
	}
	var p PaymentPayload
	if err := json.Unmarshal(tx.Payload, &p); err != nil {
		return nil, fmt.Errorf("decode pay payload: %w", err)
	}
	return &p, nil
}

// AppCall decodes the payload of an application call transaction.
func (tx *Transaction) AppCall() (*AppCallPayload, error) {
	if tx.Type != TxAppCall {
		return nil, fmt.Errorf("tx %s is %q, not an application call", tx.ID, tx.Type)
	}
	var p AppCallPayload
	if err := json.Unmarshal(tx.Payload, &p); err != nil {
		return nil, fmt.Errorf("decode appl payload: %w", err)
	}
	return &p, nil
}

// NewTransaction creates an unsigned transaction with the current timestamp.
func NewTransaction(chainID string, typ TxType, from string, nonce, fee uint64, payload any) (*Transaction, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Transaction{
		ChainID:   chainID,
		Type:      typ,
		From:      from,
		Nonce:     nonce,
		Fee:       fee,
		Timestamp: time.Now().UnixNano(),
		Payload:   raw,
	}, nil
}

// ---- Payload types ----

// PaymentPayload moves native tokens from the sender to To.
type PaymentPayload struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// OnComplete selects what an application call does besides running the program.
type OnComplete string

const (
	OnCreate OnComplete = "create"
	OnNoOp   OnComplete = "noop"
)

// StateSchema declares how many global key/value slots an application may
// use. It is fixed at creation.
type StateSchema struct {
	NumUint      uint64 `json:"num_uint"`
	NumByteSlice uint64 `json:"num_byte_slice"`
}

// Covers reports whether s has at least as many slots of each kind as need.
func (s StateSchema) Covers(need StateSchema) bool {
	return s.NumUint >= need.NumUint && s.NumByteSlice >= need.NumByteSlice
}

// AppCallPayload creates or calls an application. Program and Schema are
// only read on create. Args[0] is conventionally the method name.
type AppCallPayload struct {
	AppID      uint64      `json:"app_id"`
	OnComplete OnComplete  `json:"on_complete"`
	Program    []byte      `json:"program,omitempty"`
	Schema     StateSchema `json:"global_schema"`
	Args       [][]byte    `json:"args,omitempty"`
}
