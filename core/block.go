package core

import (
	"encoding/json"
	"time"

	"github.com/tolelom/rpschain/crypto"
)

// BlockHeader contains the block metadata that is hashed and signed.
// Round is the ledger's monotonically increasing counter; programs use it
// for deadlines.
type BlockHeader struct {
	Round     uint64 `json:"round"`
	PrevHash  string `json:"prev_hash"`
	StateRoot string `json:"state_root"` // hash of state after executing this block
	TxRoot    string `json:"tx_root"`    // hash of all transaction IDs
	Timestamp int64  `json:"timestamp"`
	Proposer  string `json:"proposer"` // proposer's pubkey hex
}

// Block is the set of transactions confirmed in one round.
type Block struct {
	Header       BlockHeader    `json:"header"`
	Transactions []*Transaction `json:"transactions"`
	Hash         string         `json:"hash"`
	Signature    string         `json:"signature"`
}

// ComputeHash returns the SHA-256 hash of the serialised header.
// Returns an empty string if marshalling fails (which cannot happen in practice).
func (b *Block) ComputeHash() string {
	data, err := json.Marshal(b.Header)
	if err != nil {
		return ""
	}
	return crypto.Hash(data)
}

// Sign sets Hash and signs the block with the proposer's private key.
func (b *Block) Sign(priv crypto.PrivateKey) {
	b.Hash = b.ComputeHash()
	b.Signature = crypto.Sign(priv, []byte(b.Hash))
}

// Verify checks the block signature against the proposer in the header.
func (b *Block) Verify() error {
	return crypto.VerifyFrom(b.Header.Proposer, []byte(b.Hash), b.Signature)
}

// SetTransactions replaces the block body and recomputes TxRoot. The
// proposer calls it once execution has decided which groups made it in.
func (b *Block) SetTransactions(txs []*Transaction) {
	b.Transactions = txs
	b.Header.TxRoot = ComputeTxRoot(txs)
}

// ComputeTxRoot builds a deterministic root hash from all transaction IDs.
func ComputeTxRoot(txs []*Transaction) string {
	if len(txs) == 0 {
		return crypto.Hash([]byte("empty"))
	}
	ids := make([][]byte, len(txs))
	for i, tx := range txs {
		ids[i] = []byte(tx.ID)
	}
	return crypto.HashParts(ids...)
}

// NewBlock creates an unsigned block with the given parameters.
func NewBlock(round uint64, prevHash, proposer string, txs []*Transaction) *Block {
	b := &Block{
		Header: BlockHeader{
			Round:     round,
			PrevHash:  prevHash,
			Timestamp: time.Now().UnixNano(),
			Proposer:  proposer,
		},
	}
	b.SetTransactions(txs)
	return b
}
