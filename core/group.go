package core

import (
	"fmt"

	errorsmod "cosmossdk.io/errors"

	"github.com/tolelom/rpschain/crypto"
)

// MaxGroupSize bounds the number of transactions in one atomic group.
const MaxGroupSize = 16

// ComputeGroupID derives the id shared by the members of an atomic group.
// It is computed over the member hashes with their Group field cleared, so
// it commits to order and content but not to itself.
func ComputeGroupID(txs []*Transaction) (string, error) {
	if len(txs) < 2 || len(txs) > MaxGroupSize {
		return "", errorsmod.Wrapf(ErrInvalidGroup, "group size %d outside [2, %d]", len(txs), MaxGroupSize)
	}
	parts := make([][]byte, len(txs))
	for i, tx := range txs {
		cp := *tx
		cp.Group = ""
		parts[i] = []byte(cp.Hash())
	}
	return crypto.HashParts(parts...), nil
}

// ValidateGroup checks that txs are a single standalone transaction or a
// complete, correctly ordered atomic group.
func ValidateGroup(txs []*Transaction) error {
	switch {
	case len(txs) == 0:
		return errorsmod.Wrap(ErrInvalidGroup, "empty group")
	case len(txs) == 1:
		if txs[0].Group != "" {
			return errorsmod.Wrapf(ErrInvalidGroup, "tx %s claims group %s but was submitted alone", txs[0].ID, txs[0].Group)
		}
		return nil
	}
	gid, err := ComputeGroupID(txs)
	if err != nil {
		return err
	}
	for i, tx := range txs {
		if tx.Group != gid {
			return errorsmod.Wrapf(ErrInvalidGroup, "member %d carries group %q, want %q", i, tx.Group, gid)
		}
	}
	return nil
}

// Batch is an atomic group under construction: either every member is
// applied or none is. Build it from unsigned transactions, then Sign.
type Batch struct {
	txs []*Transaction
	id  string
}

// NewBatch assigns a group id to txs (when there is more than one) and
// returns the batch. The transactions must not be signed yet because the
// group id is part of what each signature covers.
func NewBatch(txs ...*Transaction) (*Batch, error) {
	if len(txs) == 0 {
		return nil, errorsmod.Wrap(ErrInvalidGroup, "empty batch")
	}
	for i, tx := range txs {
		if tx.Signature != "" {
			return nil, errorsmod.Wrapf(ErrInvalidGroup, "member %d is already signed", i)
		}
	}
	b := &Batch{txs: append([]*Transaction(nil), txs...)}
	if len(txs) == 1 {
		return b, nil
	}
	gid, err := ComputeGroupID(txs)
	if err != nil {
		return nil, err
	}
	for _, tx := range b.txs {
		tx.Group = gid
	}
	b.id = gid
	return b, nil
}

// NewPaidCall builds the [payment][call] shape used to attach value to an
// application call: the payment immediately precedes the call, comes from
// the same sender, and pays the called application's escrow address.
func NewPaidCall(payment, call *Transaction) (*Batch, error) {
	pay, err := payment.Payment()
	if err != nil {
		return nil, errorsmod.Wrap(ErrInvalidGroup, err.Error())
	}
	appl, err := call.AppCall()
	if err != nil {
		return nil, errorsmod.Wrap(ErrInvalidGroup, err.Error())
	}
	if payment.From != call.From {
		return nil, errorsmod.Wrap(ErrInvalidGroup, "payment and call must share a sender")
	}
	if appl.OnComplete != OnNoOp || pay.To != crypto.AppAddress(appl.AppID) {
		return nil, errorsmod.Wrapf(ErrInvalidGroup, "payment must be addressed to application %d", appl.AppID)
	}
	return NewBatch(payment, call)
}

// ID returns the group id, or "" for a single-transaction batch.
func (b *Batch) ID() string { return b.id }

// Len returns the number of transactions in the batch.
func (b *Batch) Len() int { return len(b.txs) }

// Txs returns the members in group order.
func (b *Batch) Txs() []*Transaction {
	return append([]*Transaction(nil), b.txs...)
}

// TxIDs returns the member ids in group order. Valid after Sign.
func (b *Batch) TxIDs() []string {
	ids := make([]string, len(b.txs))
	for i, tx := range b.txs {
		ids[i] = tx.ID
	}
	return ids
}

// Sign signs every member with the key matching its sender.
func (b *Batch) Sign(keys ...crypto.PrivateKey) error {
	byAddr := make(map[string]crypto.PrivateKey, len(keys))
	for _, k := range keys {
		byAddr[k.Public().Hex()] = k
	}
	for i, tx := range b.txs {
		k, ok := byAddr[tx.From]
		if !ok {
			return fmt.Errorf("no key for member %d sender %s", i, tx.From)
		}
		tx.Sign(k)
	}
	return nil
}
