package core

import (
	"bytes"
	"sort"
)

// ValueType tags a global state value.
type ValueType uint8

const (
	ValueUint  ValueType = 1
	ValueBytes ValueType = 2
)

// KeyValue is one slot of an application's global state projection.
type KeyValue struct {
	Key   string    `json:"key"`
	Type  ValueType `json:"type"`
	Uint  uint64    `json:"uint,omitempty"`
	Bytes []byte    `json:"bytes,omitempty"`
}

func (kv KeyValue) equal(o KeyValue) bool {
	return kv.Type == o.Type && kv.Uint == o.Uint && bytes.Equal(kv.Bytes, o.Bytes)
}

// SchemaUsage counts the slots of each kind used by kvs.
func SchemaUsage(kvs []KeyValue) StateSchema {
	var s StateSchema
	for _, kv := range kvs {
		switch kv.Type {
		case ValueUint:
			s.NumUint++
		case ValueBytes:
			s.NumByteSlice++
		}
	}
	return s
}

// DeltaAction says what happened to a key.
type DeltaAction string

const (
	DeltaSet    DeltaAction = "set"
	DeltaDelete DeltaAction = "delete"
)

// StateDelta is one changed key of a global state projection.
type StateDelta struct {
	Key    string      `json:"key"`
	Action DeltaAction `json:"action"`
	Value  *KeyValue   `json:"value,omitempty"`
}

// DiffGlobals returns the changes from before to after, sorted by key.
func DiffGlobals(before, after []KeyValue) []StateDelta {
	old := make(map[string]KeyValue, len(before))
	for _, kv := range before {
		old[kv.Key] = kv
	}
	var deltas []StateDelta
	seen := make(map[string]bool, len(after))
	for _, kv := range after {
		seen[kv.Key] = true
		if prev, ok := old[kv.Key]; ok && prev.equal(kv) {
			continue
		}
		v := kv
		deltas = append(deltas, StateDelta{Key: kv.Key, Action: DeltaSet, Value: &v})
	}
	for _, kv := range before {
		if !seen[kv.Key] {
			deltas = append(deltas, StateDelta{Key: kv.Key, Action: DeltaDelete})
		}
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].Key < deltas[j].Key })
	return deltas
}

// InnerTxn is a payment issued by an application during execution.
type InnerTxn struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Amount   uint64 `json:"amount"`
	Fee      uint64 `json:"fee"`
}

// Receipt records the effects of a confirmed transaction.
type Receipt struct {
	TxID             string       `json:"tx_id"`
	Txn              *Transaction `json:"txn"`
	GroupID          string       `json:"group_id,omitempty"`
	ConfirmedRound   uint64       `json:"confirmed_round"`
	ApplicationIndex uint64       `json:"application_index,omitempty"`
	Logs             [][]byte     `json:"logs,omitempty"`
	InnerTxns        []InnerTxn   `json:"inner_txns,omitempty"`
	GlobalDelta      []StateDelta `json:"global_state_delta,omitempty"`
}

// PendingTxInfo is the ledger's answer to "what happened to this
// transaction". Exactly one of these holds: ConfirmedRound > 0 (with the
// receipt fields filled), PoolError != "" (dropped), or neither (still
// pending).
type PendingTxInfo struct {
	Txn                *Transaction `json:"txn,omitempty"`
	PoolError          string       `json:"pool_error"`
	PoolErrorCodespace string       `json:"pool_error_codespace,omitempty"`
	PoolErrorCode      uint32       `json:"pool_error_code,omitempty"`
	ConfirmedRound     uint64       `json:"confirmed_round,omitempty"`
	ApplicationIndex   uint64       `json:"application_index,omitempty"`
	Logs               [][]byte     `json:"logs,omitempty"`
	InnerTxns          []InnerTxn   `json:"inner_txns,omitempty"`
	GlobalDelta        []StateDelta `json:"global_state_delta,omitempty"`
}

// ConfirmedInfo builds the confirmed view of a receipt.
func (r *Receipt) ConfirmedInfo() *PendingTxInfo {
	return &PendingTxInfo{
		Txn:              r.Txn,
		ConfirmedRound:   r.ConfirmedRound,
		ApplicationIndex: r.ApplicationIndex,
		Logs:             r.Logs,
		InnerTxns:        r.InnerTxns,
		GlobalDelta:      r.GlobalDelta,
	}
}

// RejectedInfo builds the dropped view of a pool error.
func (pe PoolError) RejectedInfo() *PendingTxInfo {
	return &PendingTxInfo{
		PoolError:          pe.Reason,
		PoolErrorCodespace: pe.Codespace,
		PoolErrorCode:      pe.Code,
	}
}

// NodeStatus is the ledger's current position.
type NodeStatus struct {
	ChainID       string `json:"chain_id"`
	LastRound     uint64 `json:"last_round"`
	LastBlockHash string `json:"last_block_hash"`
}
