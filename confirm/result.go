package confirm

import "github.com/tolelom/rpschain/core"

// Result is a confirmed group: one entry per member, in group order.
type Result struct {
	GroupID        string
	ConfirmedRound uint64
	Txns           []*core.PendingTxInfo
}

// Last returns the final member, which is the application call in a
// [payment][call] group.
func (r *Result) Last() *core.PendingTxInfo {
	return r.Txns[len(r.Txns)-1]
}

// ApplicationIndex returns the id of an application created by the group,
// or 0.
func (r *Result) ApplicationIndex() uint64 {
	for _, t := range r.Txns {
		if t.ApplicationIndex != 0 {
			return t.ApplicationIndex
		}
	}
	return 0
}

// Logs returns every member's log lines in order.
func (r *Result) Logs() [][]byte {
	var out [][]byte
	for _, t := range r.Txns {
		out = append(out, t.Logs...)
	}
	return out
}

// InnerTxns returns the payments issued by applications during the group.
func (r *Result) InnerTxns() []core.InnerTxn {
	var out []core.InnerTxn
	for _, t := range r.Txns {
		out = append(out, t.InnerTxns...)
	}
	return out
}

// GlobalDelta returns every global state change made by the group.
func (r *Result) GlobalDelta() []core.StateDelta {
	var out []core.StateDelta
	for _, t := range r.Txns {
		out = append(out, t.GlobalDelta...)
	}
	return out
}
