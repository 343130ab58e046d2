package core

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	maxMempoolSize = 10_000
	maxRejected    = 10_000
	maxTxAge       = int64(time.Hour)       // reject txs older than 1 hour
	maxTxFuture    = int64(5 * time.Minute) // reject txs more than 5 min in the future
)

// Mempool is a thread-safe pool of pending atomic groups. It also remembers
// why recently dropped transactions were rejected so that clients polling
// for confirmation can learn the outcome.
type Mempool struct {
	mu       sync.RWMutex
	groups   map[string][]*Transaction // keyed by first member id
	byTx     map[string]string         // tx id → group key
	ord      []string                  // insertion-ordered group keys
	size     int
	rejected map[string]PoolError
	rejOrd   []string
}

// NewMempool creates an empty mempool.
func NewMempool() *Mempool {
	return &Mempool{
		groups:   make(map[string][]*Transaction),
		byTx:     make(map[string]string),
		rejected: make(map[string]PoolError),
	}
}

// AddGroup validates and inserts an atomic group (a single transaction is a
// group of one). Returns an error if a signature is invalid, a timestamp is
// out of the acceptable window (-1 h / +5 min), the group is malformed, a
// member is already pending, or the pool is full.
func (m *Mempool) AddGroup(txs []*Transaction) error {
	now := time.Now().UnixNano()
	for i, tx := range txs {
		if err := tx.Verify(); err != nil {
			return fmt.Errorf("member %d: invalid tx signature: %w", i, err)
		}
		if now-tx.Timestamp > maxTxAge {
			return fmt.Errorf("member %d: transaction expired", i)
		}
		if tx.Timestamp-now > maxTxFuture {
			return fmt.Errorf("member %d: transaction timestamp too far in the future", i)
		}
	}
	if err := ValidateGroup(txs); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.size+len(txs) > maxMempoolSize {
		return errors.New("mempool full")
	}
	for _, tx := range txs {
		if _, exists := m.byTx[tx.ID]; exists {
			return fmt.Errorf("tx %s already in pool", tx.ID)
		}
	}
	key := txs[0].ID
	m.groups[key] = append([]*Transaction(nil), txs...)
	m.ord = append(m.ord, key)
	m.size += len(txs)
	for _, tx := range txs {
		m.byTx[tx.ID] = key
		// A resubmission gets a fresh chance.
		delete(m.rejected, tx.ID)
	}
	return nil
}

// Get returns a pending transaction by ID.
func (m *Mempool) Get(id string) (*Transaction, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	key, ok := m.byTx[id]
	if !ok {
		return nil, false
	}
	for _, tx := range m.groups[key] {
		if tx.ID == id {
			return tx, true
		}
	}
	return nil, false
}

// Pending returns whole groups in insertion order until adding the next
// group would exceed maxTxs transactions.
func (m *Mempool) Pending(maxTxs int) [][]*Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var (
		result [][]*Transaction
		n      int
	)
	for _, key := range m.ord {
		g, ok := m.groups[key]
		if !ok {
			continue
		}
		if n+len(g) > maxTxs {
			break
		}
		result = append(result, g)
		n += len(g)
	}
	return result
}

// Remove deletes the groups containing any of ids (called after block commit).
func (m *Mempool) Remove(ids []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(ids)
}

// Reject drops the group containing txs and records perr against every member.
func (m *Mempool) Reject(txs []*Transaction, perr PoolError) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, len(txs))
	for i, tx := range txs {
		ids[i] = tx.ID
		if _, seen := m.rejected[tx.ID]; !seen {
			m.rejOrd = append(m.rejOrd, tx.ID)
		}
		m.rejected[tx.ID] = perr
	}
	m.removeLocked(ids)
	for len(m.rejOrd) > maxRejected {
		delete(m.rejected, m.rejOrd[0])
		m.rejOrd = m.rejOrd[1:]
	}
}

// PoolError returns the recorded rejection for id, if any.
func (m *Mempool) PoolError(id string) (PoolError, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pe, ok := m.rejected[id]
	return pe, ok
}

// Size returns the current number of pending transactions.
func (m *Mempool) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

func (m *Mempool) removeLocked(ids []string) {
	removed := make(map[string]bool)
	for _, id := range ids {
		key, ok := m.byTx[id]
		if !ok || removed[key] {
			continue
		}
		removed[key] = true
		for _, tx := range m.groups[key] {
			delete(m.byTx, tx.ID)
		}
		m.size -= len(m.groups[key])
		delete(m.groups, key)
	}
	if len(removed) == 0 {
		return
	}
	filtered := m.ord[:0]
	for _, key := range m.ord {
		if !removed[key] {
			filtered = append(filtered, key)
		}
	}
	m.ord = filtered
}
