package core

import (
	"context"
	"fmt"
	"sync"
)

// BlockStore is the persistence interface used by Blockchain.
// Implementations live in the storage package.
type BlockStore interface {
	GetBlock(hash string) (*Block, error)
	GetBlockByRound(round uint64) (*Block, error)
	// GetTip returns the current tip hash, or ("", nil) for a fresh chain.
	GetTip() (string, error)
	// CommitBlock atomically writes the block, its round index entry, and
	// updates the tip pointer.
	CommitBlock(block *Block) error
}

// Blockchain manages the canonical chain: stores blocks, tracks the tip and
// wakes goroutines waiting for a round.
type Blockchain struct {
	mu       sync.RWMutex
	store    BlockStore
	tip      *Block
	advanced chan struct{} // closed and replaced on every new tip
}

// NewBlockchain returns a Blockchain backed by store.
// Call Init() to load an existing chain tip from storage.
func NewBlockchain(store BlockStore) *Blockchain {
	return &Blockchain{store: store, advanced: make(chan struct{})}
}

// Init loads the persisted tip from the block store.
func (bc *Blockchain) Init() error {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	tipHash, err := bc.store.GetTip()
	if err != nil {
		return fmt.Errorf("get tip: %w", err)
	}
	if tipHash == "" {
		return nil // fresh chain
	}
	tip, err := bc.store.GetBlock(tipHash)
	if err != nil {
		return fmt.Errorf("load tip block: %w", err)
	}
	bc.tip = tip
	return nil
}

// AddBlock validates round continuity and PrevHash linkage, then persists
// the block and advances the tip.
func (bc *Blockchain) AddBlock(block *Block) error {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	if bc.tip != nil {
		if block.Header.Round != bc.tip.Header.Round+1 {
			return fmt.Errorf("block round %d does not follow tip %d", block.Header.Round, bc.tip.Header.Round)
		}
		if block.Header.PrevHash != bc.tip.Hash {
			return fmt.Errorf("prev_hash mismatch: got %s want %s", block.Header.PrevHash, bc.tip.Hash)
		}
	}

	if err := bc.store.CommitBlock(block); err != nil {
		return fmt.Errorf("commit block: %w", err)
	}
	bc.tip = block
	close(bc.advanced)
	bc.advanced = make(chan struct{})
	return nil
}

// GetBlock returns a block by its hash.
func (bc *Blockchain) GetBlock(hash string) (*Block, error) {
	return bc.store.GetBlock(hash)
}

// GetBlockByRound returns the block confirmed in round.
func (bc *Blockchain) GetBlockByRound(round uint64) (*Block, error) {
	return bc.store.GetBlockByRound(round)
}

// Tip returns the current chain tip, or nil for a fresh chain.
func (bc *Blockchain) Tip() *Block {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.tip
}

// Round returns the round of the current tip (0 for a fresh chain).
func (bc *Blockchain) Round() uint64 {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	if bc.tip == nil {
		return 0
	}
	return bc.tip.Header.Round
}

// WaitForRound blocks until the tip is past round and returns the new tip
// round. It returns early with ctx.Err() and the latest round seen.
func (bc *Blockchain) WaitForRound(ctx context.Context, round uint64) (uint64, error) {
	for {
		bc.mu.RLock()
		ch := bc.advanced
		tip := bc.tip
		bc.mu.RUnlock()

		if tip != nil && tip.Header.Round > round {
			return tip.Header.Round, nil
		}
		var cur uint64
		if tip != nil {
			cur = tip.Header.Round
		}
		select {
		case <-ctx.Done():
			return cur, ctx.Err()
		case <-ch:
		}
	}
}
