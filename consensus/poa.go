// Package consensus implements Proof-of-Authority round production.
// Validators propose blocks in round-robin order. Every round produces a
// block, empty or not, so the round counter keeps moving for deadlines.
package consensus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cosmossdk.io/log"

	"github.com/tolelom/rpschain/config"
	"github.com/tolelom/rpschain/core"
	"github.com/tolelom/rpschain/crypto"
	"github.com/tolelom/rpschain/events"
	"github.com/tolelom/rpschain/vm"
)

// ErrStateCommit means a block was stored but the state behind it was
// not. The node cannot continue safely.
var ErrStateCommit = errors.New("state commit failed after block was stored")

const defaultMaxBlockTxs = 500

// PoA is the Proof-of-Authority consensus engine.
type PoA struct {
	cfg     *config.Config
	bc      *core.Blockchain
	state   core.State
	mempool *core.Mempool
	exec    *vm.Executor
	emitter *events.Emitter
	privKey crypto.PrivateKey
	pubKey  crypto.PublicKey
	logger  log.Logger
}

// New creates a PoA engine for the local validator identified by privKey.
func New(
	cfg *config.Config,
	bc *core.Blockchain,
	state core.State,
	mempool *core.Mempool,
	exec *vm.Executor,
	emitter *events.Emitter,
	privKey crypto.PrivateKey,
	logger log.Logger,
) *PoA {
	return &PoA{
		cfg:     cfg,
		bc:      bc,
		state:   state,
		mempool: mempool,
		exec:    exec,
		emitter: emitter,
		privKey: privKey,
		pubKey:  privKey.Public(),
		logger:  logger.With("module", "consensus"),
	}
}

// proposerFor returns the validator expected to propose round.
func (p *PoA) proposerFor(round uint64) (string, error) {
	if len(p.cfg.Validators) == 0 {
		return "", errors.New("no validators configured")
	}
	return p.cfg.Validators[round%uint64(len(p.cfg.Validators))], nil
}

// IsProposer reports whether this node should propose the next block.
func (p *PoA) IsProposer() bool {
	want, err := p.proposerFor(p.bc.Round() + 1)
	return err == nil && want == p.pubKey.Hex()
}

type rejection struct {
	group []*core.Transaction
	perr  core.PoolError
}

// ProduceBlock builds, executes, signs and commits the next round. Groups
// that fail execution are left out of the block and dropped from the
// mempool with their pool error.
func (p *PoA) ProduceBlock() (*core.Block, error) {
	if !p.IsProposer() {
		return nil, errors.New("not the proposer for this round")
	}

	limit := p.cfg.MaxBlockTxs
	if limit <= 0 {
		limit = defaultMaxBlockTxs
	}
	groups := p.mempool.Pending(limit)

	tip := p.bc.Tip()
	prevHash, round := config.GenesisHash, uint64(1)
	if tip != nil {
		prevHash, round = tip.Hash, tip.Header.Round+1
	}
	block := core.NewBlock(round, prevHash, p.pubKey.Hex(), nil)

	snapID, err := p.state.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	var (
		accepted []*core.Transaction
		evs      []events.Event
		rejected []rejection
	)
	for _, g := range groups {
		res, err := p.exec.ExecuteGroup(block, g)
		if err != nil {
			perr := core.NewPoolError(err)
			p.logger.Info("group rejected", "round", round, "tx", g[0].ID, "size", len(g), "reason", perr.Reason)
			rejected = append(rejected, rejection{group: g, perr: perr})
			continue
		}
		accepted = append(accepted, g...)
		evs = append(evs, res.Events...)
	}
	block.SetTransactions(accepted)

	// Compute root from the write buffer BEFORE flushing so that if AddBlock
	// fails the state has not yet been persisted and the node stays consistent.
	block.Header.StateRoot = p.state.ComputeRoot()
	block.Sign(p.privKey)

	if err := p.ValidateBlock(block); err != nil {
		_ = p.state.RevertToSnapshot(snapID)
		return nil, fmt.Errorf("self-check: %w", err)
	}
	if err := p.bc.AddBlock(block); err != nil {
		_ = p.state.RevertToSnapshot(snapID)
		return nil, fmt.Errorf("add block: %w", err)
	}

	// Flush state only after the block is safely stored.
	if err := p.state.Commit(); err != nil {
		p.logger.Error("block stored but state commit failed", "round", round, "err", err)
		return nil, fmt.Errorf("round %d: %w: %v", round, ErrStateCommit, err)
	}

	ids := make([]string, len(accepted))
	for i, tx := range accepted {
		ids[i] = tx.ID
	}
	p.mempool.Remove(ids)
	for _, r := range rejected {
		p.mempool.Reject(r.group, r.perr)
	}

	for _, ev := range evs {
		p.emitter.Emit(ev)
	}
	for _, r := range rejected {
		p.emitter.Emit(events.Event{
			Type:  events.EventGroupRejected,
			TxID:  r.group[0].ID,
			Round: round,
			Data:  map[string]any{"reason": r.perr.Reason, "codespace": r.perr.Codespace, "code": r.perr.Code},
		})
	}
	// Emit after Sign() so block.Hash is set correctly.
	p.emitter.Emit(events.Event{
		Type:  events.EventBlockCommit,
		Round: round,
		Data:  map[string]any{"hash": block.Hash, "txs": len(accepted), "rejected": len(rejected)},
	})
	p.logger.Debug("round committed", "round", round, "txs", len(accepted), "rejected", len(rejected))
	return block, nil
}

// ValidateBlock checks that block was proposed by the expected validator
// and extends the current tip.
func (p *PoA) ValidateBlock(block *core.Block) error {
	expected, err := p.proposerFor(block.Header.Round)
	if err != nil {
		return err
	}
	if block.Header.Proposer != expected {
		return fmt.Errorf("wrong proposer: got %s want %s", block.Header.Proposer, expected)
	}
	if block.Hash != block.ComputeHash() {
		return errors.New("block hash does not match header")
	}
	if err := block.Verify(); err != nil {
		return fmt.Errorf("block signature invalid: %w", err)
	}

	tip := p.bc.Tip()
	if tip == nil {
		if block.Header.PrevHash != config.GenesisHash {
			return errors.New("first block must reference genesis prev-hash")
		}
		return nil
	}
	if block.Header.PrevHash != tip.Hash {
		return fmt.Errorf("prev_hash mismatch: got %s want %s", block.Header.PrevHash, tip.Hash)
	}
	if block.Header.Round != tip.Header.Round+1 {
		return fmt.Errorf("round mismatch: got %d want %d", block.Header.Round, tip.Header.Round+1)
	}
	return nil
}

// Run produces a round every interval until ctx is done. It returns
// ctx.Err() on shutdown, or the error that made the node unsafe to run.
func (p *PoA) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	p.logger.Info("block production started", "interval", interval.String(), "proposer", p.IsProposer())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !p.IsProposer() {
				continue
			}
			if _, err := p.ProduceBlock(); err != nil {
				if errors.Is(err, ErrStateCommit) {
					return err
				}
				p.logger.Error("produce block", "err", err)
			}
		}
	}
}
