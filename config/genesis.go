package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tolelom/rpschain/core"
	"github.com/tolelom/rpschain/crypto"
)

// GenesisHash is a canonical all-zeros previous hash for the genesis block.
var GenesisHash = strings.Repeat("0", 64)

// CreateGenesisBlock builds and signs the round-0 block from the config's
// Alloc map. It also sets initial account balances in state and commits.
func CreateGenesisBlock(cfg *Config, state core.State, proposerPriv crypto.PrivateKey) (*core.Block, error) {
	addrs := make([]string, 0, len(cfg.Genesis.Alloc))
	for addr := range cfg.Genesis.Alloc {
		if !crypto.IsAddress(addr) {
			return nil, fmt.Errorf("genesis alloc: invalid address %q", addr)
		}
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	for _, addr := range addrs {
		if err := state.SetAccount(&core.Account{Address: addr, Balance: cfg.Genesis.Alloc[addr]}); err != nil {
			return nil, err
		}
	}

	stateRoot := state.ComputeRoot()
	if err := state.Commit(); err != nil {
		return nil, err
	}

	block := core.NewBlock(0, GenesisHash, proposerPriv.Public().Hex(), nil)
	block.Header.StateRoot = stateRoot
	// The chain id is committed to through the genesis tx root.
	block.Header.TxRoot = crypto.Hash([]byte(cfg.Genesis.ChainID))
	block.Sign(proposerPriv)
	return block, nil
}
