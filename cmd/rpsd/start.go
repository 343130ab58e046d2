package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"cosmossdk.io/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tolelom/rpschain/config"
	"github.com/tolelom/rpschain/consensus"
	"github.com/tolelom/rpschain/core"
	"github.com/tolelom/rpschain/events"
	"github.com/tolelom/rpschain/indexer"
	"github.com/tolelom/rpschain/rpc"
	"github.com/tolelom/rpschain/storage"
	"github.com/tolelom/rpschain/vm"
	"github.com/tolelom/rpschain/wallet"

	// Import VM modules to trigger their init() self-registration.
	_ "github.com/tolelom/rpschain/vm/modules/application"
	_ "github.com/tolelom/rpschain/vm/modules/economy"
	_ "github.com/tolelom/rpschain/vm/modules/rps"
)

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Run the node until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			keyPath, _ := cmd.Flags().GetString("key")
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runNode(ctx, cfgPath, keyPath)
		},
	}
}

func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return config.Load("")
	}
	return config.Load(path)
}

func runNode(ctx context.Context, cfgPath, keyPath string) (err error) {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := log.NewLogger(os.Stdout, log.LevelOption(cfg.Level())).With("node", cfg.NodeID)

	privKey, err := wallet.LoadKey(keyPath, os.Getenv(passwordEnv))
	if err != nil {
		return fmt.Errorf("load key: %w", err)
	}
	if len(cfg.Validators) == 0 {
		logger.Warn("no validators configured; running as sole validator")
		cfg.Validators = []string{privKey.Public().Hex()}
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("mkdir data dir: %w", err)
	}
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "chain"))
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	state := storage.NewStateDB(db)
	bc := core.NewBlockchain(storage.NewLevelBlockStore(db))
	if err := bc.Init(); err != nil {
		return fmt.Errorf("blockchain init: %w", err)
	}

	// ---- genesis block (if fresh chain) ----
	if bc.Tip() == nil {
		genesis, err := config.CreateGenesisBlock(cfg, state, privKey)
		if err != nil {
			return fmt.Errorf("genesis: %w", err)
		}
		if err := bc.AddBlock(genesis); err != nil {
			return fmt.Errorf("add genesis: %w", err)
		}
		logger.Info("genesis block committed", "hash", genesis.Hash, "chain", cfg.Genesis.ChainID)
	}

	emitter := events.NewEmitter(logger)
	idx := indexer.New(db, emitter, logger)
	mempool := core.NewMempool()
	exec := vm.NewExecutor(state, cfg.Genesis.ChainID, logger)
	poa := consensus.New(cfg, bc, state, mempool, exec, emitter, privKey, logger)

	// The RPC handler reads committed state through its own StateDB.
	handler := rpc.NewHandler(bc, mempool, storage.NewStateDB(db), idx, cfg.Genesis.ChainID)
	server := rpc.NewServer(cfg.RPCAddr, handler, cfg.RPCAuthToken, logger)
	if cfg.RPCAuthToken != "" {
		logger.Info("rpc bearer token authentication enabled")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return poa.Run(gctx, cfg.BlockInterval) })
	g.Go(func() error { return server.Run(gctx) })
	logger.Info("node running", "validator", privKey.Public().Hex(), "round", bc.Round())

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
