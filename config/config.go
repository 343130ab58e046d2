// Package config loads node configuration with viper: a config file,
// RPSD_* environment overrides, and defaults.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. RPSD_RPC_ADDR.
const EnvPrefix = "RPSD"

// GenesisConfig describes the chain's initial state.
type GenesisConfig struct {
	ChainID string            `json:"chain_id" mapstructure:"chain_id"`
	Alloc   map[string]uint64 `json:"alloc" mapstructure:"alloc"` // address → initial balance
}

// Config holds all node configuration.
type Config struct {
	NodeID        string        `json:"node_id" mapstructure:"node_id"`
	DataDir       string        `json:"data_dir" mapstructure:"data_dir"`
	RPCAddr       string        `json:"rpc_addr" mapstructure:"rpc_addr"`
	RPCAuthToken  string        `json:"rpc_auth_token,omitempty" mapstructure:"rpc_auth_token"` // empty disables auth
	BlockInterval time.Duration `json:"block_interval" mapstructure:"block_interval"`
	MaxBlockTxs   int           `json:"max_block_txs" mapstructure:"max_block_txs"` // 0 → 500
	Validators    []string      `json:"validators" mapstructure:"validators"`       // authorised proposer addresses
	LogLevel      string        `json:"log_level" mapstructure:"log_level"`
	Genesis       GenesisConfig `json:"genesis" mapstructure:"genesis"`
}

// DefaultConfig returns a single-node development configuration.
func DefaultConfig() *Config {
	return &Config{
		NodeID:        "node0",
		DataDir:       "./data",
		RPCAddr:       "127.0.0.1:8545",
		BlockInterval: time.Second,
		MaxBlockTxs:   500,
		LogLevel:      "info",
		Genesis: GenesisConfig{
			ChainID: "rpschain-dev",
			Alloc:   map[string]uint64{},
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("node_id", d.NodeID)
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("rpc_addr", d.RPCAddr)
	v.SetDefault("rpc_auth_token", "")
	v.SetDefault("block_interval", d.BlockInterval)
	v.SetDefault("max_block_txs", d.MaxBlockTxs)
	v.SetDefault("validators", []string{})
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("genesis.chain_id", d.Genesis.ChainID)
}

// Load reads the config file at path (any format viper knows, by
// extension) and applies environment overrides. An empty path loads
// defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Genesis.Alloc == nil {
		cfg.Genesis.Alloc = map[string]uint64{}
	}
	return cfg, cfg.Validate()
}

// Validate checks that the config can run a node.
func (c *Config) Validate() error {
	if c.Genesis.ChainID == "" {
		return errors.New("genesis.chain_id is required")
	}
	if c.BlockInterval <= 0 {
		return fmt.Errorf("block_interval must be positive, got %s", c.BlockInterval)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// Level parses LogLevel for the logger.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// Save writes the config to path as formatted JSON.
func Save(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
