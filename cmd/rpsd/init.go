package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tolelom/rpschain/config"
	"github.com/tolelom/rpschain/crypto"
	"github.com/tolelom/rpschain/wallet"
)

func newInitCmd() *cobra.Command {
	var (
		chainID string
		allocs  []string
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config, with the local validator key as sole validator",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			keyPath, _ := cmd.Flags().GetString("key")
			if _, err := os.Stat(cfgPath); err == nil {
				return fmt.Errorf("%s already exists", cfgPath)
			}

			cfg := config.DefaultConfig()
			if chainID != "" {
				cfg.Genesis.ChainID = chainID
			}
			for _, a := range allocs {
				addr, amount, err := parseAlloc(a)
				if err != nil {
					return err
				}
				cfg.Genesis.Alloc[addr] = amount
			}
			if priv, err := wallet.LoadKey(keyPath, os.Getenv(passwordEnv)); err == nil {
				cfg.Validators = []string{priv.Public().Hex()}
			} else {
				cmd.PrintErrf("no usable key at %s (%v); validators left empty\n", keyPath, err)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.Save(cfg, cfgPath); err != nil {
				return err
			}
			cmd.Printf("wrote %s (chain %s)\n", cfgPath, cfg.Genesis.ChainID)
			return nil
		},
	}
	cmd.Flags().StringVar(&chainID, "chain-id", "", "chain id (default rpschain-dev)")
	cmd.Flags().StringArrayVar(&allocs, "alloc", nil, "genesis balance as address=amount (repeatable)")
	return cmd
}

func parseAlloc(s string) (string, uint64, error) {
	addr, amt, ok := strings.Cut(s, "=")
	if !ok || !crypto.IsAddress(addr) {
		return "", 0, fmt.Errorf("alloc %q: want address=amount", s)
	}
	amount, err := strconv.ParseUint(amt, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("alloc %q: %w", s, err)
	}
	return addr, amount, nil
}

func newGenKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "genkey",
		Short: "Generate a validator key and save it encrypted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			keyPath, _ := cmd.Flags().GetString("key")
			if _, err := os.Stat(keyPath); err == nil {
				return fmt.Errorf("%s already exists", keyPath)
			}
			password := os.Getenv(passwordEnv)
			if password == "" {
				cmd.PrintErrf("WARNING: %s not set; keystore will use an empty password\n", passwordEnv)
			}
			priv, pub, err := crypto.GenerateKeyPair()
			if err != nil {
				return err
			}
			if err := wallet.SaveKey(keyPath, password, priv); err != nil {
				return err
			}
			cmd.Printf("address: %s\nsaved to: %s\n", pub.Hex(), keyPath)
			return nil
		},
	}
}
