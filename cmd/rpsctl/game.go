package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tolelom/rpschain/confirm"
	"github.com/tolelom/rpschain/crypto"
	"github.com/tolelom/rpschain/vm/modules/rps"
	"github.com/tolelom/rpschain/wallet"
)

func appArg(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid game id %q", s)
	}
	return id, nil
}

func printResult(cmd *cobra.Command, res *confirm.Result) {
	cmd.Printf("confirmed in round %d\n", res.ConfirmedRound)
	for _, line := range res.Logs() {
		cmd.Printf("  log: %s\n", line)
	}
	for _, p := range res.InnerTxns() {
		cmd.Printf("  paid %d to %s\n", p.Amount, p.Receiver)
	}
}

func newKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Create a player keystore",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := env.GetString("key")
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			priv, pub, err := crypto.GenerateKeyPair()
			if err != nil {
				return err
			}
			if err := wallet.SaveKey(path, env.GetString("password"), priv); err != nil {
				return err
			}
			cmd.Printf("address: %s\n", pub.Hex())
			return nil
		},
	}
}

func newCreateCmd() *cobra.Command {
	p := rps.DefaultParams()
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Deploy a new game",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pl, err := player(cmd.Context())
			if err != nil {
				return err
			}
			id, err := pl.CreateGame(cmd.Context(), p)
			if err != nil {
				return err
			}
			cmd.Printf("game %d created (escrow %s)\n", id, crypto.AppAddress(id))
			return nil
		},
	}
	f := cmd.Flags()
	f.Uint64Var(&p.MinStake, "min-stake", p.MinStake, "minimum stake per player")
	f.Uint64Var(&p.SetupFunding, "setup-funding", p.SetupFunding, "creator's funding of the escrow account")
	f.Uint64Var(&p.BidRounds, "bid-rounds", p.BidRounds, "rounds the bidding window stays open")
	f.Uint64Var(&p.CommitRounds, "commit-rounds", p.CommitRounds, "rounds allowed for commitments")
	f.Uint64Var(&p.RevealRounds, "reveal-rounds", p.RevealRounds, "rounds allowed for reveals")
	return cmd
}

func newSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup <game>",
		Short: "Fund the game and open bidding (creator only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := appArg(args[0])
			if err != nil {
				return err
			}
			pl, err := player(cmd.Context())
			if err != nil {
				return err
			}
			res, err := pl.Setup(cmd.Context(), id)
			if err != nil {
				return err
			}
			printResult(cmd, res)
			return nil
		},
	}
}

func newBidCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bid <game> <amount>",
		Short: "Add to your stake",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := appArg(args[0])
			if err != nil {
				return err
			}
			amount, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[1])
			}
			pl, err := player(cmd.Context())
			if err != nil {
				return err
			}
			res, err := pl.Bid(cmd.Context(), id, amount)
			if err != nil {
				return err
			}
			printResult(cmd, res)
			return nil
		},
	}
}

// savedMove is what commit leaves on disk for reveal.
type savedMove struct {
	Game   uint64 `json:"game"`
	Move   string `json:"move"`
	Secret string `json:"secret"`
}

func secretPath(cmd *cobra.Command, id uint64) string {
	if p, _ := cmd.Flags().GetString("secret-file"); p != "" {
		return p
	}
	return fmt.Sprintf("game-%d.secret", id)
}

func newCommitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commit <game> <rock|paper|scissors>",
		Short: "Commit to a move; the secret is saved for reveal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := appArg(args[0])
			if err != nil {
				return err
			}
			move, err := rps.ParseMove(args[1])
			if err != nil {
				return err
			}
			pl, err := player(cmd.Context())
			if err != nil {
				return err
			}
			secret, err := rps.NewSecret()
			if err != nil {
				return err
			}
			// Saved before submitting: a commit that lands without its
			// secret forfeits the game.
			path := secretPath(cmd, id)
			data, err := json.Marshal(savedMove{Game: id, Move: move.String(), Secret: hex.EncodeToString(secret)})
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, data, 0o600); err != nil {
				return err
			}
			res, err := pl.CommitWith(cmd.Context(), id, move, secret)
			if err != nil {
				return err
			}
			printResult(cmd, res)
			cmd.Printf("secret saved to %s\n", path)
			return nil
		},
	}
	cmd.Flags().String("secret-file", "", "where to save the move and secret (default game-<id>.secret)")
	return cmd
}

func newRevealCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reveal <game>",
		Short: "Reveal the committed move",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := appArg(args[0])
			if err != nil {
				return err
			}
			data, err := os.ReadFile(secretPath(cmd, id))
			if err != nil {
				return err
			}
			var saved savedMove
			if err := json.Unmarshal(data, &saved); err != nil {
				return err
			}
			if saved.Game != id {
				return fmt.Errorf("secret file is for game %d", saved.Game)
			}
			move, err := rps.ParseMove(saved.Move)
			if err != nil {
				return err
			}
			secret, err := hex.DecodeString(saved.Secret)
			if err != nil {
				return err
			}
			pl, err := player(cmd.Context())
			if err != nil {
				return err
			}
			res, err := pl.Reveal(cmd.Context(), id, move, secret)
			if err != nil {
				return err
			}
			printResult(cmd, res)
			return nil
		},
	}
	cmd.Flags().String("secret-file", "", "file written by commit (default game-<id>.secret)")
	return cmd
}

func newTimeoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "timeout <game>",
		Short: "Settle a game whose deadline has passed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := appArg(args[0])
			if err != nil {
				return err
			}
			pl, err := player(cmd.Context())
			if err != nil {
				return err
			}
			res, err := pl.Timeout(cmd.Context(), id)
			if err != nil {
				return err
			}
			printResult(cmd, res)
			return nil
		},
	}
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <game>",
		Short: "Print a game's state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := appArg(args[0])
			if err != nil {
				return err
			}
			view, err := nodeClient().GetApplication(cmd.Context(), id)
			if err != nil {
				return err
			}
			g, err := rps.StateFromGlobals(view.GlobalState)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{
				"game":    id,
				"creator": view.Creator,
				"escrow":  view.Address,
				"round":   view.CreatedRound,
				"state":   g,
			})
		},
	}
}

func newGamesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "games [address]",
		Short: "List games an address created or staked in (default: your own)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				ids, err := nodeClient().GetGamesByPlayer(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, ids)
			}
			pl, err := player(cmd.Context())
			if err != nil {
				return err
			}
			ids, err := pl.Games(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, ids)
		},
	}
}
