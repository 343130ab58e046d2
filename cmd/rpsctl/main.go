// Command rpsctl plays rock-paper-scissors against an rpschain node.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"cosmossdk.io/log"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tolelom/rpschain/client"
	"github.com/tolelom/rpschain/rpc"
	"github.com/tolelom/rpschain/wallet"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env binds RPSCTL_* variables to the persistent flags, e.g. RPSCTL_NODE.
var env = viper.New()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rpsctl",
		Short:         "rock-paper-scissors player client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.String("node", "http://127.0.0.1:8545", "node JSON-RPC URL")
	pf.String("token", "", "RPC bearer token")
	pf.String("key", "player.key", "path to player keystore (password from RPSCTL_PASSWORD)")
	pf.Uint64("timeout-rounds", 0, "rounds to wait for confirmation (0 = default)")
	pf.Bool("verbose", false, "log each confirmation step")

	env.SetEnvPrefix("RPSCTL")
	env.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	env.AutomaticEnv()
	_ = env.BindPFlags(pf)

	root.AddCommand(
		newKeyCmd(),
		newCreateCmd(),
		newSetupCmd(),
		newBidCmd(),
		newCommitCmd(),
		newRevealCmd(),
		newTimeoutCmd(),
		newShowCmd(),
		newGamesCmd(),
	)
	return root
}

func nodeClient() *rpc.Client {
	return rpc.NewClient(env.GetString("node"), env.GetString("token"))
}

// player opens the keystore for the chain the node runs.
func player(ctx context.Context) (*client.Player, error) {
	node := nodeClient()
	st, err := node.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("node status: %w", err)
	}
	w, err := wallet.LoadWallet(env.GetString("key"), env.GetString("password"), st.ChainID)
	if err != nil {
		return nil, err
	}
	level := zerolog.WarnLevel
	if env.GetBool("verbose") {
		level = zerolog.DebugLevel
	}
	logger := log.NewLogger(os.Stderr, log.LevelOption(level))
	return client.NewPlayer(w, node, env.GetUint64("timeout-rounds"), logger), nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
