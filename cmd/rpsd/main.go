// Command rpsd runs a single-validator rpschain node: block production
// plus the JSON-RPC endpoint.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// passwordEnv holds the keystore password. It is not a flag so it does not
// leak through the process list.
const passwordEnv = "RPSD_PASSWORD"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rpsd",
		Short:         "rpschain node",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "config.json", "path to config file")
	root.PersistentFlags().String("key", "validator.key", "path to validator keystore")
	root.AddCommand(newInitCmd(), newGenKeyCmd(), newStartCmd())
	return root
}
