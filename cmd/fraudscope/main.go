// Command fraudscope runs the fraud scoring pipeline and offers operator
// commands against a running instance.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is stamped at build time.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "fraudscope",
		Short:         "Real-time payment fraud scoring",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("server", defaultServerURL, "base URL of a running fraudscope instance")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(alertsCmd())
	rootCmd.AddCommand(resolveCmd())
	rootCmd.AddCommand(transactionsCmd())
	rootCmd.AddCommand(reconcileCmd())
	return rootCmd
}
