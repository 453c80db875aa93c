// corvusctl is a diagnostic CLI for CorvusDB nodes: it pings a node, shows
// its probed status, and watches its state changes.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/corvusdb/corvus-go/pkg/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "corvusctl",
		Short:   "corvusctl - CorvusDB node diagnostics",
		Long:    `corvusctl talks to a single CorvusDB node: ping it, inspect its role, or follow its state changes.`,
		Version: version.String(),
	}

	rootCmd.PersistentFlags().String("addr", "", "Node address (host:port)")
	rootCmd.PersistentFlags().String("config", "", "Config file path")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Per-command timeout")

	rootCmd.AddCommand(pingCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(watchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
