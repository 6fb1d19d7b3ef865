// Command scrolls runs the chain-indexer daemon described in the
// project's daemon.toml configuration, mirroring the teacher's
// cmd/synnergy/main.go cobra root.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{Use: "scrolls"}
	rootCmd.AddCommand(daemonCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
