// Command ugc-subgraph runs the UGC review federation subgraph: C0's
// bootstrap wiring of C1–C7 behind a cobra CLI (`serve`, `migrate`),
// matching the corpus's cobra-rooted service entrypoints.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "ugc-subgraph",
		Short: "UGC review federation subgraph",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (defaults only if omitted)")

	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
