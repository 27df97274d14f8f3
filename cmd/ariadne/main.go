// Command ariadne is a thin wrapper around the indexing and capsule
// pipeline, for manual/local use. The interactive agent-facing front end
// this engine serves is a separate, external component.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "ariadne",
		Short: "Index a dbt project and build agent-oriented context capsules",
	}

	root.AddCommand(newIndexCmd())
	root.AddCommand(newCapsuleCmd())
	root.AddCommand(newSearchCmd())
	root.AddCommand(newGraphCmd())
	root.AddCommand(newStatsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
