// Command eparse drives the Earley–Scott parser from the command line: load
// a compiled binary grammar, parse a numeric token list against it, and
// print the outcome — grounded on the corpus's cobra-based grammar-tool
// CLIs (nihei9-vartan's cmd/vartan/root.go, dhamidi-sai's command tree).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "eparse",
	Short:         "Run the Earley–Scott parser against a compiled grammar",
	SilenceErrors: true,
	SilenceUsage:  true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "eparse: %v\n", err)
		os.Exit(1)
	}
}
