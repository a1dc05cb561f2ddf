// Command parsergen turns a grammar expression tree into a
// recursive-descent parser, element-type holder, and (optionally) a PSI
// syntax-tree interface/implementation pair, grounded on the teacher's
// Cobra-based cli package.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parsergen",
		Short: "Generate a recursive-descent parser and PSI tree from a grammar expression tree",
	}
	cmd.AddCommand(newGenerateCommand())
	cmd.AddCommand(newAttrsCommand())
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
