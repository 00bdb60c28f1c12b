// Command hypertune runs and inspects hyperparameter optimization studies
// described by YAML configs.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "hypertune",
	Short: "Hyperparameter optimization studies",
	Long:  "Hypertune runs hyperparameter optimization studies over built-in benchmark objectives and inspects stored trial ledgers.",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
