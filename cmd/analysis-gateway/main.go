// cmd/analysis-gateway/main.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "analysis-gateway",
		Short: "Synchronous front door for the resume analysis worker",
		Long: `analysis-gateway accepts resume analysis submissions, forwards them to the
analysis worker over Redis pub/sub and waits a bounded time for the answer.
Submissions that outlive the wait window stay PENDING and are completed
whenever the worker responds.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", "", "Path to a config file (defaults to ./configs/config.yaml)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(submitCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
