// cmd/analysis-gateway/reconcile.go
package main

import (
	"fmt"
	"time"

	"resume-analyzer/internal/common/config"
	"resume-analyzer/internal/common/metrics"
	"resume-analyzer/internal/store"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func reconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Mark long-pending analyses as TIMED_OUT",
		Long: `Moves PENDING records older than reconcile.stale_after to TIMED_OUT.
A response that arrives later still completes the record.`,
		RunE: runReconcile,
	}
	cmd.Flags().Duration("older-than", 0, "Override reconcile.stale_after (e.g. 6h)")
	return cmd
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.connectSQL(cmd.Context()); err != nil {
		return err
	}

	staleAfter := config.GetDuration(a.cfg.Reconcile.StaleAfter)
	if override, _ := cmd.Flags().GetDuration("older-than"); override > 0 {
		staleAfter = override
	}

	cutoff := time.Now().UTC().Add(-staleAfter)
	n, err := store.NewSQLStore(a.sql.GetDB(), a.log).MarkStale(cmd.Context(), cutoff)
	if err != nil {
		return err
	}
	metrics.RecordsReconciled.Add(float64(n))

	fmt.Printf("%s %d record(s) pending since before %s\n",
		color.New(color.FgYellow).Sprint("TIMED_OUT"), n, cutoff.Format(time.RFC3339))
	return nil
}
