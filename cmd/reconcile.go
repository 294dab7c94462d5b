package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coachkit/traincue/internal/output"
)

// reconcileCmd prunes the schedule store toward platform truth.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Prune schedule entries the platform no longer holds",
	Long: `Compare the persisted schedule against the live notification set
and remove entries whose notification is gone. Reconciliation only ever
deletes; missing reminders are recreated by the next refresh.`,
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	result, err := ctx.Engine.Reconcile(cmd.Context())
	if err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(output.ReconcileResponse{
			Status:         "reconciled",
			Checked:        result.Checked,
			RemovedOrphans: result.RemovedOrphans,
		})
	}

	cli := ctx.CLIFormatter()
	if result.RemovedOrphans == 0 {
		cli.Success(fmt.Sprintf("Store is consistent (%d entries checked)", result.Checked))
		return nil
	}

	cli.Success(fmt.Sprintf("Removed %d orphaned entries (%d checked)",
		result.RemovedOrphans, result.Checked))
	return nil
}
