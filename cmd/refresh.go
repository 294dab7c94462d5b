package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/coachkit/traincue/internal/output"
)

var refreshFlagForce bool

// refreshCmd rebuilds the reminder schedule.
var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Rebuild the reminder schedule",
	Long: `Rebuild the scheduled reminder set from current activities and
tasks: soonest fire times first, bounded by the scheduling window.

A refresh normally runs at most once per interval; --force runs it now
regardless.

Examples:
  traincue refresh
  traincue refresh --force`,
	RunE: runRefresh,
}

func init() {
	refreshCmd.Flags().BoolVar(&refreshFlagForce, "force", false,
		"Refresh even if the cadence says it is not due")

	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	result, err := ctx.Engine.Refresh(cmd.Context(), refreshFlagForce)
	if err != nil {
		return err
	}

	if ctx.IsJSON() {
		status := "refreshed"
		if result.Skipped {
			status = "skipped"
		}
		resp := output.RefreshResponse{
			Status:    status,
			Scheduled: result.Scheduled,
			Failed:    result.Failed,
			Deferred:  result.Deferred,
		}
		if !result.At.IsZero() {
			resp.At = result.At.Format(time.RFC3339)
		}
		return ctx.Formatter.JSON(resp)
	}

	cli := ctx.CLIFormatter()
	if result.Skipped {
		cli.Muted("Refresh not due yet. Use --force to refresh now.")
		return nil
	}

	cli.Success("Schedule refreshed")
	cli.Printf("  Scheduled: %d\n", result.Scheduled)
	if result.Deferred > 0 {
		cli.Printf("  Deferred:  %d (over the scheduling cap)\n", result.Deferred)
	}
	if result.Failed > 0 {
		cli.Warning(fmt.Sprintf("  Failed:    %d", result.Failed))
	}

	return nil
}
