package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/coachkit/traincue/internal/output"
	"github.com/coachkit/traincue/internal/tui"
)

var statsFlagWatch bool

// statsCmd shows the reminder queue snapshot.
var statsCmd = &cobra.Command{
	Use:     "stats",
	Aliases: []string{"status", "st"},
	Short:   "Show the reminder queue",
	Long: `Show a snapshot of the reminder queue: how many reminders are
scheduled, store consistency, and the next fire times.

With --watch, opens a live view that refreshes automatically.

Examples:
  traincue stats
  traincue stats --watch`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().BoolVarP(&statsFlagWatch, "watch", "w", false,
		"Live view that refreshes automatically")

	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	if statsFlagWatch {
		return tui.RunWatch(ctx.Engine)
	}

	stats, err := ctx.Engine.Stats(cmd.Context())
	if err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(output.NewStatsResponse(stats))
	}

	ctx.CLIFormatter().PrintStats(stats, time.Now())
	return nil
}
