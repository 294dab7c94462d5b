package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coachkit/traincue/internal/daemon"
)

// Daemon command flags.
var (
	daemonStartFlagForeground bool
	daemonLogsFlagTail        int
)

// daemonCmd represents the daemon command.
var daemonCmd = &cobra.Command{
	Use:     "daemon [command]",
	Aliases: []string{"d", "bg"},
	Short:   "Manage the background daemon",
	Long: `Manage the Traincue background daemon that fires due reminders
and keeps the schedule fresh.

Examples:
  traincue daemon start
  traincue daemon status
  traincue daemon stop
  traincue daemon logs --tail 20`,
	RunE: runDaemonStatus,
}

// daemonStartCmd starts the daemon.
var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the background daemon",
	Long: `Start the Traincue background daemon.

The daemon delivers reminders when they come due and refreshes the
schedule on its cadence.

Examples:
  traincue daemon start                # Start in background
  traincue daemon start --foreground   # Run in foreground (for debugging)`,
	RunE: runDaemonStart,
}

// daemonStopCmd stops the daemon.
var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background daemon",
	RunE:  runDaemonStop,
}

// daemonStatusCmd shows daemon status.
var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	RunE:  runDaemonStatus,
}

// daemonLogsCmd shows daemon logs.
var daemonLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View daemon logs",
	RunE:  runDaemonLogs,
}

func init() {
	daemonStartCmd.Flags().BoolVar(&daemonStartFlagForeground, "foreground", false,
		"Run in foreground (don't daemonize)")

	daemonLogsCmd.Flags().IntVarP(&daemonLogsFlagTail, "tail", "n", 20,
		"Number of lines to show")

	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
	daemonCmd.AddCommand(daemonLogsCmd)

	rootCmd.AddCommand(daemonCmd)
}

// runDaemonStart handles the daemon start command.
func runDaemonStart(cmd *cobra.Command, args []string) error {
	if !daemonStartFlagForeground {
		// Background mode spawns a child; the parent never opens the
		// database, so the child can take the lock.
		d := daemon.NewDaemon(nil, nil, nil)
		d.SetDebug(flagDebug)

		if d.IsRunning() {
			return fmt.Errorf("daemon is already running (PID: %d)", d.GetStatus().PID)
		}

		pid, err := d.StartBackground()
		if err != nil {
			return err
		}

		fmt.Printf("Daemon started (PID: %d)\n", pid)
		return nil
	}

	// Foreground mode runs against the full runtime context.
	d := daemon.NewDaemon(ctx.Engine, ctx.Sink, ctx.Dispatcher)
	d.SetDebug(ctx.Debug)

	if d.IsRunning() {
		return fmt.Errorf("daemon is already running (PID: %d)", d.GetStatus().PID)
	}

	if ctx.Dispatcher.CountEnabledWebhooks() == 0 && !ctx.IsJSON() {
		ctx.CLIFormatter().Warning("No webhooks configured; reminders have nowhere to go.")
		ctx.Formatter.Println("Add one with: traincue webhook add NAME URL")
		ctx.Formatter.Println()
	}

	if !ctx.IsJSON() {
		ctx.Formatter.Println("Starting traincue daemon (foreground)...")
	}
	return d.Start(context.Background())
}

// runDaemonStop handles the daemon stop command.
func runDaemonStop(cmd *cobra.Command, args []string) error {
	d := daemon.NewDaemon(nil, nil, nil)

	if !d.IsRunning() {
		fmt.Println("Daemon is not running")
		return nil
	}

	pid := d.GetStatus().PID

	if err := d.Stop(); err != nil {
		return err
	}

	fmt.Printf("Daemon stopped (was PID: %d)\n", pid)
	return nil
}

// runDaemonStatus handles the daemon status command.
func runDaemonStatus(cmd *cobra.Command, args []string) error {
	d := daemon.NewDaemon(nil, nil, nil)
	status := d.GetStatus()

	fmt.Println("Traincue Daemon")
	fmt.Println()

	if status.Running {
		fmt.Printf("  Status:  running\n")
		fmt.Printf("  PID:     %d\n", status.PID)
		if status.Uptime != "" {
			fmt.Printf("  Uptime:  %s\n", status.Uptime)
		}
	} else {
		fmt.Printf("  Status:  stopped\n")
		fmt.Println()
		fmt.Println("Start with: traincue daemon start")
	}

	return nil
}

// runDaemonLogs handles the daemon logs command.
func runDaemonLogs(cmd *cobra.Command, args []string) error {
	logPath := daemon.GetLogPath()

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		fmt.Println("No log file found.")
		fmt.Printf("Log path: %s\n", logPath)
		return nil
	}

	lines, err := tailFile(logPath, daemonLogsFlagTail)
	if err != nil {
		return err
	}

	for _, line := range lines {
		fmt.Println(line)
	}

	return nil
}

// tailFile reads the last n lines from a file.
func tailFile(path string, n int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > n {
			lines = lines[1:]
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return lines, nil
}
