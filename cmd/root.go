// Package cmd provides the CLI commands for Traincue.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coachkit/traincue/internal/errors"
	"github.com/coachkit/traincue/internal/logging"
	"github.com/coachkit/traincue/internal/output"
	"github.com/coachkit/traincue/internal/runtime"
)

// Version information (set at build time via ldflags).
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Global flags.
var (
	flagFormat string
	flagColor  string
	flagDebug  bool
)

// ctx is the shared runtime context.
var ctx *runtime.Context

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "traincue",
	Short: "Training session reminders on your schedule",
	Long: `Traincue schedules reminders around your training sessions and
delivers them to Discord, Slack, or any webhook endpoint.

Examples:
  traincue activity add "Leg day" --at "tomorrow 6pm" --duration 1h
  traincue task add a1b2c3 "Pack gym bag" --before 30
  traincue webhook add gym-channel https://discord.com/api/webhooks/...
  traincue daemon start`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if flagDebug {
			logging.InitDebug()
		}

		if !needsRuntime(cmd) {
			return nil
		}

		var format output.Format
		switch flagFormat {
		case "json":
			format = output.FormatJSON
		case "plain":
			format = output.FormatPlain
		default:
			format = output.FormatCLI
		}

		var colorMode output.ColorMode
		switch flagColor {
		case "always":
			colorMode = output.ColorAlways
		case "never":
			colorMode = output.ColorNever
		default:
			colorMode = output.ColorAuto
		}

		opts := runtime.DefaultOptions()
		opts.Format = format
		opts.ColorMode = colorMode
		opts.Debug = flagDebug

		var err error
		ctx, err = runtime.New(opts)
		if err != nil {
			return err
		}

		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if ctx != nil {
			return ctx.Close()
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: show the queue snapshot.
		return runStats(cmd, args)
	},
}

// needsRuntime reports whether a command needs the database-backed runtime
// context. Process-control commands must not take the database lock; the
// daemon child they manage holds it.
func needsRuntime(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "completion", "help", "version", "__complete":
		return false
	}

	if cmd.Parent() != nil && cmd.Parent().Name() == "daemon" {
		switch cmd.Name() {
		case "stop", "status", "logs":
			return false
		case "start":
			foreground, _ := cmd.Flags().GetBool("foreground")
			return foreground
		}
	}

	return true
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		if suggestion := errors.GetSuggestion(err); suggestion != "" {
			fmt.Fprintln(os.Stderr, suggestion)
		}
	}
	return err
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&flagFormat, "format", "f", "cli",
		"Output format: cli, json, plain")
	rootCmd.PersistentFlags().StringVar(&flagColor, "color", "auto",
		"Color output: auto, always, never")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false,
		"Enable debug output")

	rootCmd.AddCommand(versionCmd)
}

// versionCmd shows version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("traincue %s\n", Version)
		cmd.Printf("  commit: %s\n", Commit)
		cmd.Printf("  built: %s\n", BuildTime)
	},
}
