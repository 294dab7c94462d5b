package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/coachkit/traincue/internal/errors"
	"github.com/coachkit/traincue/internal/model"
	"github.com/coachkit/traincue/internal/output"
	"github.com/coachkit/traincue/internal/parser"
)

// Activity command flags.
var (
	activityAddFlagAt       string
	activityAddFlagDuration string
	activityMoveFlagAt      string
	activityMoveFlagDur     string
	activityListFlagAll     bool
	activityRmFlagExternal  bool
)

// activityCmd represents the activity command.
var activityCmd = &cobra.Command{
	Use:     "activity [command]",
	Aliases: []string{"activities", "act", "a"},
	Short:   "Manage training activities",
	Long: `Manage scheduled training activities.

Activities carry a local date, a start time, and a duration. Tasks attach
to activities and fire reminders relative to the activity's start or end.

Examples:
  traincue activity add "Leg day" --at "tomorrow 6pm" --duration 1h
  traincue activity list
  traincue activity move a1b2c3 --at "friday 18:00"
  traincue activity rm a1b2c3`,
	RunE: runActivityList,
}

// activityAddCmd adds a new activity.
var activityAddCmd = &cobra.Command{
	Use:   "add TITLE",
	Short: "Add a new activity",
	Long: `Add a training activity at a given time.

The --at flag accepts natural language ('tomorrow 6pm', 'friday 18:00')
or explicit timestamps ('2026-01-15 14:00').

Examples:
  traincue activity add "Leg day" --at "tomorrow 6pm" --duration 1h
  traincue activity add "Easy run" --at "18:30" --duration 45m`,
	Args: cobra.MinimumNArgs(1),
	RunE: runActivityAdd,
}

// activityListCmd lists activities.
var activityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List upcoming activities",
	RunE:  runActivityList,
}

// activityMoveCmd reschedules an activity.
var activityMoveCmd = &cobra.Command{
	Use:   "move ID",
	Short: "Reschedule an activity",
	Long: `Move an activity to a new time. Reminders for its tasks are
rescheduled immediately.

Examples:
  traincue activity move a1b2c3 --at "friday 18:00"
  traincue activity move a1b2c3 --at "tomorrow 7am" --duration 90m`,
	Args: cobra.ExactArgs(1),
	RunE: runActivityMove,
}

// activityRmCmd removes activities.
var activityRmCmd = &cobra.Command{
	Use:     "rm [ID]",
	Aliases: []string{"remove", "delete"},
	Short:   "Remove an activity and its tasks",
	Long: `Remove an activity, its tasks, and any scheduled reminders.

With --external, removes every activity imported from a calendar feed
instead; a forced refresh then rebuilds the schedule.

Examples:
  traincue activity rm a1b2c3
  traincue activity rm --external`,
	Args: cobra.MaximumNArgs(1),
	RunE: runActivityRm,
}

func init() {
	activityAddCmd.Flags().StringVar(&activityAddFlagAt, "at", "",
		"When the activity starts (natural language or timestamp)")
	activityAddCmd.Flags().StringVarP(&activityAddFlagDuration, "duration", "d", "1h",
		"How long the activity lasts (e.g. 45m, 1h30m)")
	activityAddCmd.MarkFlagRequired("at")

	activityMoveCmd.Flags().StringVar(&activityMoveFlagAt, "at", "",
		"New start time")
	activityMoveCmd.Flags().StringVarP(&activityMoveFlagDur, "duration", "d", "",
		"New duration")
	activityMoveCmd.MarkFlagRequired("at")

	activityListFlag := activityListCmd.Flags()
	activityListFlag.BoolVarP(&activityListFlagAll, "all", "a", false,
		"Include past activities")

	activityRmCmd.Flags().BoolVar(&activityRmFlagExternal, "external", false,
		"Remove all activities imported from a calendar feed")

	activityCmd.AddCommand(activityAddCmd)
	activityCmd.AddCommand(activityListCmd)
	activityCmd.AddCommand(activityMoveCmd)
	activityCmd.AddCommand(activityRmCmd)
	rootCmd.AddCommand(activityCmd)
}

func runActivityAdd(cmd *cobra.Command, args []string) error {
	title := strings.Join(args, " ")

	startAt, err := parser.ParseWhen(activityAddFlagAt, time.Now())
	if err != nil {
		return err
	}

	durationMin, err := parser.ParseDurationMinutes(activityAddFlagDuration)
	if err != nil {
		return err
	}

	activity := model.NewActivity(title, startAt, durationMin)
	if err := ctx.ActivityRepo.Create(activity); err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(output.NewActivityOutput(activity))
	}

	cli := ctx.CLIFormatter()
	cli.Success(fmt.Sprintf("Added activity: %s", cli.ActivityName(title)))
	cli.Printf("  %s  %s %s, %s\n", activity.ShortID(), activity.Date, activity.Start,
		output.FormatMinutes(activity.DurationMin))
	cli.Muted(fmt.Sprintf("Attach tasks with: traincue task add %s \"...\"", activity.ShortID()))

	return nil
}

func runActivityList(cmd *cobra.Command, args []string) error {
	activities, err := ctx.ActivityRepo.List()
	if err != nil {
		return err
	}

	if !activityListFlagAll {
		now := time.Now()
		var upcoming []*model.Activity
		for _, a := range activities {
			end, err := a.EndAt()
			if err != nil || end.After(now) {
				upcoming = append(upcoming, a)
			}
		}
		activities = upcoming
	}

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(output.NewActivitiesResponse(activities))
	}

	cli := ctx.CLIFormatter()
	if len(activities) == 0 {
		cli.Muted("No upcoming activities.")
		cli.Muted("Add one with: traincue activity add \"Leg day\" --at \"tomorrow 6pm\"")
		return nil
	}

	cli.Title(fmt.Sprintf("Activities (%d)", len(activities)))
	cli.Println()
	for _, a := range activities {
		cli.PrintActivity(a)

		tasks, err := ctx.TaskRepo.ListByActivity(a.Key)
		if err != nil {
			return err
		}
		for _, t := range tasks {
			cli.PrintTask(t)
		}
		cli.Println()
	}

	return nil
}

func runActivityMove(cmd *cobra.Command, args []string) error {
	activity, err := resolveActivity(args[0])
	if err != nil {
		return err
	}

	startAt, err := parser.ParseWhen(activityMoveFlagAt, time.Now())
	if err != nil {
		return err
	}

	local := startAt.Local()
	activity.Date = local.Format(model.DateLayout)
	activity.Start = local.Format(model.ClockLayout)

	if activityMoveFlagDur != "" {
		durationMin, err := parser.ParseDurationMinutes(activityMoveFlagDur)
		if err != nil {
			return err
		}
		activity.DurationMin = durationMin
	}

	if err := ctx.ActivityRepo.Update(activity); err != nil {
		return err
	}

	// The move changed every fire time anchored to this activity.
	if err := rescheduleActivityTasks(cmd.Context(), activity); err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(output.NewActivityOutput(activity))
	}

	cli := ctx.CLIFormatter()
	cli.Success(fmt.Sprintf("Moved activity: %s", cli.ActivityName(activity.Title)))
	cli.Printf("  %s %s, %s\n", activity.Date, activity.Start, output.FormatMinutes(activity.DurationMin))

	return nil
}

func runActivityRm(cmd *cobra.Command, args []string) error {
	if activityRmFlagExternal {
		return runActivityRmExternal(cmd)
	}

	if len(args) == 0 {
		return errors.NewUserError("activity ID required",
			"Use 'traincue activity list' to find the ID, or --external to purge imported activities.")
	}

	activity, err := resolveActivity(args[0])
	if err != nil {
		return err
	}

	if err := removeActivityAndTasks(cmd, activity); err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(map[string]string{
			"status": "deleted",
			"key":    activity.Key,
		})
	}

	ctx.CLIFormatter().Success(fmt.Sprintf("Removed activity: %s", activity.Title))
	return nil
}

func runActivityRmExternal(cmd *cobra.Command) error {
	external, err := ctx.ActivityRepo.ListExternal()
	if err != nil {
		return err
	}

	for _, activity := range external {
		if err := removeActivityAndTasks(cmd, activity); err != nil {
			return err
		}
	}

	// The bulk delete may have invalidated a large slice of the schedule;
	// rebuild it wholesale instead of patching entry by entry.
	if len(external) > 0 {
		if _, err := ctx.Engine.Refresh(cmd.Context(), true); err != nil && !errors.IsPermissionDenied(err) {
			return err
		}
	}

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(map[string]interface{}{
			"status":  "deleted",
			"removed": len(external),
		})
	}

	ctx.CLIFormatter().Success(fmt.Sprintf("Removed %d imported activities", len(external)))
	return nil
}

// removeActivityAndTasks deletes an activity, its tasks, and their reminders.
func removeActivityAndTasks(cmd *cobra.Command, activity *model.Activity) error {
	tasks, err := ctx.TaskRepo.ListByActivity(activity.Key)
	if err != nil {
		return err
	}

	for _, task := range tasks {
		if err := cancelTaskReminders(cmd.Context(), task.Key); err != nil {
			return err
		}
		if err := ctx.TaskRepo.Delete(task.Key); err != nil {
			return err
		}
	}

	return ctx.ActivityRepo.Delete(activity.Key)
}
