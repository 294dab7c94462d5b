package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coachkit/traincue/internal/errors"
	"github.com/coachkit/traincue/internal/model"
	"github.com/coachkit/traincue/internal/output"
	"github.com/coachkit/traincue/internal/parser"
)

// Task command flags.
var (
	taskAddFlagBefore  string
	taskAddFlagAfter   string
	taskAddFlagNote    string
	taskEditFlagTitle  string
	taskEditFlagBefore string
	taskEditFlagAfter  string
	taskEditFlagNote   string
	taskListFlagAll    bool
)

// taskCmd represents the task command.
var taskCmd = &cobra.Command{
	Use:     "task [command]",
	Aliases: []string{"tasks", "t"},
	Short:   "Manage coaching tasks",
	Long: `Manage coaching tasks attached to activities.

A task can carry a reminder before the activity starts, after it ends,
or both. Reminders are scheduled the moment the task is saved.

Examples:
  traincue task add a1b2c3 "Pack gym bag" --before 30
  traincue task add a1b2c3 "Log protein intake" --after 2h
  traincue task done f4e5d6
  traincue task edit f4e5d6 --before 45`,
	RunE: runTaskList,
}

// taskAddCmd adds a new task to an activity.
var taskAddCmd = &cobra.Command{
	Use:   "add ACTIVITY_ID TITLE",
	Short: "Add a task to an activity",
	Long: `Add a task to an activity with optional reminder offsets.

Offsets accept minutes ('30') or durations ('1h30m'). --before counts
back from the activity start, --after counts forward from its end.

Examples:
  traincue task add a1b2c3 "Pack gym bag" --before 30
  traincue task add a1b2c3 "Stretch and log session" --after 15 --note "hips first"`,
	Args: cobra.MinimumNArgs(2),
	RunE: runTaskAdd,
}

// taskListCmd lists tasks.
var taskListCmd = &cobra.Command{
	Use:   "list [ACTIVITY_ID]",
	Short: "List tasks",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTaskList,
}

// taskDoneCmd completes a task.
var taskDoneCmd = &cobra.Command{
	Use:     "done ID",
	Aliases: []string{"complete", "finish"},
	Short:   "Mark a task complete",
	Long: `Mark a task complete. Its pending reminders are cancelled; a
completed task never fires.`,
	Args: cobra.ExactArgs(1),
	RunE: runTaskDone,
}

// taskEditCmd edits a task.
var taskEditCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Edit a task",
	Long: `Edit a task's title, note, or reminder offsets. Changed offsets
take effect immediately; set an offset to 0 to disable that reminder.

Examples:
  traincue task edit f4e5d6 --before 45
  traincue task edit f4e5d6 --after 0
  traincue task edit f4e5d6 --title "Pack bag and bands"`,
	Args: cobra.ExactArgs(1),
	RunE: runTaskEdit,
}

// taskRmCmd removes a task.
var taskRmCmd = &cobra.Command{
	Use:     "rm ID",
	Aliases: []string{"remove", "delete"},
	Short:   "Remove a task and its reminders",
	Args:    cobra.ExactArgs(1),
	RunE:    runTaskRm,
}

func init() {
	taskAddCmd.Flags().StringVarP(&taskAddFlagBefore, "before", "b", "",
		"Remind this long before the activity starts (e.g. 30, 1h)")
	taskAddCmd.Flags().StringVarP(&taskAddFlagAfter, "after", "a", "",
		"Remind this long after the activity ends (e.g. 15, 2h)")
	taskAddCmd.Flags().StringVarP(&taskAddFlagNote, "note", "n", "",
		"Attach a note to the task")

	taskEditCmd.Flags().StringVar(&taskEditFlagTitle, "title", "",
		"Update the task title")
	taskEditCmd.Flags().StringVarP(&taskEditFlagBefore, "before", "b", "",
		"Update the before-start offset (0 disables)")
	taskEditCmd.Flags().StringVarP(&taskEditFlagAfter, "after", "a", "",
		"Update the after-end offset (0 disables)")
	taskEditCmd.Flags().StringVarP(&taskEditFlagNote, "note", "n", "",
		"Update the note")

	taskListCmd.Flags().BoolVar(&taskListFlagAll, "all", false,
		"Include completed tasks")

	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskDoneCmd)
	taskCmd.AddCommand(taskEditCmd)
	taskCmd.AddCommand(taskRmCmd)
	rootCmd.AddCommand(taskCmd)
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	activity, err := resolveActivity(args[0])
	if err != nil {
		return err
	}

	title := strings.Join(args[1:], " ")
	task := model.NewTask(activity.Key, title)
	task.Note = taskAddFlagNote

	if taskAddFlagBefore != "" {
		offset, err := parser.ParseOffsetMinutes(taskAddFlagBefore)
		if err != nil {
			return err
		}
		task.RemindBeforeMin = offset
	}
	if taskAddFlagAfter != "" {
		offset, err := parser.ParseOffsetMinutes(taskAddFlagAfter)
		if err != nil {
			return err
		}
		task.RemindAfterMin = offset
	}

	if err := ctx.TaskRepo.Create(task); err != nil {
		return err
	}

	if task.HasReminder() {
		if err := syncTaskReminders(cmd.Context(), task, activity); err != nil {
			return err
		}
	}

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(output.NewTaskOutput(task))
	}

	cli := ctx.CLIFormatter()
	cli.Success(fmt.Sprintf("Added task: %s", cli.TaskName(title)))
	cli.Printf("  %s on %s\n", task.ShortID(), cli.ActivityName(activity.Title))
	printTaskOffsets(cli, task)

	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	var tasks []*model.Task
	var err error

	if len(args) > 0 {
		activity, rerr := resolveActivity(args[0])
		if rerr != nil {
			return rerr
		}
		tasks, err = ctx.TaskRepo.ListByActivity(activity.Key)
	} else if taskListFlagAll {
		tasks, err = ctx.TaskRepo.List()
	} else {
		tasks, err = ctx.TaskRepo.ListPending()
	}
	if err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(output.NewTasksResponse(tasks))
	}

	cli := ctx.CLIFormatter()
	if len(tasks) == 0 {
		cli.Muted("No tasks found.")
		cli.Muted("Add one with: traincue task add ACTIVITY_ID \"Pack gym bag\" --before 30")
		return nil
	}

	cli.Title(fmt.Sprintf("Tasks (%d)", len(tasks)))
	cli.Println()
	for _, t := range tasks {
		cli.PrintTask(t)
	}

	return nil
}

func runTaskDone(cmd *cobra.Command, args []string) error {
	task, err := resolveTask(args[0])
	if err != nil {
		return err
	}

	task, err = ctx.TaskRepo.MarkComplete(task.Key)
	if err != nil {
		return err
	}

	if err := cancelTaskReminders(cmd.Context(), task.Key); err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(output.NewTaskOutput(task))
	}

	ctx.CLIFormatter().Success(fmt.Sprintf("Completed task: %s", task.Title))
	return nil
}

func runTaskEdit(cmd *cobra.Command, args []string) error {
	task, err := resolveTask(args[0])
	if err != nil {
		return err
	}

	updated := false

	if taskEditFlagTitle != "" {
		task.Title = taskEditFlagTitle
		updated = true
	}
	if cmd.Flags().Changed("note") {
		task.Note = taskEditFlagNote
		updated = true
	}
	if taskEditFlagBefore != "" {
		offset, err := parseOffsetOrZero(taskEditFlagBefore)
		if err != nil {
			return err
		}
		task.RemindBeforeMin = offset
		updated = true
	}
	if taskEditFlagAfter != "" {
		offset, err := parseOffsetOrZero(taskEditFlagAfter)
		if err != nil {
			return err
		}
		task.RemindAfterMin = offset
		updated = true
	}

	if !updated {
		return errors.NewUserError("no updates specified",
			"Use --title, --note, --before, or --after.")
	}

	if err := ctx.TaskRepo.Update(task); err != nil {
		return err
	}

	activity, err := ctx.ActivityRepo.Get(task.ActivityKey)
	if err != nil {
		return err
	}

	if err := syncTaskReminders(cmd.Context(), task, activity); err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(output.NewTaskOutput(task))
	}

	cli := ctx.CLIFormatter()
	cli.Success(fmt.Sprintf("Updated task: %s", cli.TaskName(task.Title)))
	printTaskOffsets(cli, task)

	return nil
}

func runTaskRm(cmd *cobra.Command, args []string) error {
	task, err := resolveTask(args[0])
	if err != nil {
		return err
	}

	if err := cancelTaskReminders(cmd.Context(), task.Key); err != nil {
		return err
	}

	if err := ctx.TaskRepo.Delete(task.Key); err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(map[string]string{
			"status": "deleted",
			"key":    task.Key,
		})
	}

	ctx.CLIFormatter().Success(fmt.Sprintf("Removed task: %s", task.Title))
	return nil
}

// parseOffsetOrZero parses a reminder offset, accepting "0" as an explicit
// disable.
func parseOffsetOrZero(input string) (int, error) {
	if strings.TrimSpace(input) == "0" {
		return 0, nil
	}
	return parser.ParseOffsetMinutes(input)
}

// printTaskOffsets prints a task's reminder offsets, if any.
func printTaskOffsets(cli *output.CLIFormatter, task *model.Task) {
	if task.RemindBeforeMin > 0 {
		cli.Printf("  remind %s before start\n", output.FormatMinutes(task.RemindBeforeMin))
	}
	if task.RemindAfterMin > 0 {
		cli.Printf("  remind %s after end\n", output.FormatMinutes(task.RemindAfterMin))
	}
	if !task.HasReminder() {
		cli.Muted("  no reminders set")
	}
}
