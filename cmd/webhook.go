package cmd

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/coachkit/traincue/internal/errors"
	"github.com/coachkit/traincue/internal/model"
	"github.com/coachkit/traincue/internal/output"
	"github.com/coachkit/traincue/internal/runtime"
	"github.com/coachkit/traincue/internal/storage"
)

// Webhook command flags.
var (
	webhookAddFlagType     string
	webhookAddFlagTemplate string
)

// webhookCmd represents the webhook command.
var webhookCmd = &cobra.Command{
	Use:     "webhook [command]",
	Aliases: []string{"w", "wh", "hook"},
	Short:   "Configure reminder delivery channels",
	Long: `Configure webhooks for Discord, Slack, or custom endpoints.

Reminders are delivered to every enabled webhook when they fire. At least
one enabled webhook must exist for the scheduler to run.

Examples:
  traincue webhook add gym-channel https://discord.com/api/webhooks/...
  traincue webhook list
  traincue webhook test gym-channel
  traincue webhook disable gym-channel
  traincue webhook rm gym-channel`,
	RunE: runWebhookList,
}

// webhookAddCmd adds a new webhook.
var webhookAddCmd = &cobra.Command{
	Use:   "add NAME URL",
	Short: "Add a delivery channel",
	Long: `Add a webhook for receiving reminders.

The webhook type is auto-detected from the URL:
  - Discord: discord.com/api/webhooks/...
  - Slack:   hooks.slack.com/services/...
  - Generic: any other URL

Examples:
  traincue webhook add gym-channel https://discord.com/api/webhooks/123/abc
  traincue webhook add my-endpoint https://example.com/hook --type generic`,
	Args: cobra.ExactArgs(2),
	RunE: runWebhookAdd,
}

// webhookListCmd lists all webhooks.
var webhookListCmd = &cobra.Command{
	Use:   "list",
	Short: "List delivery channels",
	RunE:  runWebhookList,
}

// webhookTestCmd tests a webhook.
var webhookTestCmd = &cobra.Command{
	Use:   "test NAME",
	Short: "Send a test notification",
	Args:  cobra.ExactArgs(1),
	RunE:  runWebhookTest,
}

// webhookRmCmd removes a webhook.
var webhookRmCmd = &cobra.Command{
	Use:     "rm NAME",
	Aliases: []string{"remove", "delete"},
	Short:   "Remove a delivery channel",
	Args:    cobra.ExactArgs(1),
	RunE:    runWebhookRm,
}

// webhookEnableCmd enables a webhook.
var webhookEnableCmd = &cobra.Command{
	Use:   "enable NAME",
	Short: "Enable a delivery channel",
	Args:  cobra.ExactArgs(1),
	RunE:  runWebhookEnable,
}

// webhookDisableCmd disables a webhook.
var webhookDisableCmd = &cobra.Command{
	Use:   "disable NAME",
	Short: "Disable a delivery channel",
	Args:  cobra.ExactArgs(1),
	RunE:  runWebhookDisable,
}

func init() {
	webhookAddCmd.Flags().StringVarP(&webhookAddFlagType, "type", "t", "",
		"Webhook type: discord, slack, generic (auto-detected from URL if not specified)")
	webhookAddCmd.Flags().StringVar(&webhookAddFlagTemplate, "template", "",
		"Custom payload template for generic webhooks")

	webhookTestCmd.ValidArgsFunction = completeWebhookArgs
	webhookRmCmd.ValidArgsFunction = completeWebhookArgs
	webhookEnableCmd.ValidArgsFunction = completeWebhookArgs
	webhookDisableCmd.ValidArgsFunction = completeWebhookArgs

	webhookCmd.AddCommand(webhookAddCmd)
	webhookCmd.AddCommand(webhookListCmd)
	webhookCmd.AddCommand(webhookTestCmd)
	webhookCmd.AddCommand(webhookRmCmd)
	webhookCmd.AddCommand(webhookEnableCmd)
	webhookCmd.AddCommand(webhookDisableCmd)

	rootCmd.AddCommand(webhookCmd)
}

// completeWebhookArgs provides completion for webhook names.
func completeWebhookArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) != 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	if ctx == nil {
		var err error
		ctx, err = runtime.New(runtime.DefaultOptions())
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		defer ctx.Close()
	}

	webhooks, err := ctx.WebhookRepo.List()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	var names []string
	for _, w := range webhooks {
		if strings.HasPrefix(w.Name, toComplete) {
			names = append(names, w.Name)
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

func runWebhookAdd(cmd *cobra.Command, args []string) error {
	name := args[0]
	webhookURL := args[1]

	if !model.IsValidWebhookName(name) {
		return errors.NewUserErrorWithField("name", name,
			"invalid webhook name",
			"Names are alphanumeric with dashes or underscores, up to 50 characters.")
	}

	parsed, err := url.Parse(webhookURL)
	if err != nil || (parsed.Scheme != "https" && parsed.Scheme != "http") || parsed.Host == "" {
		return errors.ErrInvalidURL
	}

	exists, err := ctx.WebhookRepo.Exists(name)
	if err != nil {
		return err
	}
	if exists {
		return errors.NewUserError(fmt.Sprintf("webhook '%s' already exists", name),
			"Use a different name, or remove the existing one first.")
	}

	webhookType := webhookAddFlagType
	if webhookType == "" {
		webhookType = model.DetectWebhookType(webhookURL)
	}
	if !model.IsValidWebhookType(webhookType) {
		return errors.NewUserErrorWithField("type", webhookType,
			"invalid webhook type",
			fmt.Sprintf("Valid types: %s.", strings.Join(model.ValidWebhookTypes(), ", ")))
	}

	webhook := model.NewWebhook(name, webhookType, webhookURL)
	webhook.Template = webhookAddFlagTemplate

	if err := ctx.WebhookRepo.Create(webhook); err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(output.NewWebhookOutput(webhook))
	}

	cli := ctx.CLIFormatter()
	cli.Success(fmt.Sprintf("Added webhook: %s (%s)", name, webhookType))
	cli.Muted(fmt.Sprintf("Verify delivery with: traincue webhook test %s", name))

	return nil
}

func runWebhookList(cmd *cobra.Command, args []string) error {
	webhooks, err := ctx.WebhookRepo.List()
	if err != nil {
		return err
	}

	if ctx.IsJSON() {
		outputs := make([]*output.WebhookOutput, len(webhooks))
		for i, w := range webhooks {
			outputs[i] = output.NewWebhookOutput(w)
		}
		return ctx.Formatter.JSON(map[string]interface{}{
			"webhooks": outputs,
			"count":    len(outputs),
		})
	}

	cli := ctx.CLIFormatter()
	if len(webhooks) == 0 {
		cli.Muted("No webhooks configured.")
		cli.Muted("Reminders need a delivery channel: traincue webhook add NAME URL")
		return nil
	}

	rows := make([]output.TableRow, len(webhooks))
	for i, w := range webhooks {
		state := "enabled"
		if !w.Enabled {
			state = "disabled"
		}
		status := "-"
		if w.LastError != "" {
			status = "failing"
		} else if !w.LastUsed.IsZero() {
			status = "ok"
		}
		rows[i] = output.TableRow{Columns: []string{w.Name, w.Type, state, status, w.MaskedURL()}}
	}

	cli.Title(fmt.Sprintf("Webhooks (%d)", len(webhooks)))
	cli.PrintTable([]string{"NAME", "TYPE", "STATE", "LAST", "URL"}, rows)

	return nil
}

func runWebhookTest(cmd *cobra.Command, args []string) error {
	name := args[0]

	result := ctx.Dispatcher.TestWebhook(cmd.Context(), name)

	if ctx.IsJSON() {
		resp := map[string]interface{}{
			"webhook": name,
			"success": result.Success,
		}
		if result.Error != nil {
			resp["error"] = result.Error.Error()
		}
		return ctx.Formatter.JSON(resp)
	}

	cli := ctx.CLIFormatter()
	if result.Error != nil {
		cli.Error(fmt.Sprintf("Test failed for '%s': %v", name, result.Error))
		return nil
	}

	cli.Success(fmt.Sprintf("Test notification sent to '%s' (%s)", name, result.Duration.Round(time.Millisecond)))
	return nil
}

func runWebhookRm(cmd *cobra.Command, args []string) error {
	name := args[0]

	exists, err := ctx.WebhookRepo.Exists(name)
	if err != nil {
		return err
	}
	if !exists {
		return errors.ErrWebhookNotFound
	}

	if err := ctx.WebhookRepo.Delete(name); err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(map[string]string{"status": "deleted", "name": name})
	}

	ctx.CLIFormatter().Success(fmt.Sprintf("Removed webhook: %s", name))
	return nil
}

func runWebhookEnable(cmd *cobra.Command, args []string) error {
	return setWebhookEnabled(args[0], true)
}

func runWebhookDisable(cmd *cobra.Command, args []string) error {
	return setWebhookEnabled(args[0], false)
}

func setWebhookEnabled(name string, enabled bool) error {
	if err := ctx.WebhookRepo.SetEnabled(name, enabled); err != nil {
		if storage.IsErrKeyNotFound(err) {
			return errors.ErrWebhookNotFound
		}
		return err
	}

	state := "enabled"
	if !enabled {
		state = "disabled"
	}

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(map[string]string{"status": state, "name": name})
	}

	ctx.CLIFormatter().Success(fmt.Sprintf("Webhook '%s' %s", name, state))
	return nil
}
