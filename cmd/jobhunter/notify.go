package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ar3ac/jobhunter/internal/notifier"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Notification subcommands",
}

var notifyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a test notification",
	Long:  "Sends a sample posting through the configured notifier.",
	RunE:  runNotifyTest,
}

func init() {
	rootCmd.AddCommand(notifyCmd)
	notifyCmd.AddCommand(notifyTestCmd)
}

func runNotifyTest(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(profilePath)
	if err != nil {
		fatal(logger, "failed to load profile", err)
	}

	ctx := context.Background()
	n, closeNotifier, err := setupNotifier(ctx, cfg, newHTTPClient(), logger)
	if err != nil {
		fatal(logger, "failed to set up notifier", err)
	}
	defer closeNotifier()

	if err := notifier.SendTestMessage(ctx, n); err != nil {
		closeNotifier()
		fatal(logger, "test notification failed", err)
	}
	logger.Info("test notification sent successfully", "type", cfg.Notification.Type)
	return nil
}
