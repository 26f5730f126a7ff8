package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dayplan/internal/service"
	"dayplan/internal/telegram"
)

var notifyUser string

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Send one user's digest now",
	Long: `Build and send today's digest for a single user, regardless of their
notification time or whether reminders are enabled.

Examples:
  dayplan notify --user 7f0c5a1e`,
	RunE: runNotify,
}

func init() {
	notifyCmd.Flags().StringVar(&notifyUser, "user", "", "user ID")
	_ = notifyCmd.MarkFlagRequired("user")
}

func runNotify(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if len(a.cfg.MailEndpoints()) == 0 {
		return fmt.Errorf("no mail endpoints configured")
	}

	var opts []service.NotificationOption
	if a.cfg.Telegram.Token != "" {
		notifier, err := telegram.New(a.cfg.Telegram.Token, a.logger.Named("telegram"))
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		opts = append(opts, service.WithChatNotifier(notifier))
	}

	notifications := service.NewNotificationService(a.users, a.reminderSvc, a.mailSender(), service.NotificationConfig{
		From:        a.mailFrom(),
		Location:    a.cfg.Location(),
		UserTimeout: a.cfg.Scheduler.UserTimeout,
	}, a.logger.Named("notify"), opts...)

	if err := notifications.RunOnce(cmd.Context(), notifyUser); err != nil {
		return fmt.Errorf("notify %s: %w", notifyUser, err)
	}
	a.logger.Info("digest sent", zap.String("user_id", notifyUser))
	return nil
}
