package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dayplan/internal/httpapi"
	"dayplan/internal/service"
	"dayplan/internal/telegram"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the digest scheduler",
	Long: `Run the HTTP API and, unless scheduler.disabled is set, the digest
scheduler that checks every minute for users whose notification time has come.

Examples:
  dayplan serve --config dayplan.yaml
  DAYPLAN_DATABASE_DSN=postgres://dayplan@localhost/dayplan dayplan serve`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	logger := a.logger

	if err := a.cfg.ValidateHTTP(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if !a.cfg.Scheduler.Disabled {
		scheduler, err := startScheduler(ctx, a)
		if err != nil {
			return err
		}
		defer scheduler.Stop()
	}

	server := httpapi.NewServer(httpapi.Config{
		Addr:            a.cfg.HTTP.Addr,
		JWTSecret:       a.cfg.HTTP.JWTSecret,
		AllowedOrigins:  a.cfg.HTTP.AllowedOrigins,
		ShutdownTimeout: a.cfg.HTTP.ShutdownTimeout,
	}, a.taskSvc, a.categorySvc, a.userSvc, a.users, logger)

	logger.Info("dayplan started", zap.String("version", version))
	if err := server.Run(ctx); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

func startScheduler(ctx context.Context, a *app) (*service.SchedulerService, error) {
	var opts []service.NotificationOption
	if a.cfg.Telegram.Token != "" {
		notifier, err := telegram.New(a.cfg.Telegram.Token, a.logger.Named("telegram"))
		if err != nil {
			return nil, fmt.Errorf("telegram: %w", err)
		}
		opts = append(opts, service.WithChatNotifier(notifier))
	}

	notifications := service.NewNotificationService(a.users, a.reminderSvc, a.mailSender(), service.NotificationConfig{
		From:            a.mailFrom(),
		Location:        a.cfg.Location(),
		Concurrency:     a.cfg.Scheduler.Concurrency,
		LivenessTimeout: a.cfg.Scheduler.LivenessTimeout,
		UserTimeout:     a.cfg.Scheduler.UserTimeout,
	}, a.logger.Named("notify"), opts...)

	scheduler := service.NewSchedulerService(a.cfg.Location(), a.logger)
	// ctx only carries shutdown; each user's digest has its own deadline.
	if _, err := scheduler.ScheduleEveryMinute(func() {
		notifications.Tick(ctx)
	}); err != nil {
		return nil, fmt.Errorf("schedule notifications: %w", err)
	}
	scheduler.Start()
	a.logger.Info("digest scheduler started",
		zap.String("timezone", a.cfg.Location().String()),
		zap.Int("concurrency", a.cfg.Scheduler.Concurrency),
	)
	return scheduler, nil
}
