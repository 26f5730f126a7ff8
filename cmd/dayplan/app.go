package main

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"dayplan/internal/config"
	"dayplan/internal/logging"
	"dayplan/internal/mail"
	"dayplan/internal/recurrence"
	"dayplan/internal/repository"
	"dayplan/internal/service"
)

// app holds the wired components shared by every subcommand.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	db     *gorm.DB

	users      *repository.UserRepository
	tasks      *repository.TaskRepository
	categories *repository.CategoryRepository

	taskSvc     *service.TaskService
	categorySvc *service.CategoryService
	userSvc     *service.UserService
	reminderSvc *service.ReminderService
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	db, err := repository.NewDB(cfg.Database.DSN, logger)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}

	a := &app{
		cfg:        cfg,
		logger:     logger,
		db:         db,
		users:      repository.NewUserRepository(db),
		tasks:      repository.NewTaskRepository(db),
		categories: repository.NewCategoryRepository(db),
	}
	expander := recurrence.New(cfg.Recurrence.HorizonDays)
	a.taskSvc = service.NewTaskService(a.tasks, a.categories, expander)
	a.categorySvc = service.NewCategoryService(a.categories)
	a.userSvc = service.NewUserService(a.users)
	a.reminderSvc = service.NewReminderService(a.tasks, expander)
	return a, nil
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
	_ = a.logger.Sync()
}

// mailSender builds the retrying sender over the configured SMTP endpoints.
func (a *app) mailSender() *mail.Sender {
	var endpoints []mail.Endpoint
	for _, ep := range a.cfg.MailEndpoints() {
		endpoints = append(endpoints, mail.Endpoint{
			Name:     ep.Name,
			Host:     ep.Host,
			Port:     ep.Port,
			Security: mail.Security(ep.Security),
			Username: ep.Username,
			Password: ep.Password,
			Timeout:  a.cfg.Mail.Timeout,
		})
	}
	return mail.NewSender(endpoints, mail.RetryPolicy{
		MaxAttempts: a.cfg.Mail.MaxAttempts,
		BaseDelay:   a.cfg.Mail.BaseDelay,
	}, mail.WithLogger(a.logger.Named("mail")))
}

func (a *app) mailFrom() string {
	if a.cfg.Mail.From != "" {
		return a.cfg.Mail.From
	}
	return a.cfg.Mail.Username
}
