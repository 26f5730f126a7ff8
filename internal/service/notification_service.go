package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dayplan/internal/mail"
	"dayplan/internal/metrics"
	"dayplan/internal/model"
)

var (
	// ErrStoreUnavailable is logged when the liveness probe fails and a tick is skipped.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrNoSendTarget is returned for users with neither an account nor a digest address.
	ErrNoSendTarget = errors.New("user has no email address")
)

// UserStore is the user lookup used by the notification scheduler.
type UserStore interface {
	Ping(ctx context.Context) error
	NotificationZones(ctx context.Context) ([]string, error)
	FindUsersWithNotificationsDueAt(ctx context.Context, hhmm, zone string) ([]model.User, error)
	FindUserByID(ctx context.Context, id string) (*model.User, error)
}

// MailSender delivers a message and returns its Message-ID.
type MailSender interface {
	Send(ctx context.Context, msg mail.Message) (string, error)
}

// ChatNotifier pushes a text digest to a chat.
type ChatNotifier interface {
	SendDigest(ctx context.Context, chatID int64, text string) error
}

// NotificationConfig tunes the notification scheduler.
type NotificationConfig struct {
	From            string
	Location        *time.Location // zone of users without one
	Concurrency     int
	LivenessTimeout time.Duration

	// UserTimeout bounds building and sending one user's digest.
	UserTimeout time.Duration
}

// NotificationService sends each user their digest at their configured time.
type NotificationService struct {
	users     UserStore
	reminders *ReminderService
	mailer    MailSender
	chat      ChatNotifier
	cfg       NotificationConfig
	logger    *zap.Logger
	now       func() time.Time
}

type NotificationOption func(*NotificationService)

func WithChatNotifier(c ChatNotifier) NotificationOption {
	return func(s *NotificationService) { s.chat = c }
}

func WithClock(now func() time.Time) NotificationOption {
	return func(s *NotificationService) { s.now = now }
}

func NewNotificationService(users UserStore, reminders *ReminderService, mailer MailSender, cfg NotificationConfig, logger *zap.Logger, opts ...NotificationOption) *NotificationService {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.LivenessTimeout <= 0 {
		cfg.LivenessTimeout = 3 * time.Second
	}
	if cfg.UserTimeout <= 0 {
		cfg.UserTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{
		users:     users,
		reminders: reminders,
		mailer:    mailer,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type dueUser struct {
	user  model.User
	local time.Time
}

// Tick sends digests to every user whose notification time is the current
// minute in their zone. It never returns an error: a missing store skips the
// tick and a failing user is logged and skipped.
func (s *NotificationService) Tick(ctx context.Context) {
	started := time.Now()
	defer func() {
		metrics.TickDuration.Observe(time.Since(started).Seconds())
	}()

	pingCtx, cancel := context.WithTimeout(ctx, s.cfg.LivenessTimeout)
	err := s.users.Ping(pingCtx)
	cancel()
	if err != nil {
		metrics.SchedulerTicks.WithLabelValues(metrics.TickStoreUnavailable).Inc()
		s.logger.Warn("skipping notification tick", zap.Error(fmt.Errorf("%w: %v", ErrStoreUnavailable, err)))
		return
	}

	zones, err := s.users.NotificationZones(ctx)
	if err != nil {
		metrics.SchedulerTicks.WithLabelValues(metrics.TickQueryFailed).Inc()
		s.logger.Error("list notification zones", zap.Error(err))
		return
	}

	now := s.now()
	var due []dueUser
	for _, zone := range zones {
		loc, err := s.location(zone)
		if err != nil {
			s.logger.Warn("unknown user time zone", zap.String("zone", zone), zap.Error(err))
			continue
		}
		local := now.In(loc)
		users, err := s.users.FindUsersWithNotificationsDueAt(ctx, local.Format("15:04"), zone)
		if err != nil {
			s.logger.Error("find users due", zap.String("zone", zone), zap.Error(err))
			continue
		}
		for _, u := range users {
			due = append(due, dueUser{user: u, local: local})
		}
	}

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for _, d := range due {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					metrics.Notifications.WithLabelValues(metrics.NotificationFailed).Inc()
					s.logger.Error("notification panicked", zap.String("user_id", d.user.ID), zap.Any("panic", r))
				}
			}()
			userCtx, cancel := context.WithTimeout(ctx, s.cfg.UserTimeout)
			defer cancel()
			_ = s.notify(userCtx, d.user, d.local)
			return nil
		})
	}
	_ = g.Wait()

	elapsed := time.Since(started)
	if elapsed > time.Minute {
		s.logger.Warn("notification tick overran its minute", zap.Duration("elapsed", elapsed), zap.Int("users", len(due)))
	}
	metrics.SchedulerTicks.WithLabelValues(metrics.TickCompleted).Inc()
	s.logger.Debug("notification tick complete", zap.Int("users", len(due)), zap.Duration("elapsed", elapsed))
}

// RunOnce sends the digest for a single user immediately.
func (s *NotificationService) RunOnce(ctx context.Context, userID string) error {
	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	loc, err := s.location(user.TimeZone)
	if err != nil {
		return fmt.Errorf("user time zone: %w", err)
	}
	userCtx, cancel := context.WithTimeout(ctx, s.cfg.UserTimeout)
	defer cancel()
	return s.notify(userCtx, *user, s.now().In(loc))
}

func (s *NotificationService) notify(ctx context.Context, user model.User, local time.Time) error {
	to := user.SendTarget()
	if to == "" {
		metrics.Notifications.WithLabelValues(metrics.NotificationSkipped).Inc()
		s.logger.Warn("digest skipped: no email address", zap.String("user_id", user.ID))
		return ErrNoSendTarget
	}

	digest, err := s.reminders.DailyDigest(ctx, user, local)
	if err != nil {
		var ownErr *OwnershipError
		if errors.As(err, &ownErr) {
			metrics.Notifications.WithLabelValues(metrics.NotificationOwnershipViolation).Inc()
			s.logger.Error("digest withheld: task ownership mismatch",
				zap.String("alert", "ownership_violation"),
				zap.String("user_id", user.ID),
				zap.Int("foreign_tasks", ownErr.Mismatched),
			)
			return err
		}
		metrics.Notifications.WithLabelValues(metrics.NotificationFailed).Inc()
		s.logger.Error("build digest", zap.String("user_id", user.ID), zap.Error(err))
		return err
	}

	subject, body := RenderEmail(digest)
	messageID, err := s.mailer.Send(ctx, mail.Message{
		From:    s.cfg.From,
		To:      to,
		Subject: subject,
		HTML:    body,
	})
	if err != nil {
		metrics.Notifications.WithLabelValues(metrics.NotificationFailed).Inc()
		s.logger.Error("send digest", zap.String("user_id", user.ID), zap.Error(err))
		return err
	}

	metrics.Notifications.WithLabelValues(metrics.NotificationSent).Inc()
	s.logger.Info("digest sent",
		zap.String("user_id", user.ID),
		zap.String("date", digest.Date),
		zap.Int("tasks", len(digest.Tasks)),
		zap.String("message_id", messageID),
	)

	if user.TelegramChatID != nil && s.chat != nil {
		if err := s.chat.SendDigest(ctx, *user.TelegramChatID, RenderText(digest)); err != nil {
			s.logger.Warn("send telegram digest", zap.String("user_id", user.ID), zap.Error(err))
		}
	}
	return nil
}

func (s *NotificationService) location(zone string) (*time.Location, error) {
	if zone == "" {
		return s.cfg.Location, nil
	}
	return time.LoadLocation(zone)
}
