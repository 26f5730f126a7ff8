package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"dayplan/internal/model"
	"dayplan/internal/repository"
)

// ErrInvalidSettings wraps notification settings validation failures.
var ErrInvalidSettings = errors.New("invalid notification settings")

// UserService manages accounts known to the API.
type UserService struct {
	repo *repository.UserRepository
}

func NewUserService(repo *repository.UserRepository) *UserService {
	return &UserService{repo: repo}
}

// Ensure returns the user for an authenticated identity, creating it on first sight.
func (s *UserService) Ensure(ctx context.Context, id, email, fullName string) (*model.User, error) {
	return s.repo.Upsert(ctx, id, email, fullName)
}

func (s *UserService) UpdateNotificationSettings(ctx context.Context, user *model.User, settings model.NotificationSettings) (*model.User, error) {
	if !validClock(settings.Time) {
		return nil, fmt.Errorf("%w: notification time must be HH:MM", ErrInvalidSettings)
	}
	if settings.TimeZone != "" {
		if _, err := time.LoadLocation(settings.TimeZone); err != nil {
			return nil, fmt.Errorf("%w: unknown time zone %q", ErrInvalidSettings, settings.TimeZone)
		}
	}
	if settings.Email != nil {
		trimmed := strings.TrimSpace(*settings.Email)
		if trimmed == "" {
			settings.Email = nil
		} else {
			addr, err := mail.ParseAddress(trimmed)
			if err != nil {
				return nil, fmt.Errorf("%w: notification email: %v", ErrInvalidSettings, err)
			}
			settings.Email = &addr.Address
		}
	}
	return s.repo.UpdateNotificationSettings(ctx, user.ID, settings)
}
