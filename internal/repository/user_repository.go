package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"dayplan/internal/model"
)

// UserRepository handles CRUD for users.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert finds or creates a user by id and refreshes email and name from the identity provider.
func (r *UserRepository) Upsert(ctx context.Context, id, email, fullName string) (*model.User, error) {
	var user model.User
	db := r.db.WithContext(ctx)
	err := db.Where("id = ?", id).First(&user).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{}
		if email != "" && email != user.Email {
			updates["email"] = email
		}
		if fullName != "" && fullName != user.FullName {
			updates["full_name"] = fullName
		}
		if len(updates) == 0 {
			return &user, nil
		}
		if err := db.Model(&user).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		if email != "" {
			user.Email = email
		}
		if fullName != "" {
			user.FullName = fullName
		}
		return &user, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = model.User{
			ID:               id,
			Email:            email,
			FullName:         fullName,
			NotificationTime: "08:00",
		}
		if err := db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		return &user, nil
	default:
		return nil, fmt.Errorf("find user: %w", err)
	}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// FindUsersWithNotificationsDueAt returns enabled users whose send time equals
// hhmm exactly and whose time zone is zone.
func (r *UserRepository) FindUsersWithNotificationsDueAt(ctx context.Context, hhmm, zone string) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).
		Where("email_notifications = ? AND notification_time = ? AND time_zone = ?", true, hhmm, zone).
		Order("id ASC").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("find due users: %w", err)
	}
	return users, nil
}

// NotificationZones lists the distinct time zones of users with notifications on.
func (r *UserRepository) NotificationZones(ctx context.Context) ([]string, error) {
	var zones []string
	if err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("email_notifications = ?", true).
		Distinct().
		Order("time_zone ASC").
		Pluck("time_zone", &zones).Error; err != nil {
		return nil, fmt.Errorf("list notification zones: %w", err)
	}
	return zones, nil
}

func (r *UserRepository) UpdateNotificationSettings(ctx context.Context, id string, s model.NotificationSettings) (*model.User, error) {
	user, err := r.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{
		"email_notifications": s.Enabled,
		"notification_time":   s.Time,
		"notification_email":  s.Email,
		"time_zone":           s.TimeZone,
		"telegram_chat_id":    s.TelegramChatID,
	}
	if err := r.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update notification settings: %w", err)
	}
	return r.FindUserByID(ctx, id)
}

// Ping is the liveness probe used before each scheduler tick.
func (r *UserRepository) Ping(ctx context.Context) error {
	return Ping(ctx, r.db)
}
