package model

import "time"

// User holds the profile and digest preferences of a DayPlan account.
type User struct {
	ID                 string  `gorm:"primaryKey;size:64" json:"id"`
	Email              string  `gorm:"size:255;index" json:"email"`
	FullName           string  `json:"fullName"`
	EmailNotifications bool    `gorm:"default:false;index:idx_user_notify" json:"emailNotifications"`
	NotificationTime   string  `gorm:"size:5;index:idx_user_notify" json:"notificationTime"`
	NotificationEmail  *string `json:"notificationEmail"`
	// TimeZone is an IANA zone name. Empty means the server's configured zone.
	TimeZone       string    `gorm:"size:64;index:idx_user_notify" json:"timeZone"`
	TelegramChatID *int64    `json:"telegramChatId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// SendTarget returns the address digests are delivered to.
func (u User) SendTarget() string {
	if u.NotificationEmail != nil && *u.NotificationEmail != "" {
		return *u.NotificationEmail
	}
	return u.Email
}

// NotificationSettings is the user-editable part of the digest preferences.
type NotificationSettings struct {
	Enabled        bool    `json:"emailNotifications"`
	Time           string  `json:"notificationTime"`
	Email          *string `json:"notificationEmail"`
	TimeZone       string  `json:"timeZone"`
	TelegramChatID *int64  `json:"telegramChatId"`
}
