package model

import "time"

// Category is a per-owner label registered the first time a task uses it.
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OwnerID   string    `gorm:"size:64;index:idx_owner_category_name,unique" json:"-"`
	Name      string    `gorm:"size:128;index:idx_owner_category_name,unique" json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
