package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"dayplan/internal/model"
)

// CategoryRepository manages task categories.
type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) GetOrCreate(ctx context.Context, ownerID, name string) (*model.Category, error) {
	if name == "" {
		return nil, nil
	}

	var category model.Category
	db := r.db.WithContext(ctx)
	err := db.Where("owner_id = ? AND name = ?", ownerID, name).First(&category).Error
	switch {
	case err == nil:
		return &category, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		category = model.Category{OwnerID: ownerID, Name: name}
		if err := db.Create(&category).Error; err != nil {
			return nil, fmt.Errorf("create category: %w", err)
		}
		return &category, nil
	default:
		return nil, fmt.Errorf("find category: %w", err)
	}
}

func (r *CategoryRepository) ListByUser(ctx context.Context, ownerID string) ([]model.Category, error) {
	var categories []model.Category
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}
