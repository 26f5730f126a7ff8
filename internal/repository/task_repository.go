package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"dayplan/internal/model"
)

// ErrInstanceWrite rejects attempts to store a derived recurring instance.
var ErrInstanceWrite = errors.New("recurring instances are not stored")

// startTimeOrder sorts by start time ascending with untimed tasks last.
const startTimeOrder = "CASE WHEN start_time IS NULL OR start_time = '' THEN 1 ELSE 0 END, start_time ASC, created_at ASC"

// TaskRepository handles CRUD for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if task.RecurringParentID != nil || task.IsRecurringInstance {
		return ErrInstanceWrite
	}
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// Update overwrites a stored task. The row must already belong to task.OwnerID.
func (r *TaskRepository) Update(ctx context.Context, task *model.Task) error {
	if task.RecurringParentID != nil || task.IsRecurringInstance {
		return ErrInstanceWrite
	}
	res := r.db.WithContext(ctx).
		Model(&model.Task{}).
		Where("owner_id = ? AND id = ?", task.OwnerID, task.ID).
		Select("*").
		Omit("id", "owner_id", "created_at").
		Updates(task)
	if res.Error != nil {
		return fmt.Errorf("update task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, ownerID, taskID string) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Where("owner_id = ? AND id = ?", ownerID, taskID).First(&task).Error; err != nil {
		return nil, notFound(err)
	}
	return &task, nil
}

// Delete removes a task for the given owner. Deleting a template removes all
// of its derived instances with it.
func (r *TaskRepository) Delete(ctx context.Context, ownerID, taskID string) error {
	res := r.db.WithContext(ctx).Where("owner_id = ? AND id = ?", ownerID, taskID).Delete(&model.Task{})
	if res.Error != nil {
		return fmt.Errorf("delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FindTasksForOwnerOnDate returns the owner's stored tasks dated date, by start time.
func (r *TaskRepository) FindTasksForOwnerOnDate(ctx context.Context, ownerID, date string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND date = ?", ownerID, date).
		Order(startTimeOrder).
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("find tasks on %s: %w", date, err)
	}
	return tasks, nil
}

// FindAllRecurringRootsForOwner returns the owner's recurring templates.
func (r *TaskRepository) FindAllRecurringRootsForOwner(ctx context.Context, ownerID string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND is_recurring = ? AND recurring_parent_id IS NULL", ownerID, true).
		Order("date ASC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("find recurring roots: %w", err)
	}
	return tasks, nil
}

// ListInRange returns stored tasks dated within [start, end], ordered by date then start time.
func (r *TaskRepository) ListInRange(ctx context.Context, ownerID, start, end string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND date >= ? AND date <= ?", ownerID, start, end).
		Order("date ASC, " + startTimeOrder).
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}
