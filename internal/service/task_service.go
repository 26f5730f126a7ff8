package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"dayplan/internal/model"
	"dayplan/internal/recurrence"
	"dayplan/internal/repository"
)

// ErrInvalidTask wraps every task validation failure.
var ErrInvalidTask = errors.New("invalid task")

// TaskInput represents data required to create or replace a task.
type TaskInput struct {
	Title             string             `json:"title"`
	Description       string             `json:"description"`
	Category          string             `json:"category"`
	Date              string             `json:"date"`
	StartTime         string             `json:"startTime"`
	Priority          string             `json:"priority"`
	Completed         bool               `json:"completed"`
	Tags              []string           `json:"tags"`
	Subtasks          []model.Subtask    `json:"subtasks"`
	Attachments       []model.Attachment `json:"attachments"`
	IsRecurring       bool               `json:"isRecurring"`
	RecurrenceType    string             `json:"recurrenceType"`
	RecurrenceEndDate string             `json:"recurrenceEndDate"`
}

// TaskService wraps task-related business logic.
type TaskService struct {
	taskRepo     *repository.TaskRepository
	categoryRepo *repository.CategoryRepository
	expander     *recurrence.Expander
}

func NewTaskService(taskRepo *repository.TaskRepository, categoryRepo *repository.CategoryRepository, expander *recurrence.Expander) *TaskService {
	if expander == nil {
		expander = recurrence.New(recurrence.DefaultHorizonDays)
	}
	return &TaskService{taskRepo: taskRepo, categoryRepo: categoryRepo, expander: expander}
}

func (s *TaskService) CreateTask(ctx context.Context, user *model.User, input TaskInput) (*model.Task, error) {
	input, err := normalizeInput(input)
	if err != nil {
		return nil, err
	}
	if err := s.registerCategory(ctx, user, input.Category); err != nil {
		return nil, err
	}

	task := model.Task{ID: uuid.NewString(), OwnerID: user.ID}
	applyInput(&task, input)

	if err := s.taskRepo.Create(ctx, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask replaces the editable fields of a stored task. Editing a template
// changes every derived instance, since instances are recomputed on read.
func (s *TaskService) UpdateTask(ctx context.Context, user *model.User, taskID string, input TaskInput) (*model.Task, error) {
	input, err := normalizeInput(input)
	if err != nil {
		return nil, err
	}
	task, err := s.taskRepo.FindByID(ctx, user.ID, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.registerCategory(ctx, user, input.Category); err != nil {
		return nil, err
	}

	applyInput(task, input)
	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) GetTask(ctx context.Context, user *model.User, taskID string) (*model.Task, error) {
	return s.taskRepo.FindByID(ctx, user.ID, taskID)
}

// DeleteTask removes a task completely (for both one-time and recurring tasks).
func (s *TaskService) DeleteTask(ctx context.Context, user *model.User, taskID string) error {
	return s.taskRepo.Delete(ctx, user.ID, taskID)
}

// ListRange returns the user's tasks dated within [start, end]: stored rows plus
// virtual occurrences of recurring templates, ordered by date and start time.
func (s *TaskService) ListRange(ctx context.Context, user *model.User, start, end time.Time) ([]model.Task, error) {
	if recurrence.Day(end).Before(recurrence.Day(start)) {
		return nil, fmt.Errorf("%w: range end before start", ErrInvalidTask)
	}
	stored, err := s.taskRepo.ListInRange(ctx, user.ID, recurrence.FormatDate(start), recurrence.FormatDate(end))
	if err != nil {
		return nil, err
	}
	roots, err := s.taskRepo.FindAllRecurringRootsForOwner(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if err := AssertOwnership(user.ID, stored, roots); err != nil {
		return nil, err
	}

	tasks := append(stored, s.expander.Expand(roots, start, end)...)
	sortByDateAndStartTime(tasks)
	return tasks, nil
}

func (s *TaskService) registerCategory(ctx context.Context, user *model.User, name string) error {
	if name == "" || s.categoryRepo == nil {
		return nil
	}
	_, err := s.categoryRepo.GetOrCreate(ctx, user.ID, name)
	return err
}

func normalizeInput(in TaskInput) (TaskInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Category = strings.TrimSpace(in.Category)
	if in.Title == "" {
		return in, fmt.Errorf("%w: title is required", ErrInvalidTask)
	}
	anchor, err := recurrence.ParseDate(in.Date)
	if err != nil {
		return in, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidTask)
	}
	if in.StartTime != "" && !validClock(in.StartTime) {
		return in, fmt.Errorf("%w: start time must be HH:MM", ErrInvalidTask)
	}

	switch in.Priority {
	case "":
		in.Priority = model.PriorityMedium
	case model.PriorityLow, model.PriorityMedium, model.PriorityHigh:
	default:
		return in, fmt.Errorf("%w: unknown priority %q", ErrInvalidTask, in.Priority)
	}

	if !in.IsRecurring {
		in.RecurrenceType = ""
		in.RecurrenceEndDate = ""
		return in, nil
	}
	if !recurrence.ValidType(in.RecurrenceType) {
		return in, fmt.Errorf("%w: recurrence type must be daily, weekly or monthly", ErrInvalidTask)
	}
	if in.RecurrenceEndDate != "" {
		until, err := recurrence.ParseDate(in.RecurrenceEndDate)
		if err != nil {
			return in, fmt.Errorf("%w: recurrence end date must be YYYY-MM-DD", ErrInvalidTask)
		}
		if until.Before(anchor) {
			return in, fmt.Errorf("%w: recurrence ends before it starts", ErrInvalidTask)
		}
	}
	return in, nil
}

func applyInput(task *model.Task, in TaskInput) {
	task.Title = in.Title
	task.Description = in.Description
	task.Category = in.Category
	task.Date = in.Date
	task.StartTime = in.StartTime
	task.Priority = in.Priority
	task.Completed = in.Completed
	task.Tags = in.Tags
	task.Subtasks = in.Subtasks
	task.Attachments = in.Attachments
	task.IsRecurring = in.IsRecurring
	task.RecurrenceType = in.RecurrenceType
	task.RecurrenceEndDate = in.RecurrenceEndDate
}

// validClock accepts zero-padded 24-hour HH:MM.
func validClock(s string) bool {
	t, err := time.Parse("15:04", s)
	return err == nil && t.Format("15:04") == s
}
