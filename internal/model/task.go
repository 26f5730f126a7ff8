package model

import "time"

// Priority levels accepted on a task.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Recurrence rules understood by the expander.
const (
	RecurrenceDaily   = "daily"
	RecurrenceWeekly  = "weekly"
	RecurrenceMonthly = "monthly"
)

// DateLayout is the calendar-day format used for task dates.
const DateLayout = "2006-01-02"

// Task is a dated planner item. A task with IsRecurring set is a template whose
// Date is the first occurrence; later occurrences are derived at read time and
// never stored.
type Task struct {
	ID                  string       `gorm:"primaryKey;size:64" json:"id"`
	OwnerID             string       `gorm:"size:64;index;index:idx_owner_date" json:"ownerId"`
	Title               string       `json:"title"`
	Description         string       `json:"description"`
	Category            string       `gorm:"size:128" json:"category"`
	Date                string       `gorm:"size:10;index:idx_owner_date" json:"date"`
	StartTime           string       `gorm:"size:5" json:"startTime"`
	Completed           bool         `gorm:"default:false" json:"completed"`
	Priority            string       `gorm:"size:8;default:medium" json:"priority"`
	Tags                []string     `gorm:"serializer:json" json:"tags"`
	Subtasks            []Subtask    `gorm:"serializer:json" json:"subtasks"`
	Attachments         []Attachment `gorm:"serializer:json" json:"attachments"`
	IsRecurring         bool         `gorm:"default:false;index" json:"isRecurring"`
	RecurrenceType      string       `gorm:"size:16" json:"recurrenceType,omitempty"`
	RecurrenceEndDate   string       `gorm:"size:10" json:"recurrenceEndDate,omitempty"`
	RecurringParentID   *string      `gorm:"size:64" json:"recurringParentId"`
	IsRecurringInstance bool         `gorm:"-" json:"isRecurringInstance"`
	CreatedAt           time.Time    `json:"createdAt,omitzero"`
	UpdatedAt           time.Time    `json:"updatedAt,omitzero"`
}

// Subtask is a checklist entry embedded in a task.
type Subtask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Attachment references an uploaded file.
type Attachment struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	c := t
	if t.Tags != nil {
		c.Tags = append([]string(nil), t.Tags...)
	}
	if t.Subtasks != nil {
		c.Subtasks = append([]Subtask(nil), t.Subtasks...)
	}
	if t.Attachments != nil {
		c.Attachments = append([]Attachment(nil), t.Attachments...)
	}
	if t.RecurringParentID != nil {
		id := *t.RecurringParentID
		c.RecurringParentID = &id
	}
	return c
}
