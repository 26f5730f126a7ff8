package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"dayplan/internal/model"
	"dayplan/internal/recurrence"
)

// TaskStore is the read side of task storage used to build digests.
type TaskStore interface {
	FindTasksForOwnerOnDate(ctx context.Context, ownerID, date string) ([]model.Task, error)
	FindAllRecurringRootsForOwner(ctx context.Context, ownerID string) ([]model.Task, error)
}

// Digest is one user's task list for one local day.
type Digest struct {
	User  model.User
	Date  string
	Tasks []model.Task
}

// ReminderService builds daily digests.
type ReminderService struct {
	tasks    TaskStore
	expander *recurrence.Expander
}

func NewReminderService(tasks TaskStore, expander *recurrence.Expander) *ReminderService {
	if expander == nil {
		expander = recurrence.New(recurrence.DefaultHorizonDays)
	}
	return &ReminderService{tasks: tasks, expander: expander}
}

// DailyDigest collects the tasks dated on now's calendar day: stored tasks plus
// occurrences of the user's recurring templates. now must already be in the
// user's zone. Any task not owned by the user fails the whole digest with an
// *OwnershipError.
func (s *ReminderService) DailyDigest(ctx context.Context, user model.User, now time.Time) (Digest, error) {
	today := recurrence.FormatDate(now)

	stored, err := s.tasks.FindTasksForOwnerOnDate(ctx, user.ID, today)
	if err != nil {
		return Digest{}, err
	}
	roots, err := s.tasks.FindAllRecurringRootsForOwner(ctx, user.ID)
	if err != nil {
		return Digest{}, err
	}
	if err := AssertOwnership(user.ID, stored, roots); err != nil {
		return Digest{}, err
	}

	tasks := append(stored, s.expander.Expand(roots, now, now)...)
	sortByStartTime(tasks)

	return Digest{User: user, Date: today, Tasks: tasks}, nil
}

// RenderEmail builds the subject and HTML body of a digest email.
func RenderEmail(d Digest) (string, string) {
	subject := fmt.Sprintf("Your DayPlan for %s: %s", d.Date, taskCount(len(d.Tasks)))

	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><body style="font-family:Arial,sans-serif;color:#222">`)
	name := strings.TrimSpace(d.User.FullName)
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&b, "<h2>Good morning, %s!</h2>", html.EscapeString(name))
	fmt.Fprintf(&b, "<p>You have <b>%s</b> planned for %s.</p>", taskCount(len(d.Tasks)), html.EscapeString(d.Date))

	if len(d.Tasks) > 0 {
		b.WriteString(`<table cellpadding="6" style="border-collapse:collapse">`)
		b.WriteString(`<tr><th align="left">Time</th><th align="left">Task</th><th align="left">Priority</th></tr>`)
		for _, task := range d.Tasks {
			start := task.StartTime
			if start == "" {
				start = "Any time"
			}
			title := html.EscapeString(strings.TrimSpace(task.Title))
			if task.IsRecurringInstance || task.IsRecurring {
				title += " &#8635;"
			}
			if task.Completed {
				title = "<s>" + title + "</s>"
			}
			fmt.Fprintf(&b, `<tr><td>%s</td><td>%s</td><td style="color:%s">%s</td></tr>`,
				html.EscapeString(start), title, priorityColor(task.Priority), html.EscapeString(priorityLabel(task.Priority)))
		}
		b.WriteString("</table>")
	}

	b.WriteString(`<p style="color:#888;font-size:12px">You receive this email because daily reminders are enabled in DayPlan settings.</p>`)
	b.WriteString("</body></html>")
	return subject, b.String()
}

// RenderText builds the Telegram HTML variant of a digest.
func RenderText(d Digest) string {
	var b strings.Builder
	b.WriteString("📋 <b>Daily plan</b>\n")
	fmt.Fprintf(&b, "🗓 %s · %s\n\n", html.EscapeString(d.Date), taskCount(len(d.Tasks)))

	if len(d.Tasks) == 0 {
		b.WriteString("— nothing planned\n")
	}
	for _, task := range d.Tasks {
		icon := priorityIcon(task.Priority)
		if task.Completed {
			icon = "✅"
		}
		b.WriteString(icon)
		if task.StartTime != "" {
			fmt.Fprintf(&b, " %s", html.EscapeString(task.StartTime))
		}
		fmt.Fprintf(&b, " %s", html.EscapeString(strings.TrimSpace(task.Title)))
		if task.IsRecurringInstance || task.IsRecurring {
			b.WriteString(" ♻️")
		}
		if task.Category != "" {
			fmt.Fprintf(&b, " <i>(%s)</i>", html.EscapeString(strings.TrimSpace(task.Category)))
		}
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String())
}

func taskCount(n int) string {
	if n == 1 {
		return "1 task"
	}
	return fmt.Sprintf("%d tasks", n)
}

func priorityLabel(p string) string {
	switch p {
	case model.PriorityHigh:
		return "High"
	case model.PriorityLow:
		return "Low"
	default:
		return "Medium"
	}
}

func priorityColor(p string) string {
	switch p {
	case model.PriorityHigh:
		return "#d93025"
	case model.PriorityLow:
		return "#188038"
	default:
		return "#e37400"
	}
}

func priorityIcon(p string) string {
	switch p {
	case model.PriorityHigh:
		return "🔴"
	case model.PriorityLow:
		return "🟢"
	default:
		return "🟡"
	}
}
