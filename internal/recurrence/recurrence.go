// Package recurrence derives virtual occurrences of recurring task templates.
//
// Occurrences are never stored. They are recomputed from the template on every
// read, so editing a template changes all of its future instances at once.
package recurrence

import (
	"fmt"
	"time"

	"dayplan/internal/model"
)

// DefaultHorizonDays bounds open-ended rules: without an end date, a rule is
// treated as ending this many days after the requested window.
const DefaultHorizonDays = 365

// MaxWindowDays bounds a single projection request.
const MaxWindowDays = 366

// Expander materializes instances of recurring templates over a date window.
type Expander struct {
	HorizonDays int
}

func New(horizonDays int) *Expander {
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}
	return &Expander{HorizonDays: horizonDays}
}

// Expand is shorthand for New(DefaultHorizonDays).Expand.
func Expand(templates []model.Task, windowStart, windowEnd time.Time) []model.Task {
	return New(DefaultHorizonDays).Expand(templates, windowStart, windowEnd)
}

// Expand returns the instances of templates falling inside the inclusive
// calendar window. A template's own anchor date is never emitted. Templates
// that are not recurring roots, or whose rule cannot be interpreted, yield
// nothing. The result lists templates in input order and each template's
// occurrences chronologically; templates are not modified.
func (e *Expander) Expand(templates []model.Task, windowStart, windowEnd time.Time) []model.Task {
	start, end := Day(windowStart), Day(windowEnd)
	if end.Before(start) {
		return nil
	}

	var out []model.Task
	for _, tpl := range templates {
		out = append(out, e.expandOne(tpl, start, end)...)
	}
	return out
}

func (e *Expander) expandOne(tpl model.Task, start, end time.Time) []model.Task {
	if !tpl.IsRecurring || tpl.RecurringParentID != nil || !ValidType(tpl.RecurrenceType) {
		return nil
	}
	anchor, err := ParseDate(tpl.Date)
	if err != nil {
		return nil
	}

	horizon := e.HorizonDays
	if horizon <= 0 {
		horizon = DefaultHorizonDays
	}
	limit := end.AddDate(0, 0, horizon)
	if tpl.RecurrenceEndDate != "" {
		until, err := ParseDate(tpl.RecurrenceEndDate)
		if err != nil {
			return nil
		}
		limit = until
	}
	if limit.Before(anchor) {
		return nil
	}

	last := end
	if limit.Before(last) {
		last = limit
	}

	var out []model.Task
	for n := firstIndex(tpl.RecurrenceType, anchor, start); ; n++ {
		cursor := occurrence(tpl.RecurrenceType, anchor, n)
		if cursor.After(last) {
			break
		}
		if n == 0 || cursor.Before(start) {
			continue
		}
		out = append(out, instance(tpl, cursor))
	}
	return out
}

// occurrence returns the n-th occurrence of a rule, n=0 being the anchor.
// Monthly occurrences take the anchor's day-of-month, clamped to the month
// length, so a rule anchored on the 31st lands on the 31st whenever possible.
func occurrence(rule string, anchor time.Time, n int) time.Time {
	switch rule {
	case model.RecurrenceDaily:
		return anchor.AddDate(0, 0, n)
	case model.RecurrenceWeekly:
		return anchor.AddDate(0, 0, 7*n)
	default:
		first := time.Date(anchor.Year(), anchor.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
		day := anchor.Day()
		if last := daysInMonth(first.Month(), first.Year()); day > last {
			day = last
		}
		return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
	}
}

// firstIndex skips occurrences that cannot reach the window. It may return an
// index slightly before the window; the caller filters those out.
func firstIndex(rule string, anchor, start time.Time) int {
	if !anchor.Before(start) {
		return 0
	}
	days := int(start.Sub(anchor).Hours() / 24)
	switch rule {
	case model.RecurrenceDaily:
		return days
	case model.RecurrenceWeekly:
		return days / 7
	default:
		months := (start.Year()-anchor.Year())*12 + int(start.Month()-anchor.Month())
		if months > 0 {
			return months - 1
		}
		return 0
	}
}

func instance(tpl model.Task, date time.Time) model.Task {
	inst := tpl.Clone()
	inst.Date = FormatDate(date)
	inst.ID = tpl.ID + "-" + inst.Date
	parentID := tpl.ID
	inst.RecurringParentID = &parentID
	inst.IsRecurringInstance = true
	inst.CreatedAt = time.Time{}
	inst.UpdatedAt = time.Time{}
	return inst
}

// ValidType reports whether rule is a recurrence the expander understands.
func ValidType(rule string) bool {
	switch rule {
	case model.RecurrenceDaily, model.RecurrenceWeekly, model.RecurrenceMonthly:
		return true
	}
	return false
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return d, nil
}

// FormatDate renders the calendar day of t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(model.DateLayout)
}

// Day reduces t to its calendar day in its own location, returned as UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WindowDays counts the calendar days in the inclusive window [start, end].
func WindowDays(start, end time.Time) int {
	return int(Day(end).Sub(Day(start)).Hours()/24) + 1
}

// CheckWindow rejects inverted windows and windows longer than MaxWindowDays.
func CheckWindow(start, end time.Time) error {
	if Day(end).Before(Day(start)) {
		return fmt.Errorf("end %s is before start %s", FormatDate(end), FormatDate(start))
	}
	if days := WindowDays(start, end); days > MaxWindowDays {
		return fmt.Errorf("window of %d days exceeds %d", days, MaxWindowDays)
	}
	return nil
}

func daysInMonth(month time.Month, year int) int {
	// Move to next month, roll back a day.
	firstOfMonth := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	firstOfNextMonth := firstOfMonth.AddDate(0, 1, 0)
	lastOfMonth := firstOfNextMonth.AddDate(0, 0, -1)
	return lastOfMonth.Day()
}
