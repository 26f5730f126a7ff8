package service

import (
	"sort"

	"dayplan/internal/model"
)

// sortByStartTime orders tasks by start time, untimed tasks last.
func sortByStartTime(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return startTimeLess(tasks[i], tasks[j])
	})
}

// sortByDateAndStartTime orders tasks by date, then by start time.
func sortByDateAndStartTime(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Date != tasks[j].Date {
			return tasks[i].Date < tasks[j].Date
		}
		return startTimeLess(tasks[i], tasks[j])
	})
}

func startTimeLess(a, b model.Task) bool {
	switch {
	case a.StartTime == "" && b.StartTime == "":
		return false
	case a.StartTime == "":
		return false
	case b.StartTime == "":
		return true
	default:
		return a.StartTime < b.StartTime
	}
}
