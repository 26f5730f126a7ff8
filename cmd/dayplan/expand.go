package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"dayplan/internal/recurrence"
)

var (
	expandUser  string
	expandStart string
	expandEnd   string
)

var expandCmd = &cobra.Command{
	Use:   "expand",
	Short: "Print a user's tasks for a date range as JSON",
	Long: `Print the stored tasks and recurring occurrences a user would see for
a date range, in the same order as the API returns them.

Examples:
  dayplan expand --user 7f0c5a1e --start 2026-01-01 --end 2026-01-31`,
	RunE: runExpand,
}

func init() {
	expandCmd.Flags().StringVar(&expandUser, "user", "", "user ID")
	expandCmd.Flags().StringVar(&expandStart, "start", "", "first day, YYYY-MM-DD")
	expandCmd.Flags().StringVar(&expandEnd, "end", "", "last day, YYYY-MM-DD")
	_ = expandCmd.MarkFlagRequired("user")
	_ = expandCmd.MarkFlagRequired("start")
	_ = expandCmd.MarkFlagRequired("end")
}

func runExpand(cmd *cobra.Command, args []string) error {
	start, err := recurrence.ParseDate(expandStart)
	if err != nil {
		return err
	}
	end, err := recurrence.ParseDate(expandEnd)
	if err != nil {
		return err
	}
	if err := recurrence.CheckWindow(start, end); err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	user, err := a.users.FindUserByID(cmd.Context(), expandUser)
	if err != nil {
		return fmt.Errorf("find user %s: %w", expandUser, err)
	}
	tasks, err := a.taskSvc.ListRange(cmd.Context(), user, start, end)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(tasks)
}
