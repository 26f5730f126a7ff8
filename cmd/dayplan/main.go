// Command dayplan runs the DayPlan API and daily digest scheduler.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	version    = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dayplan",
	Short: "DayPlan task planner backend",
	Long: `dayplan serves the DayPlan task API and sends each user a daily
digest email at their chosen local time.

Settings come from an optional YAML file and DAYPLAN_* environment variables.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(notifyCmd)
	rootCmd.AddCommand(expandCmd)
}
