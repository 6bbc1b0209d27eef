package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	caldomain "github.com/marfateam/rcalendar/internal/calendar/domain"
)

var extendHorizon time.Duration

// extendSchedulesCmd rolls every scheduled membership forward once and
// exits. The worker does the same thing on a timer; this command covers
// cron-style deployments.
var extendSchedulesCmd = &cobra.Command{
	Use:   "extend-schedules",
	Short: "Roll weekly schedules forward to the look-ahead horizon",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := GetApp()
		if a == nil || a.Container == nil {
			return fmt.Errorf("extend-schedules requires a database connection, check DATABASE_URL")
		}
		extended, err := a.Container.ExtendSchedules(cmd.Context(), extendHorizon)
		if err != nil {
			return fmt.Errorf("failed to extend schedules: %w", err)
		}
		fmt.Printf("extended %d membership(s)\n", extended)
		return nil
	},
}

func init() {
	extendSchedulesCmd.Flags().DurationVar(&extendHorizon, "horizon", caldomain.ExtendHorizon,
		"how far ahead reserved time is materialized")
	rootCmd.AddCommand(extendSchedulesCmd)
}
