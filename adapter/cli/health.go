package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/marfateam/rcalendar/pkg/observability"
)

// healthCmd pings every registered backing service and prints one line
// per check.
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check connectivity of backing services",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := GetApp()
		if a == nil || a.Container == nil {
			return fmt.Errorf("health requires a database connection, check DATABASE_URL")
		}

		overall := a.Container.Health.GetOverallHealth(cmd.Context())

		names := make([]string, 0, len(overall.Checks))
		for name := range overall.Checks {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			check := overall.Checks[name]
			fmt.Printf("%-10s %s\n", name, check.Status)
		}
		fmt.Printf("%-10s %s\n", "overall", overall.Status)

		if overall.Status == observability.HealthStatusUnhealthy {
			return fmt.Errorf("service is unhealthy")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
