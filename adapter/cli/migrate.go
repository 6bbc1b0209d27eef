package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marfateam/rcalendar/internal/shared/infrastructure/migrations"
)

// migrateCmd applies pending database migrations and exits.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := GetApp()
		if a == nil || a.Container == nil {
			return fmt.Errorf("migrate requires a database connection, check DATABASE_URL")
		}
		if err := migrations.RunPostgresMigrations(cmd.Context(), a.Container.DB); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		fmt.Println("migrations applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
