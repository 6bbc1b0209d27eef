package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marfateam/rcalendar/internal/directory/application/commands"
)

var wipeAppLabel string

// wipeCmd removes everything a consuming application owns. The rows go
// away for real; there is no undo.
var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Remove all data owned by an application",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := GetApp()
		if a == nil || a.Container == nil {
			return fmt.Errorf("wipe requires a database connection, check DATABASE_URL")
		}
		result, err := a.Container.WipeAppHandler.Handle(cmd.Context(), commands.WipeAppCommand{
			App: wipeAppLabel,
		})
		if err != nil {
			return fmt.Errorf("failed to wipe app %q: %w", wipeAppLabel, err)
		}
		fmt.Printf("wiped app %q: %d organization(s), %d manager(s), %d resource(s)\n",
			wipeAppLabel, result.Organizations, result.Managers, result.Resources)
		return nil
	},
}

func init() {
	wipeCmd.Flags().StringVar(&wipeAppLabel, "app", "", "application label whose data to remove")
	_ = wipeCmd.MarkFlagRequired("app")
	rootCmd.AddCommand(wipeCmd)
}
