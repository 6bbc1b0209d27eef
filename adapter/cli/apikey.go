package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/marfateam/rcalendar/internal/directory/application/commands"
)

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage API keys",
}

// apikeyCreateCmd issues a key for a consuming application and prints it.
var apikeyCreateCmd = &cobra.Command{
	Use:   "create <app>",
	Short: "Issue a new API key for an application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := GetApp()
		if a == nil || a.Container == nil {
			return fmt.Errorf("apikey requires a database connection, check DATABASE_URL")
		}
		key, err := a.Container.CreateAPIKeyHandler.Handle(cmd.Context(), commands.CreateAPIKeyCommand{
			App: args[0],
		})
		if err != nil {
			return fmt.Errorf("failed to create api key: %w", err)
		}
		fmt.Println(key.Key.String())
		return nil
	},
}

var apikeyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active API keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := GetApp()
		if a == nil || a.Container == nil {
			return fmt.Errorf("apikey requires a database connection, check DATABASE_URL")
		}
		keys, err := a.Container.ListAPIKeysHandler.Handle(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list api keys: %w", err)
		}
		if len(keys) == 0 {
			fmt.Println("No active keys")
			return nil
		}
		for _, k := range keys {
			fmt.Printf("%s app=%s\n", k.Key, k.App)
		}
		return nil
	},
}

var apikeyRevokeCmd = &cobra.Command{
	Use:   "revoke <key>",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := GetApp()
		if a == nil || a.Container == nil {
			return fmt.Errorf("apikey requires a database connection, check DATABASE_URL")
		}
		key, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid api key %q: %w", args[0], err)
		}
		if err := a.Container.RevokeAPIKeyHandler.Handle(cmd.Context(), commands.RevokeAPIKeyCommand{
			Key: key,
		}); err != nil {
			return fmt.Errorf("failed to revoke api key: %w", err)
		}
		fmt.Println("revoked")
		return nil
	},
}

func init() {
	apikeyCmd.AddCommand(apikeyCreateCmd)
	apikeyCmd.AddCommand(apikeyListCmd)
	apikeyCmd.AddCommand(apikeyRevokeCmd)
	rootCmd.AddCommand(apikeyCmd)
}
