package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/marfateam/rcalendar/adapter/api"
)

// serveCmd runs the HTTP API server until interrupted.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := GetApp()
		if a == nil || a.Container == nil {
			return fmt.Errorf("serve requires a database connection, check DATABASE_URL")
		}
		c := a.Container
		cfg := a.Config

		directory := api.NewDirectoryHandler(api.DirectoryHandlerConfig{
			RegisterOrganization: c.RegisterOrganizationHandler,
			RegisterManager:      c.RegisterManagerHandler,
			RegisterResource:     c.RegisterResourceHandler,
			AddManagers:          c.AddManagersHandler,
			AddResources:         c.AddResourcesHandler,
			DeleteOrganization:   c.DeleteOrganizationHandler,
			DeleteManager:        c.DeleteManagerHandler,
			DeleteResource:       c.DeleteResourceHandler,
			OrganizationView:     c.OrganizationViewHandler,
			Logger:               c.Logger,
		})
		calendar := api.NewCalendarHandler(api.CalendarHandlerConfig{
			CreateInterval:        c.CreateIntervalHandler,
			UpdateInterval:        c.UpdateIntervalHandler,
			DeleteInterval:        c.DeleteIntervalHandler,
			DeleteMany:            c.DeleteManyHandler,
			ClearUnavailable:      c.ClearUnavailableHandler,
			ApplySchedule:         c.ApplyScheduleHandler,
			JoinMembership:        c.JoinMembershipHandler,
			DismissMembership:     c.DismissMembershipHandler,
			ResourceIntervals:     c.ResourceIntervalsHandler,
			OrganizationIntervals: c.OrganizationIntervalsHandler,
			MembershipView:        c.MembershipViewHandler,
			Logger:                c.Logger,
		})

		serverCfg := api.DefaultServerConfig()
		serverCfg.Addr = cfg.HTTPAddr
		serverCfg.AllowedOrigins = cfg.CORSAllowedOrigins

		server := api.NewServer(serverCfg, directory, calendar, c.APIKeyRepo, c.Health, c.Metrics, c.Logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cfg.OutboxProcessorEnabled {
			if err := c.OutboxProcessor.Start(ctx); err != nil {
				return fmt.Errorf("failed to start outbox processor: %w", err)
			}
		}

		errCh := make(chan error, 1)
		go func() {
			if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
