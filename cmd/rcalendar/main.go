package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/marfateam/rcalendar/adapter/cli"
	"github.com/marfateam/rcalendar/internal/app"
	"github.com/marfateam/rcalendar/pkg/config"
	"github.com/marfateam/rcalendar/pkg/observability"
)

func main() {
	logger := observability.NewLogger(observability.DefaultLogConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		logger.Warn("failed to load config, falling back to development defaults", "error", err)
		cfg = &config.Config{AppEnv: "development"}
	}

	logCfg := observability.DefaultLogConfig()
	logCfg.ServiceVersion = cli.Version
	logCfg.Level = observability.LogLevel(cfg.LogLevel)
	switch {
	case cfg.IsProduction():
		logCfg = observability.ProductionLogConfig()
		logCfg.ServiceVersion = cli.Version
		logCfg.Level = observability.LogLevel(cfg.LogLevel)
	case cfg.IsDevelopment():
		logCfg.Level = observability.LogLevelDebug
	}
	logger = observability.NewLogger(logCfg)
	cli.SetLogger(logger)

	// Commands that only print usage or version still work without a
	// database, so a failed container is fatal only outside development.
	var cliApp *cli.App
	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		if !cfg.IsDevelopment() {
			logger.Error("failed to initialize application", "error", err)
			os.Exit(1)
		}
		logger.Warn("running without a database, most commands will be unavailable", "error", err)
	} else {
		defer container.Close()
		cliApp = &cli.App{Container: container, Config: cfg}
	}
	cli.SetApp(cliApp)

	cli.Execute()
}
