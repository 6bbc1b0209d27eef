package cli

import (
	"github.com/marfateam/rcalendar/internal/app"
	"github.com/marfateam/rcalendar/pkg/config"
)

// App holds the CLI application dependencies.
type App struct {
	// Container wires repositories, handlers and messaging. It is nil
	// when the database was not reachable at startup.
	Container *app.Container

	Config *config.Config
}

// cliApp is the global CLI application instance
var cliApp *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	cliApp = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return cliApp
}
