package cli

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Build metadata, stamped by the release pipeline via -ldflags. When a
// binary is built straight from `go build` the commit falls back to the
// revision recorded in the embedded build info.
var (
	Version   = "dev"
	Commit    = ""
	BuildDate = ""
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build metadata",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("rcalendar %s (reservation calendar service)\n", Version)
		fmt.Printf("  commit: %s\n", buildCommit())
		if BuildDate != "" {
			fmt.Printf("  built:  %s\n", BuildDate)
		}
		fmt.Printf("  go:     %s\n", runtime.Version())
	},
}

func buildCommit() string {
	if Commit != "" {
		return Commit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				return setting.Value
			}
		}
	}
	return "unknown"
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
