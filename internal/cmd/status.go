package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TechnicallyShaun/askollama/internal/screenshot"
	"github.com/TechnicallyShaun/askollama/internal/screenshot/pidfile"
	"github.com/TechnicallyShaun/askollama/internal/screenshot/status"
)

// NewStatusCmd creates the status command
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show service status and today's activity",
		Long: `Show whether the screenshot service is running, the folder it watches and
how many screenshots it processed today, as recorded in its log file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd)
		},
	}
}

func runStatus(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	dir, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	running, pid, err := pidfile.New(dir).IsRunning()
	if err != nil {
		fmt.Fprintf(out, "Status:       unknown (%v)\n", err)
	} else if running {
		fmt.Fprintf(out, "Status:       running (PID %d)\n", pid)
	} else {
		fmt.Fprintln(out, "Status:       stopped")
	}

	settings, err := screenshot.LoadSettings(dir)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	fmt.Fprintf(out, "Watching:     %s\n", settings.ResolveWatchDir())
	fmt.Fprintf(out, "Auto-explain: %t\n", settings.AutoExplain)
	if running && cfg.APIAddr != "" {
		fmt.Fprintf(out, "Control API:  http://%s\n", cfg.APIAddr)
	}

	stats, err := status.ParseToday(screenshot.LogPath(cfg))
	if err != nil {
		return fmt.Errorf("read log: %w", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Today:")
	fmt.Fprintf(out, "  Screenshots:  %d\n", stats.ScreenshotsProcessed)
	fmt.Fprintf(out, "  Explanations: %d\n", stats.Explanations)
	fmt.Fprintf(out, "  Errors:       %d\n", stats.Errors)
	if stats.LastProcessed != nil {
		fmt.Fprintf(out, "  Last:         %s (%s)\n",
			status.BaseName(stats.LastProcessed.Path),
			status.FormatTimestamp(stats.LastProcessed.Timestamp),
		)
	}

	return nil
}
