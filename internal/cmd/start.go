package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TechnicallyShaun/askollama/internal/screenshot"
	"github.com/TechnicallyShaun/askollama/internal/screenshot/api"
	"github.com/TechnicallyShaun/askollama/internal/screenshot/logging"
	"github.com/TechnicallyShaun/askollama/internal/screenshot/pidfile"
)

// ErrAlreadyRunning indicates another instance holds the PID file
var ErrAlreadyRunning = errors.New("askollama is already running")

type startOptions struct {
	watchDir  string
	noExplain bool
	apiAddr   string
}

// NewStartCmd creates the start command
func NewStartCmd() *cobra.Command {
	opts := &startOptions{}

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the screenshot service in the foreground",
		Long: `Start the screenshot service in the foreground.

Every new file in the screenshots folder is run through tesseract. The text,
and an explanation from the language model when auto-explain is on, is
published on the control API at /events.

Flags override settings.json for this run only. They are not saved, and a
settings reload (for example after "askollama settings set") replaces them with
the saved settings. Use "askollama settings set" for lasting changes.

The service runs until interrupted with Ctrl+C or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.watchDir, "dir", "", "screenshots folder to watch (this run only)")
	cmd.Flags().BoolVar(&opts.noExplain, "no-explain", false, "only extract text, never ask for an explanation (this run only)")
	cmd.Flags().StringVar(&opts.apiAddr, "api-addr", "", "control API listen address (empty disables the API)")

	return cmd
}

func runStart(cmd *cobra.Command, opts *startOptions) error {
	out := cmd.OutOrStdout()

	dir, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("api-addr") {
		cfg.APIAddr = opts.apiAddr
	}

	settings, err := screenshot.LoadSettings(dir)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if opts.watchDir != "" {
		watchDir := opts.watchDir
		settings.WatchDir = &watchDir
	}
	if opts.noExplain {
		settings.AutoExplain = false
	}

	pf := pidfile.New(dir)
	if _, err := pf.CleanStale(); err != nil {
		return fmt.Errorf("check PID file: %w", err)
	}
	running, pid, err := pf.IsRunning()
	if err != nil {
		return fmt.Errorf("check PID file: %w", err)
	}
	if running {
		return fmt.Errorf("%w (PID %d)", ErrAlreadyRunning, pid)
	}

	logger, err := screenshot.NewLogger(cfg, "service")
	if err != nil {
		return err
	}
	defer logger.Close()

	svc, err := screenshot.NewService(cfg, dir,
		screenshot.WithServiceLogger(logger),
		screenshot.WithInitialSettings(settings),
	)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	if err := pf.Write(os.Getpid()); err != nil {
		return err
	}
	defer func() {
		if err := pf.Remove(); err != nil {
			logger.Error("failed to remove PID file", err)
		}
	}()

	if cfg.APIAddr != "" {
		srv := api.NewServer(cfg.APIAddr, svc, logger)
		go func() {
			if err := srv.Start(); err != nil {
				logger.Error("control API stopped", err, logging.String("addr", cfg.APIAddr))
			}
		}()
		defer func() {
			if err := srv.Shutdown(); err != nil {
				logger.Error("control API shutdown failed", err)
			}
		}()
	}

	fmt.Fprintln(out, "Starting screenshot service...")
	fmt.Fprintf(out, "Watching:     %s\n", settings.ResolveWatchDir())
	fmt.Fprintf(out, "Auto-explain: %t\n", settings.AutoExplain)
	if cfg.APIAddr != "" {
		fmt.Fprintf(out, "Control API:  http://%s\n", cfg.APIAddr)
	}
	fmt.Fprintf(out, "Log file:     %s\n", logger.LogPath())
	fmt.Fprintln(out, "Press Ctrl+C to stop")
	fmt.Fprintln(out)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return svc.Run(ctx)
}
