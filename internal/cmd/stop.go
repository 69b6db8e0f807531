package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/TechnicallyShaun/askollama/internal/screenshot/pidfile"
)

// stopTimeout is the maximum time to wait for graceful shutdown before sending SIGKILL
const stopTimeout = 10 * time.Second

// ErrNotRunning indicates the service is not running
var ErrNotRunning = errors.New("askollama is not running")

// ErrStaleProcess indicates the PID file exists but the process is not running
var ErrStaleProcess = errors.New("stale PID file (process not running)")

// NewStopCmd creates the stop command
func NewStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the screenshot service",
		Long: `Stop the screenshot service.

Reads the PID from askollama.pid in the config directory and sends SIGTERM for
graceful shutdown. If the process doesn't exit within 10 seconds, SIGKILL is
sent to force termination. The PID file is removed after the process exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStop(cmd, stopTimeout)
		},
	}
}

func runStop(cmd *cobra.Command, timeout time.Duration) error {
	out := cmd.OutOrStdout()

	dir, err := configDir(cmd)
	if err != nil {
		return err
	}
	pf := pidfile.New(dir)

	pid, err := pf.Read()
	if err != nil {
		if errors.Is(err, pidfile.ErrNoPIDFile) {
			return ErrNotRunning
		}
		if errors.Is(err, pidfile.ErrInvalidPID) {
			if removeErr := pf.Remove(); removeErr != nil {
				fmt.Fprintf(out, "Warning: %v\n", removeErr)
			}
			return ErrStaleProcess
		}
		return err
	}

	alive, err := pidfile.Alive(pid)
	if err != nil {
		return err
	}
	if !alive {
		if err := pf.Remove(); err != nil {
			fmt.Fprintf(out, "Warning: %v\n", err)
		}
		return ErrStaleProcess
	}

	fmt.Fprintf(out, "Stopping askollama (PID %d)...\n", pid)

	killed, err := pidfile.Terminate(pid, timeout)
	if err != nil {
		return err
	}
	if killed {
		fmt.Fprintln(out, "Process did not exit gracefully, sent SIGKILL")
	}

	if err := pf.Remove(); err != nil {
		fmt.Fprintf(out, "Warning: %v\n", err)
	}

	fmt.Fprintln(out, "askollama stopped")
	return nil
}
