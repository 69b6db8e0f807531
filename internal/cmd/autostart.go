package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TechnicallyShaun/askollama/internal/autostart"
)

// newAutostartEntry is replaced in tests
var newAutostartEntry = autostart.New

// NewAutostartCmd creates the autostart command group
func NewAutostartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autostart",
		Short: "Start the service when you log in",
		Long:  "Manage the XDG autostart entry that runs \"askollama start\" at login",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "enable",
		Short: "Start askollama at login",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := newAutostartEntry()
			if err != nil {
				return err
			}
			if err := entry.Enable(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Autostart enabled (%s)\n", entry.Path())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "disable",
		Short: "Stop starting askollama at login",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := newAutostartEntry()
			if err != nil {
				return err
			}
			if err := entry.Disable(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Autostart disabled")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show whether askollama starts at login",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := newAutostartEntry()
			if err != nil {
				return err
			}
			enabled, err := entry.IsEnabled()
			if err != nil {
				return err
			}
			if enabled {
				fmt.Fprintf(cmd.OutOrStdout(), "Autostart: enabled (%s)\n", entry.Path())
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Autostart: disabled")
			}
			return nil
		},
	})

	return cmd
}
