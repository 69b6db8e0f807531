package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/TechnicallyShaun/askollama/internal/screenshot"
	"github.com/TechnicallyShaun/askollama/internal/screenshot/pidfile"
)

// reloadTimeout bounds the request asking a running service to reload settings
const reloadTimeout = 2 * time.Second

// NewSettingsCmd creates the settings command group
func NewSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change persisted settings",
		Long:  "Commands for reading and writing settings.json in the config directory",
	}

	cmd.AddCommand(newSettingsGetCmd())
	cmd.AddCommand(newSettingsSetCmd())

	return cmd
}

func newSettingsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Print the persisted settings as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := configDir(cmd)
			if err != nil {
				return err
			}
			settings, err := screenshot.LoadSettings(dir)
			if err != nil {
				return fmt.Errorf("load settings: %w", err)
			}

			data, err := json.MarshalIndent(settings, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

type settingsSetOptions struct {
	watchDir    string
	clearDir    bool
	autoExplain bool
}

func newSettingsSetCmd() *cobra.Command {
	opts := &settingsSetOptions{}

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change persisted settings",
		Long: `Change persisted settings.

Only the flags given are changed. When the service is running with the control
API enabled it is asked to reload the new settings.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSettingsSet(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.watchDir, "dir", "", "screenshots folder to watch")
	cmd.Flags().BoolVar(&opts.clearDir, "clear-dir", false, "watch the default screenshots folder")
	cmd.Flags().BoolVar(&opts.autoExplain, "auto-explain", true, "explain every screenshot automatically")
	cmd.MarkFlagsMutuallyExclusive("dir", "clear-dir")

	return cmd
}

func runSettingsSet(cmd *cobra.Command, opts *settingsSetOptions) error {
	out := cmd.OutOrStdout()
	flags := cmd.Flags()

	if !flags.Changed("dir") && !flags.Changed("clear-dir") && !flags.Changed("auto-explain") {
		return fmt.Errorf("nothing to change: pass --dir, --clear-dir or --auto-explain")
	}

	dir, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	settings, err := screenshot.LoadSettings(dir)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if flags.Changed("dir") {
		watchDir := opts.watchDir
		settings.WatchDir = &watchDir
	}
	if opts.clearDir {
		settings.WatchDir = nil
	}
	if flags.Changed("auto-explain") {
		settings.AutoExplain = opts.autoExplain
	}

	if err := settings.Save(dir); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	fmt.Fprintln(out, "Settings saved")

	running, _, _ := pidfile.New(dir).IsRunning()
	if running && cfg.APIAddr != "" {
		if err := requestReload(cfg.APIAddr); err != nil {
			fmt.Fprintf(out, "Warning: running service did not reload settings: %v\n", err)
		} else {
			fmt.Fprintln(out, "Running service reloaded settings")
		}
	}

	return nil
}

// requestReload asks the control API at addr to reload settings.json.
func requestReload(addr string) error {
	client := &http.Client{Timeout: reloadTimeout}
	resp, err := client.Post("http://"+addr+"/settings/reload", "application/json", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
