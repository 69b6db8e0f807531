package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TechnicallyShaun/askollama/internal/screenshot"
)

const flagConfigDir = "config-dir"

// configDir returns the --config-dir flag when set, otherwise the default
// config directory.
func configDir(cmd *cobra.Command) (string, error) {
	if f := cmd.Flag(flagConfigDir); f != nil && f.Value.String() != "" {
		return f.Value.String(), nil
	}
	return screenshot.ConfigDir()
}

// loadConfig resolves the config directory and reads config.json from it.
func loadConfig(cmd *cobra.Command) (string, *screenshot.Config, error) {
	dir, err := configDir(cmd)
	if err != nil {
		return "", nil, err
	}

	cfg, err := screenshot.LoadConfig(dir)
	if err != nil {
		return "", nil, fmt.Errorf("load config: %w", err)
	}
	return dir, cfg, nil
}
