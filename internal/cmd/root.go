package cmd

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the askollama CLI
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "askollama",
		Short: "Explain screenshots with a local language model",
		Long: `askollama watches your screenshots folder, extracts text from every new
screenshot with tesseract and asks a local Ollama-compatible model to explain it.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String(flagConfigDir, "", "config directory (default: $ASKOLLAMA_CONFIG_DIR or the user config dir)")

	rootCmd.AddCommand(NewStartCmd())
	rootCmd.AddCommand(NewStopCmd())
	rootCmd.AddCommand(NewStatusCmd())
	rootCmd.AddCommand(NewSettingsCmd())
	rootCmd.AddCommand(NewOCRCmd())
	rootCmd.AddCommand(NewExplainCmd())
	rootCmd.AddCommand(NewAutostartCmd())
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}
