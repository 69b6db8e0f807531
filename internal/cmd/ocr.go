package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TechnicallyShaun/askollama/internal/screenshot/ocr"
)

// NewOCRCmd creates the ocr command
func NewOCRCmd() *cobra.Command {
	var language string

	cmd := &cobra.Command{
		Use:   "ocr <image>",
		Short: "Print the text tesseract finds in an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if language != "" {
				cfg.OCRLanguage = language
			}

			engine := ocr.NewTesseract(
				ocr.WithCommand(cfg.OCRCommand),
				ocr.WithLanguage(cfg.OCRLanguage),
			)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			result, err := engine.Extract(ctx, args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(result.Text, "\n"))
			return nil
		},
	}

	cmd.Flags().StringVarP(&language, "lang", "l", "", "tesseract language (default from config)")

	return cmd
}
