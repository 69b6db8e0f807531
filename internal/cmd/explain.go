package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TechnicallyShaun/askollama/internal/screenshot/client"
)

// ErrNoText is returned when explain has nothing to send
var ErrNoText = errors.New("no text to explain")

// NewExplainCmd creates the explain command
func NewExplainCmd() *cobra.Command {
	var prompt string

	cmd := &cobra.Command{
		Use:   "explain [text]",
		Short: "Ask the language model to explain some text",
		Long: `Ask the language model to explain some text.

The text is taken from the arguments, or read from stdin when none are given,
so the output of "askollama ocr" can be piped in.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(data)
			}
			text = strings.TrimSpace(text)
			if text == "" {
				return ErrNoText
			}

			_, cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			explainer := client.NewOllamaClient(cfg.LLMURL,
				client.WithModel(cfg.LLMModel),
				client.WithMaxTokens(cfg.MaxTokens),
				client.WithResponseFormat(client.ResponseFormat(cfg.ResponseFormat)),
			)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			explanation, err := explainer.Explain(ctx, text, prompt)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(explanation.Text))
			return nil
		},
	}

	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "extra instruction appended to the request")

	return cmd
}
