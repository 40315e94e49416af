package cli

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/basnijholt/ai-assistant/internal/llm"
)

const autocorrectSystemPrompt = `You are an expert text correction tool. Fix spelling, grammar, and punctuation while preserving the original meaning, tone, and formatting of the text.

Do not rephrase or rewrite beyond what correctness requires. Do not add commentary, explanations, or quotation marks around the result. Return only the corrected text.`

const autocorrectInstructions = `Correct the text provided by the user. If it already reads correctly, return it unchanged.`

func newAutocorrectCommand() *cobra.Command {
	var (
		ollamaHost   string
		model        string
		useClipboard bool
		stopFlag     bool
		statusFlag   bool
	)

	cmd := &cobra.Command{
		Use:   "autocorrect [text]",
		Short: "Fix spelling and grammar in text from an argument or the clipboard",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.close()

			if handled, err := control("autocorrect", "autocorrect agent", stopFlag, statusFlag, e.console); handled {
				return err
			}
			if ollamaHost == "" {
				ollamaHost = e.cfg.OllamaHost
			}
			if model == "" {
				model = e.cfg.Model
			}

			var text string
			if len(args) == 1 {
				text = args[0]
			} else {
				text, err = clipboard.ReadAll()
				if err != nil {
					return fmt.Errorf("read clipboard: %w", err)
				}
			}
			if strings.TrimSpace(text) == "" {
				e.console.Warn("Nothing to correct.")
				return nil
			}

			cleanup := trackPID("autocorrect", e.logger)
			defer cleanup()

			client := llm.NewOllamaClient(ollamaHost, model)
			corrected, err := client.Generate(cmd.Context(), autocorrectSystemPrompt, autocorrectInstructions, text)
			if err != nil {
				return fmt.Errorf("correct text: %w", err)
			}
			corrected = strings.TrimSpace(corrected)
			if corrected == "" {
				return fmt.Errorf("empty response from model")
			}

			fmt.Fprintln(cmd.OutOrStdout(), corrected)
			if useClipboard {
				if err := clipboard.WriteAll(corrected); err != nil {
					e.logger.Warn().Err(err).Msg("could not write clipboard")
				} else {
					e.console.Print("Corrected text copied to clipboard.")
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&ollamaHost, "ollama-host", "", "Ollama server URL")
	cmd.Flags().StringVar(&model, "model", "", "model name")
	cmd.Flags().BoolVar(&useClipboard, "clipboard", true, "copy the corrected text back to the clipboard")
	cmd.Flags().BoolVar(&stopFlag, "stop", false, "stop a running autocorrect agent")
	cmd.Flags().BoolVar(&statusFlag, "status", false, "report whether an autocorrect agent is running")
	return cmd
}
