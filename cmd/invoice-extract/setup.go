package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/core/llm/ollama"
	"github.com/joseph-ayodele/invoice-extractor/internal/core/ocr"
)

// newSetupCmd checks the OCR binary and makes both models ready, the same
// checks a run performs before touching any page.
func newSetupCmd(verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Check the inference engine and pull missing models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			logger := newLogger(*verbose)

			cfg := common.LoadConfig()
			if err := cfg.Validate(); err != nil {
				return err
			}

			engine := ocr.NewEngine(ocr.Config{Binary: cfg.Ollama.Binary, Host: cfg.Ollama.Host, Model: cfg.Ollama.OCRModel}, logger)
			if err := engine.Available(); err != nil {
				return common.SetupError("ocr engine unavailable", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ocr engine: OK (%s)\n", cfg.Ollama.Binary)

			client := ollama.NewClient(ollama.Config{
				Host:        cfg.Ollama.Host,
				Model:       cfg.Ollama.ExtractModel,
				Timeout:     cfg.Ollama.Timeout,
				PullModels:  cfg.Ollama.PullModels,
				PullTimeout: cfg.Ollama.PullTimeout,
			}, logger)
			for _, m := range []string{cfg.Ollama.OCRModel, cfg.Ollama.ExtractModel} {
				if err := client.EnsureModel(cmd.Context(), m); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "model %s: OK\n", m)
			}
			return nil
		},
	}
}
