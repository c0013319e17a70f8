package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bdougie/genvideo/internal/config"
	"github.com/bdougie/genvideo/internal/generator"
	"github.com/bdougie/genvideo/internal/logging"
)

// errLogged marks failures that were already reported through the logger
var errLogged = errors.New("generation failed")

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		if !errors.Is(err, errLogged) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var prompt string

	cmd := &cobra.Command{
		Use:           "genvideo --prompt <text>",
		Short:         "Generate a short video clip from a text prompt",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(prompt) == "" {
				return generator.ErrEmptyPrompt
			}
			// Past this point failures are runtime errors, not usage errors
			cmd.SilenceUsage = true

			cfg := config.Load()
			logger := logging.New(stderr, cfg.LogLevel)
			ctx := cmd.Context()

			processor, cleanup := generator.Setup(ctx, cfg, logger, stderr)
			defer cleanup()

			run, err := processor.Run(ctx, prompt, generator.OutputFile)
			if err != nil {
				logger.Error("video generation failed", "error", err)
				return errLogged
			}

			logger.Info("video written", "path", run.OutputPath, "elapsed", run.Elapsed)
			return generator.Report(stdout, run.OutputPath)
		},
	}

	cmd.SetOut(stderr)
	cmd.SetErr(stderr)
	cmd.Flags().StringVar(&prompt, "prompt", "", "text prompt describing the video (required)")
	cmd.MarkFlagRequired("prompt")

	return cmd
}
