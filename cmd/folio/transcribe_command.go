package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"folio/internal/history"
	"folio/internal/services/docproc"
	"folio/internal/transcribe"
)

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var continueOnFailure bool

	cmd := &cobra.Command{
		Use:   "transcribe <file>...",
		Short: "Convert source files into document artifacts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("continue-on-failure") {
				cfg.Jobs.ContinueOnFailure = continueOnFailure
			}

			client, err := ctx.docClient()
			if err != nil {
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return ctx.withHistory(func(store *history.Store) error {
				runner := transcribe.New(cfg, client,
					transcribe.WithHistory(store),
					transcribe.WithLogger(ctx.ensureLogger()),
				)
				summary, runErr := runner.Run(signalCtx, args)
				if summary != nil {
					printTranscribeSummary(cmd, summary)
				}
				if runErr != nil {
					return runErr
				}
				if summary.Failed > 0 {
					return errors.New("one or more files failed")
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&continueOnFailure, "continue-on-failure", false,
		"Write placeholder artifacts for failed files instead of aborting the batch")
	return cmd
}

func printTranscribeSummary(cmd *cobra.Command, summary *transcribe.Summary) {
	out := cmd.OutOrStdout()
	for _, result := range summary.Results {
		switch {
		case result.Err != nil:
			display := result.Err
			if cause := docproc.Cause(result.Err); cause != nil {
				display = cause
			}
			fmt.Fprintf(out, "failed    %s: %v\n", result.Input, display)
		case result.Degraded:
			fmt.Fprintf(out, "degraded  %s -> %s\n", result.Input, result.Artifact)
		default:
			fmt.Fprintf(out, "converted %s -> %s\n", result.Input, result.Artifact)
		}
	}
	fmt.Fprintf(out, "%d converted, %d degraded, %d failed\n",
		summary.Succeeded, summary.Degraded, summary.Failed)
}
