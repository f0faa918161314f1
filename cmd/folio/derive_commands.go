package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"folio/internal/derive"
	"folio/internal/history"
	"folio/internal/services/docproc"
)

func newChunkCommand(ctx *commandContext) *cobra.Command {
	return newDeriveCommand(ctx, docproc.OpChunk,
		"chunk <document.json>",
		"Re-chunk an existing document artifact")
}

func newSummarizeCommand(ctx *commandContext) *cobra.Command {
	return newDeriveCommand(ctx, docproc.OpSummarize,
		"summarize <document.json>",
		"Summarize an existing document artifact")
}

func newDeriveCommand(ctx *commandContext, op docproc.Operation, use, short string) *cobra.Command {
	var inline bool

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.docClient()
			if err != nil {
				return err
			}

			mode := derive.WriteCopy
			if inline {
				mode = derive.OverwriteInPlace
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return ctx.withHistory(func(store *history.Store) error {
				runner := derive.New(cfg, client,
					derive.WithHistory(store),
					derive.WithLogger(ctx.ensureLogger()),
				)
				artifact, runErr := runner.Run(signalCtx, op, args[0], mode)
				if runErr != nil {
					return runErr
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s complete -> %s\n", op, artifact)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&inline, "inline", false,
		"Fold the derived chunks back into the input document instead of writing a copy")
	return cmd
}
