package main

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"folio/internal/dom"
	"folio/internal/history"
	"folio/internal/merge"
)

func newMergeCommand(ctx *commandContext) *cobra.Command {
	var chunkGroup string
	var outputPath string

	cmd := &cobra.Command{
		Use:   "merge <document.json> <document.json>...",
		Short: "Reconcile multiple transcriptions of the same document",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			gen, err := ctx.genClient()
			if err != nil {
				return err
			}

			docs := make([]*dom.Document, len(args))
			for i, path := range args {
				doc, readErr := dom.ReadFile(path)
				if readErr != nil {
					return fmt.Errorf("read %s: %w", path, readErr)
				}
				docs[i] = doc
			}

			group := strings.TrimSpace(chunkGroup)
			if group == "" {
				group = cfg.Merge.ChunkGroup
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return ctx.withHistory(func(store *history.Store) error {
				record, recErr := store.Begin(signalCtx, history.KindMerge, strings.Join(args, ", "))
				if recErr != nil {
					return recErr
				}

				engine := merge.New(gen,
					merge.WithChunkGroup(group),
					merge.WithLogger(ctx.ensureLogger()),
				)
				merged, mergeErr := engine.Merge(signalCtx, docs)
				if mergeErr != nil {
					_ = store.Finish(signalCtx, record.ID, history.StatusFailed, "", mergeErr.Error())
					return mergeErr
				}

				target := strings.TrimSpace(outputPath)
				if target == "" {
					target = filepath.Join(cfg.Paths.OutputDir, merged.ID[:12]+".merged.json")
				}
				if writeErr := dom.WriteFile(target, merged); writeErr != nil {
					_ = store.Finish(signalCtx, record.ID, history.StatusFailed, "", writeErr.Error())
					return fmt.Errorf("write %s: %w", target, writeErr)
				}

				if finishErr := store.Finish(signalCtx, record.ID, history.StatusSucceeded, target, ""); finishErr != nil {
					return finishErr
				}
				fmt.Fprintf(cmd.OutOrStdout(), "merged %d documents -> %s\n", len(docs), target)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&chunkGroup, "chunk-group", "", "Chunk group to reconcile (defaults to the configured group)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination for the merged document")
	return cmd
}
