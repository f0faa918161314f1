package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"folio/internal/dom"
	"folio/internal/fileutil"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "export <document.json>",
		Short: "Flatten a document artifact to Markdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := dom.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			rendered := dom.RenderMarkdown(doc)
			target := strings.TrimSpace(outputPath)
			if target == "" {
				fmt.Fprint(cmd.OutOrStdout(), rendered)
				return nil
			}
			if err := fileutil.WriteFileAtomic(target, []byte(rendered), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", target, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %s -> %s\n", args[0], target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination Markdown file (defaults to stdout)")
	return cmd
}
