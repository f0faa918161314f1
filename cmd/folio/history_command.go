package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"folio/internal/history"
)

const (
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiRed    = "\x1b[31m"
	ansiReset  = "\x1b[0m"
)

var kindCaser = cases.Title(language.Und)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past processing runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				records, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}

				if asJSON {
					return writeJSON(cmd, historyViews(records))
				}

				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, "No runs recorded yet")
					return nil
				}

				colorize := shouldColorize(out)
				rows := make([][]string, 0, len(records))
				for _, rec := range records {
					rows = append(rows, []string{
						rec.CreatedAt.Local().Format("2006-01-02 15:04:05"),
						kindCaser.String(string(rec.Kind)),
						styleStatus(rec.Status, colorize),
						filepath.Base(rec.InputPath),
						rec.JobID,
						rec.ArtifactPath,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"When", "Kind", "Status", "Input", "Job", "Artifact"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit runs as JSON")
	return cmd
}

func styleStatus(status history.Status, colorize bool) string {
	if !colorize {
		return string(status)
	}
	switch status {
	case history.StatusSucceeded:
		return ansiGreen + string(status) + ansiReset
	case history.StatusDegraded:
		return ansiYellow + string(status) + ansiReset
	case history.StatusFailed:
		return ansiRed + string(status) + ansiReset
	default:
		return string(status)
	}
}

type historyView struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Input     string    `json:"input"`
	JobID     string    `json:"job_id,omitempty"`
	Status    string    `json:"status"`
	Artifact  string    `json:"artifact,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func historyViews(records []*history.Record) []historyView {
	views := make([]historyView, 0, len(records))
	for _, rec := range records {
		views = append(views, historyView{
			ID:        rec.ID,
			Kind:      string(rec.Kind),
			Input:     rec.InputPath,
			JobID:     rec.JobID,
			Status:    string(rec.Status),
			Artifact:  rec.ArtifactPath,
			Error:     rec.ErrorMessage,
			CreatedAt: rec.CreatedAt,
			UpdatedAt: rec.UpdatedAt,
		})
	}
	return views
}
