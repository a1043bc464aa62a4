package main

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

func newHistoryCmd(verbose *bool) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs from the ledger (requires LEDGER_DSN)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			logger := newLogger(*verbose)

			cfg := common.LoadConfig()
			if cfg.Ledger.DSN == "" {
				return common.NewAppError(common.CodeConfig, "LEDGER_DSN is not set", common.ErrInvalidInput)
			}
			db, ledger, err := openLedger(cmd, cfg, logger)
			if err != nil {
				return common.IOError("open ledger", err)
			}
			defer db.Close(logger)

			runs, err := ledger.ListRuns(cmd.Context(), limit)
			if err != nil {
				return common.IOError("list runs", err)
			}
			return printRuns(cmd, runs)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	return cmd
}

// printRuns lays the table out uncolored, then colors the leading status
// cell of each row, so escape codes never count toward column widths.
func printRuns(cmd *cobra.Command, runs []entity.RunSummary) error {
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs recorded")
		return nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STATUS\tSTARTED\tPAGES\tFAILED\tDURATION\tINPUT\tRUN ID")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			r.Status,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Pages,
			r.FailedPages,
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
			r.InputPath,
			r.ID,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	lines := strings.SplitAfter(buf.String(), "\n")
	if _, err := io.WriteString(out, lines[0]); err != nil {
		return err
	}
	for i, r := range runs {
		row := statusColor(r.Status) + strings.TrimPrefix(lines[i+1], r.Status)
		if _, err := io.WriteString(out, row); err != nil {
			return err
		}
	}
	return nil
}

func statusColor(status string) string {
	switch constants.RunStatus(status) {
	case constants.RunStatusCompleted:
		return color.GreenString(status)
	case constants.RunStatusPartial:
		return color.YellowString(status)
	default:
		return color.RedString(status)
	}
}
