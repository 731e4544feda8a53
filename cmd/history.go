package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/acsmap/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded renders",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("history"); err != nil {
			return err
		}
		if !historyEnabled() {
			return eris.New("history: store.driver is none")
		}

		st, err := openHistory(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := st.List(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "history list")
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No renders recorded.") //nolint:errcheck
			return nil
		}
		formatHistory(cmd.OutOrStdout(), runs)
		return nil
	},
}

// formatHistory writes a tabular list of runs to w.
func formatHistory(out io.Writer, runs []history.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTABLE\tLEVEL\tFORMAT\tSTATUS\tROWS\tSTARTED\tDURATION\tDETAIL")
	_, _ = fmt.Fprintln(w, "--\t-----\t-----\t------\t------\t----\t-------\t--------\t------")

	for _, r := range runs {
		dur := "-"
		if r.CompletedAt != nil {
			dur = r.Duration().Round(time.Millisecond).String()
		}
		detail := r.Column
		if r.Status == history.StatusFailed {
			detail = r.Error
		}
		if len(detail) > 40 {
			detail = detail[:37] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.TableID,
			r.Level,
			r.Format,
			r.Status,
			r.Rows,
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			dur,
			detail,
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	historyCmd.Flags().Int("limit", history.DefaultListLimit, "maximum number of renders to list")
	rootCmd.AddCommand(historyCmd)
}
