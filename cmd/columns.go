package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/sells-group/acsmap/internal/acs"
)

var columnsCmd = &cobra.Command{
	Use:   "columns TABLE",
	Short: "List the estimate columns of an ACS table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer env.Close()

		g, err := env.ACS.Group(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		formatColumns(cmd.OutOrStdout(), g)
		return nil
	},
}

// formatColumns writes the columns of g as a table, numbered the way --column
// expects them.
func formatColumns(out io.Writer, g *acs.Group) {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	title := g.TableID
	if g.Title != "" {
		title += ": " + g.Title
	}
	tw.SetTitle(title)
	tw.AppendHeader(table.Row{"#", "Variable", "Label"})
	for i, c := range g.Columns {
		tw.AppendRow(table.Row{i, c.Name, c.Label})
	}
	footer := fmt.Sprintf("%d columns", len(g.Columns))
	if g.Universe != "" {
		footer += " | universe: " + g.Universe
	}
	tw.AppendFooter(table.Row{"", footer})
	tw.SetStyle(table.StyleLight)
	tw.Style().Format.Footer = text.FormatDefault
	tw.Render()
}

func init() {
	rootCmd.AddCommand(columnsCmd)
}
