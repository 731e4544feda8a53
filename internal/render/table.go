package render

import (
	"context"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/rotisserie/eris"

	"github.com/sells-group/acsmap/internal/choropleth"
)

// Table prints the classified rows and the legend as console tables.
type Table struct {
	w    io.Writer
	opts Options
}

// Render implements choropleth.Renderer.
func (t *Table) Render(ctx context.Context, req choropleth.RenderRequest) error {
	cls := Classify(req.Table, req.Buckets, t.opts.Palette)
	labels := regionLabels(ctx, t.opts.Features, req)

	tw := table.NewWriter()
	title := req.Title
	if req.Subtitle != "" {
		title += "\n" + req.Subtitle
	}
	tw.SetTitle(title)

	header := table.Row{"Region", "Value", "Bucket"}
	if req.ShowLabels {
		header = append(table.Row{"Label"}, header...)
	}
	tw.AppendHeader(header)

	for _, cl := range cls.Classes {
		value, bucket := "n/a", "-"
		if cl.Value != nil {
			value = FormatNumber(*cl.Value)
			if cls.Continuous {
				bucket = printer.Sprintf("%.2f", cl.Scaled)
			} else {
				bucket = printer.Sprintf("%d", cl.Bucket+1)
			}
		}
		row := table.Row{cl.Region, value, bucket}
		if req.ShowLabels {
			row = append(table.Row{labelFor(labels, cl.Region)}, row...)
		}
		tw.AppendRow(row)
	}
	tw.AppendFooter(table.Row{printer.Sprintf("%d regions", len(cls.Classes))})

	tw.SetStyle(table.StyleLight)
	tw.Style().Format = table.FormatOptions{
		Footer: text.FormatDefault,
		Header: text.FormatDefault,
		Row:    text.FormatDefault,
	}
	valueCol := 2
	if req.ShowLabels {
		valueCol = 3
	}
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: valueCol, Align: text.AlignRight}})

	if _, err := io.WriteString(t.w, tw.Render()+"\n\n"); err != nil {
		return eris.Wrap(err, "table: write")
	}
	if _, err := io.WriteString(t.w, legendTable(cls)+"\n"); err != nil {
		return eris.Wrap(err, "table: write legend")
	}
	return nil
}

func legendTable(cls *Classification) string {
	tw := table.NewWriter()
	tw.SetTitle("Legend (" + scaleName(cls) + ")")
	tw.AppendHeader(table.Row{"Bucket", "Range", "Fill", "Regions"})
	for i, e := range cls.Legend {
		count := any(e.Count)
		if cls.Continuous {
			count = ""
		}
		tw.AppendRow(table.Row{i + 1, e.Label, e.Fill, count})
	}
	tw.SetStyle(table.StyleLight)
	tw.Style().Options.DrawBorder = false
	return tw.Render()
}
