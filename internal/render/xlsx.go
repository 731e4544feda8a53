package render

import (
	"context"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/acsmap/internal/choropleth"
)

const (
	dataSheet   = "Choropleth"
	legendSheet = "Legend"
)

// XLSX writes a workbook with one data sheet and one legend sheet.
type XLSX struct {
	w    io.Writer
	opts Options
}

// Render implements choropleth.Renderer.
func (x *XLSX) Render(ctx context.Context, req choropleth.RenderRequest) error {
	cls := Classify(req.Table, req.Buckets, x.opts.Palette)
	labels := regionLabels(ctx, x.opts.Features, req)

	file := xlsx.NewFile()
	sheet, err := file.AddSheet(dataSheet)
	if err != nil {
		return eris.Wrap(err, "xlsx: add data sheet")
	}

	sheet.AddRow().AddCell().SetString(req.Title)
	if req.Subtitle != "" {
		sheet.AddRow().AddCell().SetString(req.Subtitle)
	}
	sheet.AddRow().AddCell()

	header := []string{"Region", "Value", "Bucket"}
	if req.ShowLabels {
		header = append([]string{"Label"}, header...)
	}
	addStrings(sheet.AddRow(), header...)

	styles := make(map[string]*xlsx.Style)
	for _, cl := range cls.Classes {
		row := sheet.AddRow()
		if req.ShowLabels {
			row.AddCell().SetString(labelFor(labels, cl.Region))
		}
		row.AddCell().SetString(cl.Region)

		value := row.AddCell()
		bucket := row.AddCell()
		if cl.Value == nil {
			continue
		}
		value.SetFloat(*cl.Value)
		if cls.Continuous {
			bucket.SetFloat(cl.Scaled)
		} else {
			bucket.SetInt(cl.Bucket + 1)
		}
		bucket.SetStyle(fillStyle(styles, cl.Fill))
	}

	legend, err := file.AddSheet(legendSheet)
	if err != nil {
		return eris.Wrap(err, "xlsx: add legend sheet")
	}
	addStrings(legend.AddRow(), "Bucket", "From", "To", "Range", "Regions")
	for i, e := range cls.Legend {
		row := legend.AddRow()
		row.AddCell().SetInt(i + 1)
		row.AddCell().SetFloat(e.Lower)
		row.AddCell().SetFloat(e.Upper)
		row.AddCell().SetString(e.Label)
		count := row.AddCell()
		count.SetInt(e.Count)
		row.Cells[0].SetStyle(fillStyle(styles, e.Fill))
	}

	if err := file.Write(x.w); err != nil {
		return eris.Wrap(err, "xlsx: write workbook")
	}
	zap.L().Info("wrote workbook", zap.String("component", "render.xlsx"), zap.Int("rows", len(cls.Classes)))
	return nil
}

func addStrings(row *xlsx.Row, values ...string) {
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

// fillStyle returns a shared solid-fill style for a #rrggbb colour.
func fillStyle(cache map[string]*xlsx.Style, hex string) *xlsx.Style {
	if s, ok := cache[hex]; ok {
		return s
	}
	argb := "FF" + strings.ToUpper(strings.TrimPrefix(hex, "#"))
	s := xlsx.NewStyle()
	s.Fill = *xlsx.NewFill("solid", argb, argb)
	s.ApplyFill = true
	cache[hex] = s
	return s
}
