// Package render turns a normalized region/value table into a choropleth
// artifact: a GeoJSON map, an Excel workbook, or a console table.
package render

import (
	"context"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/acsmap/internal/boundary"
	"github.com/sells-group/acsmap/internal/choropleth"
)

// Format names an output format.
type Format string

const (
	FormatGeoJSON Format = "geojson"
	FormatXLSX    Format = "xlsx"
	FormatTable   Format = "table"
)

// Formats lists the supported formats.
var Formats = []Format{FormatGeoJSON, FormatXLSX, FormatTable}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", choropleth.NewInvalidArgumentError("render: format",
		eris.Errorf("unknown format %q (valid: geojson, xlsx, table)", s))
}

// Ext returns the file extension for the format.
func (f Format) Ext() string {
	if f == FormatTable {
		return ".txt"
	}
	return "." + string(f)
}

// FeatureSource supplies boundary shapes for a detail level.
type FeatureSource interface {
	Features(ctx context.Context, level choropleth.DetailLevel) ([]boundary.Feature, error)
}

// Options are shared by all renderers.
type Options struct {
	Palette Palette
	// Features provides shapes for geojson and region labels for the other
	// formats. Required for geojson.
	Features FeatureSource
}

// New returns a renderer for format writing to w.
func New(format Format, w io.Writer, opts Options) (choropleth.Renderer, error) {
	if len(opts.Palette.Colors) == 0 {
		opts.Palette = DefaultPalette()
	}
	if opts.Palette.Missing == "" {
		opts.Palette.Missing = DefaultMissingFill
	}
	if err := opts.Palette.Validate(); err != nil {
		return nil, eris.Wrap(err, "render: palette")
	}

	switch format {
	case FormatGeoJSON:
		if opts.Features == nil {
			return nil, eris.New("render: geojson output needs a boundary source")
		}
		return &GeoJSON{w: w, opts: opts}, nil
	case FormatXLSX:
		return &XLSX{w: w, opts: opts}, nil
	case FormatTable:
		return &Table{w: w, opts: opts}, nil
	default:
		_, err := ParseFormat(string(format))
		return nil, err
	}
}

// regionLabels maps region keys to display labels when labels are on. Without a
// boundary source, or when the source fails, the region key is its own label.
func regionLabels(ctx context.Context, src FeatureSource, req choropleth.RenderRequest) map[string]string {
	if !req.ShowLabels || src == nil {
		return nil
	}
	features, err := src.Features(ctx, req.Level)
	if err != nil {
		zap.L().Warn("render: region labels unavailable", zap.Error(err))
		return nil
	}
	labels := make(map[string]string, len(features))
	for _, f := range features {
		labels[f.Key] = f.Label
	}
	return labels
}

func labelFor(labels map[string]string, region string) string {
	if l, ok := labels[region]; ok && l != "" {
		return l
	}
	return region
}
