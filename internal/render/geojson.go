package render

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/acsmap/internal/choropleth"
)

// GeoJSON writes an RFC 7946 FeatureCollection joining each row to its
// boundary shape.
type GeoJSON struct {
	w    io.Writer
	opts Options
}

// collection is a FeatureCollection with foreign members describing the map.
type collection struct {
	Type     string             `json:"type"`
	Title    string             `json:"title"`
	Subtitle string             `json:"subtitle,omitempty"`
	Level    string             `json:"level"`
	Scale    string             `json:"scale"`
	Legend   []LegendEntry      `json:"legend"`
	Features []*geojson.Feature `json:"features"`
}

// Render implements choropleth.Renderer.
func (g *GeoJSON) Render(ctx context.Context, req choropleth.RenderRequest) error {
	log := zap.L().With(zap.String("component", "render.geojson"), zap.String("level", req.Level.String()))

	shapes, err := g.opts.Features.Features(ctx, req.Level)
	if err != nil {
		return eris.Wrap(err, "render: load boundaries")
	}

	cls := Classify(req.Table, req.Buckets, g.opts.Palette)
	byRegion := cls.ByRegion()

	out := collection{
		Type:     "FeatureCollection",
		Title:    req.Title,
		Subtitle: req.Subtitle,
		Level:    req.Level.String(),
		Scale:    scaleName(cls),
		Legend:   cls.Legend,
		Features: make([]*geojson.Feature, 0, len(shapes)),
	}

	matched := make(map[string]bool, len(req.Table))
	for _, shape := range shapes {
		props := map[string]any{
			"region": shape.Key,
			"value":  nil,
			"bucket": nil,
			"fill":   g.opts.Palette.Missing,
		}
		if cl, ok := byRegion[shape.Key]; ok {
			matched[shape.Key] = true
			if cl.Value != nil {
				props["value"] = *cl.Value
				props["fill"] = cl.Fill
				if !cls.Continuous {
					props["bucket"] = cl.Bucket
				} else {
					props["scaled"] = cl.Scaled
				}
			}
		}
		if req.ShowLabels {
			props["label"] = shape.Label
		}
		out.Features = append(out.Features, &geojson.Feature{
			ID:         shape.Key,
			Geometry:   shape.Geometry,
			Properties: props,
		})
	}

	if unmatched := len(byRegion) - len(matched); unmatched > 0 {
		log.Warn("rows without a boundary shape", zap.Int("rows", unmatched))
	}

	enc := json.NewEncoder(g.w)
	if err := enc.Encode(out); err != nil {
		return eris.Wrap(err, "render: encode geojson")
	}
	log.Info("wrote geojson", zap.Int("features", len(out.Features)))
	return nil
}

func scaleName(c *Classification) string {
	if c.Continuous {
		return "continuous"
	}
	return "quantile"
}
