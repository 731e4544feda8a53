package boundary

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// Feature is one boundary shape.
type Feature struct {
	Key      string
	Label    string
	Geometry geom.T
}

// ReadShapefile reads every shape in shpPath, keyed and labelled by the
// product's attribute fields. Records without a key or a usable geometry are
// skipped.
func ReadShapefile(shpPath string, product Product) ([]Feature, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	fieldIdx := make(map[string]int)
	for i, f := range reader.Fields() {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToUpper(name)] = i
	}
	keyIdx, ok := fieldIdx[strings.ToUpper(product.KeyField)]
	if !ok {
		return nil, eris.Errorf("boundary: %s has no %s field", shpPath, product.KeyField)
	}
	labelIdx, hasLabel := fieldIdx[strings.ToUpper(product.LabelField)]

	var features []Feature
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()

		key := attribute(reader, keyIdx)
		g := ShapeToGeom(shape)
		if key == "" || g == nil {
			skipped++
			continue
		}

		f := Feature{Key: key, Label: key, Geometry: g}
		if hasLabel {
			if l := attribute(reader, labelIdx); l != "" {
				f.Label = l
			}
		}
		features = append(features, f)
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "boundary: read shapefile %s", shpPath)
	}

	if skipped > 0 {
		zap.L().Debug("boundary: skipped shapefile records",
			zap.String("layer", product.Layer),
			zap.Int("skipped", skipped),
		)
	}
	return features, nil
}

func attribute(r *shp.Reader, idx int) string {
	return strings.TrimSpace(strings.TrimRight(r.Attribute(idx), "\x00"))
}
