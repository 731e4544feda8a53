package boundary

import (
	"github.com/jonas-p/go-shp"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// ShapeToGeom converts a shapefile record to a go-geom geometry. Polygons become
// MultiPolygons with holes attached to the preceding outer ring and rings wound
// the RFC 7946 way (exterior counter-clockwise). Unsupported or empty shapes
// return nil.
func ShapeToGeom(shape shp.Shape) geom.T {
	switch s := shape.(type) {
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y}).SetSRID(4326)
	case *shp.PolyLine:
		return polyLineToMultiLineString(s)
	case *shp.Polygon:
		return polygonToMultiPolygon(s)
	default:
		return nil
	}
}

// parts splits a multi-part shape's points into flat XY coordinate slices.
func parts(numParts int32, partIdx []int32, points []shp.Point) [][]float64 {
	out := make([][]float64, 0, numParts)
	for i := int32(0); i < numParts && int(i) < len(partIdx); i++ {
		start := partIdx[i]
		end := int32(len(points))
		if i+1 < numParts && int(i+1) < len(partIdx) {
			end = partIdx[i+1]
		}
		if start < 0 || start > end || int(end) > len(points) {
			continue
		}
		flat := make([]float64, 0, 2*(end-start))
		for _, p := range points[start:end] {
			flat = append(flat, p.X, p.Y)
		}
		out = append(out, flat)
	}
	return out
}

func polyLineToMultiLineString(pl *shp.PolyLine) geom.T {
	if pl == nil || pl.NumParts == 0 || len(pl.Points) == 0 {
		return nil
	}

	mls := geom.NewMultiLineString(geom.XY).SetSRID(4326)
	for i, flat := range parts(pl.NumParts, pl.Parts, pl.Points) {
		if len(flat) < 4 {
			continue
		}
		if err := mls.Push(geom.NewLineStringFlat(geom.XY, flat)); err != nil {
			zap.L().Debug("boundary: skipping malformed line part", zap.Int("part", i), zap.Error(err))
		}
	}
	if mls.NumLineStrings() == 0 {
		return nil
	}
	return mls
}

func polygonToMultiPolygon(p *shp.Polygon) geom.T {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
	var current *geom.Polygon
	flush := func() {
		if current == nil {
			return
		}
		if err := mp.Push(current); err != nil {
			zap.L().Debug("boundary: skipping malformed polygon", zap.Error(err))
		}
		current = nil
	}

	for i, flat := range parts(p.NumParts, p.Parts, p.Points) {
		// A closed ring needs at least four points.
		if len(flat) < 8 {
			continue
		}
		area := signedArea(flat)
		if area == 0 {
			continue
		}
		// Shapefile exteriors are clockwise; a counter-clockwise ring is a hole
		// unless there is no exterior to attach it to.
		hole := area > 0 && current != nil
		if !hole {
			flush()
			current = geom.NewPolygon(geom.XY)
		}
		ring := geom.NewLinearRingFlat(geom.XY, orient(flat, !hole))
		if err := current.Push(ring); err != nil {
			zap.L().Debug("boundary: skipping malformed ring", zap.Int("part", i), zap.Error(err))
		}
	}
	flush()

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// signedArea is the shoelace area of a flat XY ring; positive means
// counter-clockwise.
func signedArea(flat []float64) float64 {
	var sum float64
	n := len(flat) / 2
	for i := range n {
		j := (i + 1) % n
		sum += flat[2*i]*flat[2*j+1] - flat[2*j]*flat[2*i+1]
	}
	return sum / 2
}

// orient returns flat wound counter-clockwise when ccw is true, clockwise
// otherwise. The input is not modified.
func orient(flat []float64, ccw bool) []float64 {
	if (signedArea(flat) > 0) == ccw {
		return flat
	}
	n := len(flat) / 2
	out := make([]float64, len(flat))
	for i := range n {
		out[2*i] = flat[2*(n-1-i)]
		out[2*i+1] = flat[2*(n-1-i)+1]
	}
	return out
}
