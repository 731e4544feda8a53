// Package boundary downloads Census cartographic boundary shapefiles and reads
// them into geometries keyed the same way as normalized ACS rows.
package boundary

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/acsmap/internal/choropleth"
)

// Product describes the cartographic boundary file used for one detail level.
type Product struct {
	Level      choropleth.DetailLevel
	Layer      string // e.g. "state", "zcta520"
	Resolution string // "500k", "5m" or "20m"
	KeyField   string // attribute matching RegionValueRow.Region
	LabelField string // attribute shown as the feature label
}

// Products maps each detail level to its boundary file. The state key is the
// full name because normalized state rows are keyed by NAME.
var Products = map[choropleth.DetailLevel]Product{
	choropleth.LevelState: {
		Level:      choropleth.LevelState,
		Layer:      "state",
		Resolution: "20m",
		KeyField:   "NAME",
		LabelField: "STUSPS",
	},
	choropleth.LevelCounty: {
		Level:      choropleth.LevelCounty,
		Layer:      "county",
		Resolution: "20m",
		KeyField:   "GEOID",
		LabelField: "NAME",
	},
	choropleth.LevelZIP: {
		Level:      choropleth.LevelZIP,
		Layer:      "zcta520",
		Resolution: "500k",
		KeyField:   "ZCTA5CE20",
		LabelField: "ZCTA5CE20",
	},
}

// ProductFor returns the boundary product for level.
func ProductFor(level choropleth.DetailLevel) (Product, error) {
	p, ok := Products[level]
	if !ok {
		return Product{}, choropleth.NewInvalidArgumentError("boundary: product",
			eris.Errorf("no boundary file for detail level %q", level))
	}
	return p, nil
}

// FileName returns the archive stem, e.g. "cb_2023_us_state_20m".
func (p Product) FileName(year int) string {
	return fmt.Sprintf("cb_%d_us_%s_%s", year, p.Layer, p.Resolution)
}

// URL builds the download URL under base, e.g.
// https://www2.census.gov/geo/tiger/GENZ2023/shp/cb_2023_us_state_20m.zip.
func (p Product) URL(base string, year int) string {
	return fmt.Sprintf("%s/GENZ%d/shp/%s.zip", strings.TrimRight(base, "/"), year, p.FileName(year))
}
