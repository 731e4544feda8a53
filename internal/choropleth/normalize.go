package choropleth

import "go.uber.org/zap"

type normalizeOptions struct {
	keepMissing bool
}

// NormalizeOption configures Normalize.
type NormalizeOption func(*normalizeOptions)

// KeepMissing disables dropping zip rows with a missing estimate.
func KeepMissing() NormalizeOption {
	return func(o *normalizeOptions) {
		o.keepMissing = true
	}
}

// Normalize reshapes table into (region, value) rows for level.
//
// State rows are keyed by state name and zip rows by ZCTA code; both read the
// estimate at column. County rows are keyed by state FIPS + county FIPS and always
// read the first estimate slot, whatever column says. Zip rows with a missing
// estimate are dropped unless KeepMissing is given.
func Normalize(level DetailLevel, table *FetchedTable, column int, opts ...NormalizeOption) (RegionValueTable, error) {
	const op = "normalize"

	if !level.Valid() {
		return nil, invalidArgument(op, "unknown detail level %q", level)
	}
	if table == nil {
		return nil, invalidArgument(op, "nil table")
	}

	var o normalizeOptions
	for _, opt := range opts {
		opt(&o)
	}

	switch level {
	case LevelState:
		if err := checkColumn(op, table, column); err != nil {
			return nil, err
		}
		return extract(table, column, stateKey), nil

	case LevelCounty:
		if column != 0 {
			zap.L().Debug("county level reads the first estimate slot; selected column ignored",
				zap.String("table", table.TableID),
				zap.Int("column", column),
			)
		}
		return extract(table, 0, countyKey), nil

	default:
		if err := checkColumn(op, table, column); err != nil {
			return nil, err
		}
		out := extract(table, column, zipKey)
		if o.keepMissing {
			return out, nil
		}
		return DropMissing(out), nil
	}
}

// DropMissing returns the rows of t that carry a value, in order.
func DropMissing(t RegionValueTable) RegionValueTable {
	out := make(RegionValueTable, 0, len(t))
	for _, r := range t {
		if r.Value != nil {
			out = append(out, r)
		}
	}
	return out
}

func checkColumn(op string, table *FetchedTable, column int) error {
	if column < 0 || column >= len(table.Columns) {
		return invalidArgument(op, "column %d out of range for table with %d columns", column, len(table.Columns))
	}
	return nil
}

func extract(table *FetchedTable, column int, key func(map[string]string) string) RegionValueTable {
	out := make(RegionValueTable, 0, len(table.Rows))
	for _, row := range table.Rows {
		out = append(out, RegionValueRow{
			Region: key(row.Geography),
			Value:  row.Estimate(column),
		})
	}
	return out
}

func stateKey(geo map[string]string) string { return geo[GeoName] }

// countyKey builds the 5-digit county FIPS code, e.g. "06" + "037".
func countyKey(geo map[string]string) string { return geo[GeoState] + geo[GeoCounty] }

func zipKey(geo map[string]string) string { return geo[GeoZCTA] }
