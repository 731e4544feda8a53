package choropleth

// Column is one value series of a fetched table.
type Column struct {
	Name  string `json:"name"`
	Label string `json:"label,omitempty"`
}

// Option returns the text shown for the column in a choice list.
func (c Column) Option() string {
	if c.Label == "" {
		return c.Name
	}
	return c.Name + ": " + c.Label
}

// FetchedRow is one region of a fetched table. Estimates holds one value per
// table column; a nil entry is a missing estimate.
type FetchedRow struct {
	Geography map[string]string `json:"geography"`
	Estimates []*float64        `json:"estimates"`
}

// Estimate returns the estimate at column i, or nil when the row is too short.
func (r FetchedRow) Estimate(i int) *float64 {
	if i < 0 || i >= len(r.Estimates) {
		return nil
	}
	return r.Estimates[i]
}

// FetchedTable is the response of the data fetch service.
type FetchedTable struct {
	TableID  string       `json:"table_id"`
	Title    string       `json:"title,omitempty"`
	Universe string       `json:"universe,omitempty"`
	Columns  []Column     `json:"columns"`
	Rows     []FetchedRow `json:"rows"`
}

// ColumnNames returns the names of all columns in order.
func (t *FetchedTable) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// RegionValueRow is one region of the renderer-ready dataset.
type RegionValueRow struct {
	Region string   `json:"region"`
	Value  *float64 `json:"value"`
}

// RegionValueTable is the renderer-ready dataset in input row order.
type RegionValueTable []RegionValueRow

// Values returns the non-missing values in row order.
func (t RegionValueTable) Values() []float64 {
	vals := make([]float64, 0, len(t))
	for _, r := range t {
		if r.Value != nil {
			vals = append(vals, *r.Value)
		}
	}
	return vals
}

// Float returns a pointer to v. Handy for building tables by hand.
func Float(v float64) *float64 {
	return &v
}
