package choropleth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	table   *FetchedTable
	err     error
	calls   int
	tableID string
	filter  GeographyFilter
}

func (s *stubFetcher) FetchTable(_ context.Context, tableID string, filter GeographyFilter) (*FetchedTable, error) {
	s.calls++
	s.tableID = tableID
	s.filter = filter
	return s.table, s.err
}

type stubRenderer struct {
	reqs []RenderRequest
	err  error
}

func (s *stubRenderer) Render(_ context.Context, req RenderRequest) error {
	s.reqs = append(s.reqs, req)
	return s.err
}

func incomeTable() *FetchedTable {
	return &FetchedTable{
		TableID: "B19013",
		Title:   "Median Household Income",
		Columns: []Column{{Name: "B19013_001E", Label: "Estimate!!Median household income"}},
		Rows: []FetchedRow{
			{Geography: map[string]string{GeoName: "California", GeoState: "06"}, Estimates: []*float64{Float(61094)}},
			{Geography: map[string]string{GeoName: "Texas", GeoState: "48"}, Estimates: []*float64{Float(53035)}},
		},
	}
}

func TestRenderChoropleth_EndToEnd(t *testing.T) {
	f := &stubFetcher{table: incomeTable()}
	r := &stubRenderer{}
	ch := &countingChooser{}

	res, err := New(f, ch, r).RenderChoropleth(context.Background(), NewRequest("B19013", LevelState))
	require.NoError(t, err)

	assert.Equal(t, 1, f.calls)
	assert.Equal(t, "B19013", f.tableID)
	assert.Equal(t, "for=state:*", f.filter.String())
	assert.Zero(t, ch.calls)

	want := RegionValueTable{
		{Region: "California", Value: Float(61094)},
		{Region: "Texas", Value: Float(53035)},
	}
	require.Len(t, r.reqs, 1)
	assert.Equal(t, want, r.reqs[0].Table)
	assert.Equal(t, 9, r.reqs[0].Buckets)
	assert.True(t, r.reqs[0].ShowLabels)
	assert.Equal(t, LevelState, r.reqs[0].Level)
	assert.Equal(t, "Median Household Income", r.reqs[0].Title)
	assert.Empty(t, r.reqs[0].Subtitle)

	assert.Equal(t, want, res.Table)
	assert.Equal(t, "B19013_001E", res.ColumnName)
}

func TestRenderChoropleth_InvalidArguments(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"bad level", Request{TableID: "B19013", Level: "tract", Buckets: 9}},
		{"zero buckets", Request{TableID: "B19013", Level: LevelState, Buckets: 0}},
		{"negative buckets", Request{TableID: "B19013", Level: LevelState, Buckets: -3}},
		{"ten buckets", Request{TableID: "B19013", Level: LevelState, Buckets: 10}},
		{"empty table", Request{TableID: " ", Level: LevelState, Buckets: 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &stubFetcher{table: incomeTable()}
			r := &stubRenderer{}

			_, err := New(f, FirstColumn, r).RenderChoropleth(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrInvalidArgument)
			assert.Zero(t, f.calls)
			assert.Empty(t, r.reqs)
		})
	}
}

func TestRenderChoropleth_BucketBounds(t *testing.T) {
	for _, n := range []int{1, 5, 9} {
		r := &stubRenderer{}
		req := NewRequest("B19013", LevelState)
		req.Buckets = n
		_, err := New(&stubFetcher{table: incomeTable()}, nil, r).RenderChoropleth(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, n, r.reqs[0].Buckets)
	}
}

func TestRenderChoropleth_FetchErrorPropagates(t *testing.T) {
	cause := errors.New("connection refused")
	r := &stubRenderer{}

	_, err := New(&stubFetcher{err: cause}, FirstColumn, r).RenderChoropleth(context.Background(), NewRequest("B19013", LevelCounty))
	assert.ErrorIs(t, err, ErrFetch)
	assert.ErrorIs(t, err, cause)
	assert.Empty(t, r.reqs)

	typed := NewFetchError("acs", cause)
	_, err = New(&stubFetcher{err: typed}, FirstColumn, r).RenderChoropleth(context.Background(), NewRequest("B19013", LevelCounty))
	assert.Same(t, typed, err)
}

func TestRenderChoropleth_NilTable(t *testing.T) {
	_, err := New(&stubFetcher{}, FirstColumn, &stubRenderer{}).RenderChoropleth(context.Background(), NewRequest("B19013", LevelState))
	assert.ErrorIs(t, err, ErrFetch)
}

func TestRenderChoropleth_SelectionAborted(t *testing.T) {
	table := incomeTable()
	table.Columns = append(table.Columns, Column{Name: "B19013_002E"})
	r := &stubRenderer{}
	ch := &countingChooser{err: errors.New("interrupted")}

	_, err := New(&stubFetcher{table: table}, ch, r).RenderChoropleth(context.Background(), NewRequest("B19013", LevelState))
	assert.ErrorIs(t, err, ErrSelectionAborted)
	assert.Equal(t, 1, ch.calls)
	assert.Empty(t, r.reqs)
}

func TestRenderChoropleth_MultiColumnSubtitle(t *testing.T) {
	table := &FetchedTable{
		TableID: "B01001",
		Title:   "Sex by Age",
		Columns: []Column{{Name: "B01001_001E", Label: "Total"}, {Name: "B01001_002E", Label: "Male"}},
		Rows: []FetchedRow{
			{Geography: map[string]string{GeoZCTA: "94110"}, Estimates: []*float64{Float(10), Float(4)}},
			{Geography: map[string]string{GeoZCTA: "10001"}, Estimates: []*float64{Float(20), nil}},
		},
	}
	r := &stubRenderer{}

	req := NewRequest("B01001", LevelZIP)
	req.ShowLabels = false
	res, err := New(&stubFetcher{table: table}, FixedColumn(1), r).RenderChoropleth(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Column)
	assert.Equal(t, "Male", res.Subtitle)
	assert.Equal(t, RegionValueTable{{Region: "94110", Value: Float(4)}}, r.reqs[0].Table)
	assert.False(t, r.reqs[0].ShowLabels)
}

func TestRenderChoropleth_KeepMissingOption(t *testing.T) {
	table := &FetchedTable{
		Columns: []Column{{Name: "B19013_001E"}},
		Rows: []FetchedRow{
			{Geography: map[string]string{GeoZCTA: "10001"}, Estimates: []*float64{nil}},
		},
	}
	r := &stubRenderer{}

	_, err := New(&stubFetcher{table: table}, nil, r, WithNormalizeOptions(KeepMissing())).
		RenderChoropleth(context.Background(), NewRequest("B19013", LevelZIP))
	require.NoError(t, err)
	assert.Len(t, r.reqs[0].Table, 1)
}

func TestRenderChoropleth_TitleFallbacks(t *testing.T) {
	table := incomeTable()
	table.Title = ""
	r := &stubRenderer{}

	res, err := New(&stubFetcher{table: table}, nil, r).RenderChoropleth(context.Background(), NewRequest("B19013", LevelState))
	require.NoError(t, err)
	assert.Equal(t, "B19013", res.Title)

	req := NewRequest("B19013", LevelState)
	req.Title = "Income"
	req.Subtitle = "2022"
	res, err = New(&stubFetcher{table: incomeTable()}, nil, r).RenderChoropleth(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Income", res.Title)
	assert.Equal(t, "2022", r.reqs[1].Subtitle)
}

func TestRenderChoropleth_RenderError(t *testing.T) {
	r := &stubRenderer{err: errors.New("disk full")}
	_, err := New(&stubFetcher{table: incomeTable()}, nil, r).RenderChoropleth(context.Background(), NewRequest("B19013", LevelState))
	assert.ErrorIs(t, err, ErrRender)
}
