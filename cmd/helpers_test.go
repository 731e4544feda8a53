package main

import (
	"context"
	"errors"

	"github.com/twpayne/go-geom"

	"github.com/sells-group/acsmap/internal/acs"
	"github.com/sells-group/acsmap/internal/boundary"
	"github.com/sells-group/acsmap/internal/choropleth"
	"github.com/sells-group/acsmap/internal/render"
)

type stubFetcher struct {
	table *choropleth.FetchedTable
	err   error
	calls int
}

func (s *stubFetcher) FetchTable(_ context.Context, _ string, _ choropleth.GeographyFilter) (*choropleth.FetchedTable, error) {
	s.calls++
	return s.table, s.err
}

type stubFeatures struct{}

func (stubFeatures) Features(_ context.Context, _ choropleth.DetailLevel) ([]boundary.Feature, error) {
	square := geom.NewPolygonFlat(geom.XY, []float64{0, 0, 1, 0, 1, 1, 0, 1, 0, 0}, []int{10})
	mp := geom.NewMultiPolygon(geom.XY)
	_ = mp.Push(square)
	return []boundary.Feature{
		{Key: "California", Label: "CA", Geometry: mp},
		{Key: "Texas", Label: "TX", Geometry: mp},
	}, nil
}

type stubColumns struct {
	group *acs.Group
}

func (s stubColumns) Group(_ context.Context, tableID string) (*acs.Group, error) {
	if s.group == nil {
		return nil, choropleth.NewFetchError("acs: group metadata", errors.New("unknown table "+tableID))
	}
	return s.group, nil
}

func incomeTable() *choropleth.FetchedTable {
	return &choropleth.FetchedTable{
		TableID: "B19013",
		Title:   "Median Household Income",
		Columns: []choropleth.Column{{Name: "B19013_001E", Label: "Median household income"}},
		Rows: []choropleth.FetchedRow{
			{Geography: map[string]string{"NAME": "California", "state": "06"}, Estimates: []*float64{choropleth.Float(61094)}},
			{Geography: map[string]string{"NAME": "Texas", "state": "48"}, Estimates: []*float64{choropleth.Float(53035)}},
		},
	}
}

func sexByAgeTable() *choropleth.FetchedTable {
	t := incomeTable()
	t.TableID = "B01001"
	t.Columns = []choropleth.Column{{Name: "B01001_001E", Label: "Total"}, {Name: "B01001_002E", Label: "Total > Male"}}
	for i := range t.Rows {
		t.Rows[i].Estimates = append(t.Rows[i].Estimates, choropleth.Float(float64(i+1)))
	}
	return t
}

func testDeps(f choropleth.Fetcher) renderDeps {
	return renderDeps{
		fetcher:  f,
		features: stubFeatures{},
		palette:  render.DefaultPalette(),
	}
}
