package acs

import (
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"

	"github.com/sells-group/acsmap/internal/choropleth"
)

// Annotation values the API returns in place of an estimate.
var missingSentinels = map[float64]bool{
	-666666666: true, // too few sample observations
	-999999999: true, // not applicable
	-888888888: true, // not applicable
	-555555555: true, // controlled estimate, no margin
	-333333333: true, // median in open-ended distribution
	-222222222: true, // too few sample cases for margin
}

// chunkResult is one parsed data response.
type chunkResult struct {
	rows  []choropleth.FetchedRow
	keys  []string // geography key per row, for merging chunks
	width int      // number of estimate columns
}

// parseResponse parses a data API response: a JSON array whose first row is
// the header. Cells may be strings, numbers or null.
func parseResponse(data []byte, cols []choropleth.Column) (*chunkResult, error) {
	if !gjson.ValidBytes(data) {
		return nil, eris.New("acs: response is not JSON")
	}
	raw := gjson.ParseBytes(data)
	if !raw.IsArray() {
		return nil, eris.New("acs: response is not an array")
	}
	records := raw.Array()
	if len(records) == 0 {
		return nil, eris.New("acs: empty response")
	}

	header := records[0].Array()
	colIdx := make(map[string]int, len(header))
	for i, h := range header {
		colIdx[h.String()] = i
	}

	estIdx := make([]int, len(cols))
	isEstimate := make(map[int]bool, len(cols))
	for i, c := range cols {
		idx, ok := colIdx[c.Name]
		if !ok {
			return nil, eris.Errorf("acs: response is missing column %s", c.Name)
		}
		estIdx[i] = idx
		isEstimate[idx] = true
	}

	res := &chunkResult{width: len(cols)}
	for n, rec := range records[1:] {
		cells := rec.Array()
		if len(cells) != len(header) {
			return nil, eris.Errorf("acs: row %d has %d cells, header has %d", n+1, len(cells), len(header))
		}

		geo := make(map[string]string, len(header)-len(cols))
		var key []string
		for i, h := range header {
			if isEstimate[i] {
				continue
			}
			v := cells[i].String()
			geo[h.String()] = v
			if h.String() != choropleth.GeoName {
				key = append(key, v)
			}
		}

		est := make([]*float64, len(cols))
		for i, idx := range estIdx {
			est[i] = parseEstimate(cells[idx])
		}

		res.rows = append(res.rows, choropleth.FetchedRow{Geography: geo, Estimates: est})
		res.keys = append(res.keys, strings.Join(key, "|"))
	}
	return res, nil
}

// parseEstimate returns nil for null, unparsable, or annotated cells.
func parseEstimate(cell gjson.Result) *float64 {
	var v float64
	switch cell.Type {
	case gjson.Number:
		v = cell.Float()
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(cell.Str), 64)
		if err != nil {
			return nil
		}
		v = f
	default:
		return nil
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || missingSentinels[v] {
		return nil
	}
	return &v
}
