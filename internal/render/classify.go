package render

import (
	"math"
	"sort"

	"github.com/sells-group/acsmap/internal/choropleth"
)

// NoBucket marks a row without a value.
const NoBucket = -1

// Class is the styling for one row.
type Class struct {
	Region string
	Value  *float64
	Bucket int     // NoBucket when Value is nil; always 0 on a continuous scale
	Scaled float64 // position in [0,1] between min and max
	Fill   string
}

// LegendEntry describes one bucket, or the two ends of a continuous scale.
type LegendEntry struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Fill  string  `json:"fill"`
	Label string  `json:"label"`
	Count int     `json:"count"`
}

// Classification is the result of bucketing a table.
type Classification struct {
	Continuous bool
	Classes    []Class
	Legend     []LegendEntry
	Min, Max   float64
}

// ByRegion indexes the classes by region key.
func (c *Classification) ByRegion() map[string]Class {
	m := make(map[string]Class, len(c.Classes))
	for _, cl := range c.Classes {
		m[cl.Region] = cl
	}
	return m
}

// Classify assigns every row a bucket and fill. buckets == 1 selects a
// continuous scale; 2..9 selects quantile buckets over the non-missing values.
func Classify(table choropleth.RegionValueTable, buckets int, p Palette) *Classification {
	values := table.Values()
	sort.Float64s(values)

	c := &Classification{Continuous: buckets <= 1}
	if len(values) > 0 {
		c.Min, c.Max = values[0], values[len(values)-1]
	}

	var breaks []float64
	if !c.Continuous {
		breaks = quantileBreaks(values, buckets)
		c.Legend = make([]LegendEntry, buckets)
		for i := range c.Legend {
			lower, upper := c.Min, c.Max
			if i > 0 {
				lower = breaks[i-1]
			}
			if i < len(breaks) {
				upper = breaks[i]
			}
			c.Legend[i] = LegendEntry{Lower: lower, Upper: upper, Fill: p.Step(i, buckets)}
			c.Legend[i].Label = rangeLabel(lower, upper)
		}
	} else if len(values) > 0 {
		c.Legend = []LegendEntry{
			{Lower: c.Min, Upper: c.Min, Fill: p.At(0), Label: FormatNumber(c.Min)},
			{Lower: c.Max, Upper: c.Max, Fill: p.At(1), Label: FormatNumber(c.Max)},
		}
	}

	c.Classes = make([]Class, len(table))
	for i, row := range table {
		cl := Class{Region: row.Region, Value: row.Value, Bucket: NoBucket, Fill: p.Missing}
		if row.Value != nil {
			v := *row.Value
			cl.Scaled = scale(v, c.Min, c.Max)
			if c.Continuous {
				cl.Bucket = 0
				cl.Fill = p.At(cl.Scaled)
			} else {
				cl.Bucket = bucketOf(v, breaks)
				cl.Fill = c.Legend[cl.Bucket].Fill
				c.Legend[cl.Bucket].Count++
			}
		}
		c.Classes[i] = cl
	}
	return c
}

// quantileBreaks returns n-1 upper bounds splitting sorted into n groups of
// roughly equal size.
func quantileBreaks(sorted []float64, n int) []float64 {
	breaks := make([]float64, n-1)
	if len(sorted) == 0 {
		return breaks
	}
	for k := 1; k < n; k++ {
		idx := int(math.Ceil(float64(k*len(sorted))/float64(n))) - 1
		idx = max(0, min(idx, len(sorted)-1))
		breaks[k-1] = sorted[idx]
	}
	return breaks
}

// bucketOf returns the first bucket whose upper bound is >= v.
func bucketOf(v float64, breaks []float64) int {
	return sort.Search(len(breaks), func(i int) bool { return breaks[i] >= v })
}

func scale(v, lo, hi float64) float64 {
	if hi <= lo {
		return 0
	}
	return (v - lo) / (hi - lo)
}
