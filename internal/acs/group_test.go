package acs

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGroup(t *testing.T) {
	g, err := parseGroup("B19013", []byte(incomeGroup))
	require.NoError(t, err)
	require.Len(t, g.Columns, 1)
	assert.Equal(t, "Median Household Income In The Past 12 Months (In 2022 Inflation-Adjusted Dollars)", g.Title)

	g, err = parseGroup("B01001", []byte(sexGroup))
	require.NoError(t, err)
	assert.Equal(t, "Sex by Age", g.Title)
	assert.Equal(t, "Total population", g.Universe)
}

func TestParseGroup_Concurrent(t *testing.T) {
	want, err := parseGroup("B19013", []byte(incomeGroup))
	require.NoError(t, err)

	const workers = 50
	titles := make([]string, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g, err := parseGroup("B19013", []byte(incomeGroup))
			errs[i] = err
			if err == nil {
				titles[i] = g.Title
			}
		}()
	}
	wg.Wait()

	for i := range workers {
		require.NoError(t, errs[i])
		assert.Equal(t, want.Title, titles[i])
	}
}
