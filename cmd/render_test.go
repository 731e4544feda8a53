package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/acsmap/internal/acs"
	"github.com/sells-group/acsmap/internal/choropleth"
	"github.com/sells-group/acsmap/internal/config"
	"github.com/sells-group/acsmap/internal/render"
)

func withConfig(t *testing.T, c *config.Config) {
	t.Helper()
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

func TestOutputPath(t *testing.T) {
	withConfig(t, &config.Config{Render: config.RenderConfig{OutputDir: "maps"}})
	req := choropleth.NewRequest("B19013", choropleth.LevelCounty)

	assert.Equal(t, filepath.Join("maps", "B19013_county.geojson"), outputPath("", render.FormatGeoJSON, req))
	assert.Equal(t, filepath.Join("maps", "B19013_county.xlsx"), outputPath("", render.FormatXLSX, req))
	assert.Equal(t, "-", outputPath("", render.FormatTable, req))
	assert.Equal(t, "custom.json", outputPath("custom.json", render.FormatGeoJSON, req))
}

func TestWriteArtifact(t *testing.T) {
	var stdout bytes.Buffer
	require.NoError(t, writeArtifact(&stdout, "-", []byte("hello")))
	assert.Equal(t, "hello", stdout.String())

	path := filepath.Join(t.TempDir(), "nested", "out.geojson")
	require.NoError(t, writeArtifact(&stdout, path, []byte(`{"type":"FeatureCollection"}`)))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"type":"FeatureCollection"}`, string(data))
}

func TestParseLevels(t *testing.T) {
	levels, err := parseLevels([]string{"state", " County ", "zip"})
	require.NoError(t, err)
	assert.Equal(t, []choropleth.DetailLevel{choropleth.LevelState, choropleth.LevelCounty, choropleth.LevelZIP}, levels)

	_, err = parseLevels([]string{"tract"})
	assert.ErrorIs(t, err, choropleth.ErrInvalidArgument)
}

func TestFormatColumns(t *testing.T) {
	var buf bytes.Buffer
	formatColumns(&buf, &acs.Group{
		TableID:  "B01001",
		Title:    "Sex By Age",
		Universe: "Total population",
		Columns: []choropleth.Column{
			{Name: "B01001_001E", Label: "Total"},
			{Name: "B01001_002E", Label: "Total > Male"},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "B01001: Sex By Age")
	assert.Contains(t, out, "B01001_002E")
	assert.Contains(t, out, "Total > Male")
	assert.Contains(t, out, "2 columns")
	assert.Contains(t, out, "Total population")
}
