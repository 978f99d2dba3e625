package session

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/provmap/internal/alias"
	"github.com/sells-group/provmap/internal/config"
	"github.com/sells-group/provmap/internal/fetcher"
)

const datasetCSV = "Provincie,banen,bedrijven,x__aantal_projecten\n" +
	"Fryslân,100,10,3\n" +
	"Groningen,300,30,\n" +
	"Utrecht,,20,7\n" +
	",999,999,999\n"

const groupsJSON = `{
  "bedrijvigheid": ["banen", "bedrijven"],
  "overig": ["x__aantal_projecten"],
  "leeg": []
}`

const provincesGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "id": "fr", "properties": {"name": "Friesland"},
     "geometry": {"type": "Polygon", "coordinates": [[[5.0, 52.8], [6.4, 52.8], [6.4, 53.5], [5.0, 53.5], [5.0, 52.8]]]}},
    {"type": "Feature", "id": "gr", "properties": {"name": "Groningen"},
     "geometry": {"type": "Polygon", "coordinates": [[[6.2, 53.0], [7.2, 53.0], [7.2, 53.5], [6.2, 53.0]]]}},
    {"type": "Feature", "id": "ut", "properties": {"Provincie": "utrecht"},
     "geometry": {"type": "Polygon", "coordinates": [[[4.8, 51.9], [5.6, 51.9], [5.6, 52.3], [4.8, 51.9]]]}},
    {"type": "Feature", "id": "zl", "properties": {"name": "Zeeland"},
     "geometry": {"type": "Polygon", "coordinates": [[[3.4, 51.2], [4.2, 51.2], [4.2, 51.7], [3.4, 51.2]]]}}
  ]
}`

const overlaysJSON = `[
  {"id": "flood", "title": "Overstroming", "url": "img/flood.png", "bounds": [[50.7, 3.3], [53.6, 7.2]]},
  {"id": "soil", "title": "Bodem", "url": "img/soil.png"}
]`

// writeAssets writes the standard fixture set into a temp dir and returns a
// config pointing at it.
func writeAssets(t *testing.T) (*config.Config, string) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range map[string]string{
		"provincies.csv":       datasetCSV,
		"metric_groups.json":   groupsJSON,
		"nl_provinces.geojson": provincesGeoJSON,
		"overlays.json":        overlaysJSON,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	cfg := &config.Config{}
	cfg.Data.Dataset = filepath.Join(dir, "provincies.csv")
	cfg.Data.Groups = filepath.Join(dir, "metric_groups.json")
	cfg.Data.Geometry = filepath.Join(dir, "nl_provinces.geojson")
	cfg.Data.Overlays = filepath.Join(dir, "overlays.json")
	cfg.Data.KeyColumn = "Provincie"
	cfg.Aliases = []alias.Entry{
		{From: "Fryslân", To: "Friesland"},
		{From: "Brabant", To: "Noord-Brabant"},
	}
	cfg.Display.Locale = "nl"
	cfg.Display.Dash = "–"
	cfg.Display.GroupTitles = map[string]string{"bedrijvigheid": "Bedrijvigheid", "overig": "Overig"}
	cfg.Overlay.DefaultOpacity = 0.65
	return cfg, dir
}

func newSession(t *testing.T, cfg *config.Config, src Source) *Session {
	t.Helper()
	if src == nil {
		src = fetcher.NewSource(fetcher.HTTPOptions{})
	}
	s, err := New(cfg, src, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// countingSource counts opens per location and records the directories
// handed to Localize.
type countingSource struct {
	Source
	mu    sync.Mutex
	opens map[string]int
	dirs  []string
}

func newCountingSource() *countingSource {
	return &countingSource{Source: fetcher.NewSource(fetcher.HTTPOptions{}), opens: make(map[string]int)}
}

func (c *countingSource) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	c.mu.Lock()
	c.opens[location]++
	c.mu.Unlock()
	return c.Source.Open(ctx, location)
}

func (c *countingSource) Localize(ctx context.Context, location, dir string) (string, error) {
	c.mu.Lock()
	c.dirs = append(c.dirs, dir)
	c.mu.Unlock()
	return c.Source.Localize(ctx, location, dir)
}

// writeXLSX saves rows as a single-sheet workbook at path.
func writeXLSX(t *testing.T, path, sheetName string, rows [][]string) {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	require.NoError(t, err)
	for _, r := range rows {
		row := sheet.AddRow()
		for _, c := range r {
			row.AddCell().SetString(c)
		}
	}
	require.NoError(t, f.Save(path))
}
