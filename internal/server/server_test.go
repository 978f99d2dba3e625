package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/provmap/internal/alias"
	"github.com/sells-group/provmap/internal/config"
	"github.com/sells-group/provmap/internal/fetcher"
	"github.com/sells-group/provmap/internal/monitoring"
	"github.com/sells-group/provmap/internal/session"
)

const testCSV = "Provincie,banen,bedrijven\nFryslân,100,10\nGroningen,300,30\n"

const testGroups = `{"bedrijvigheid": ["banen", "bedrijven"], "overig": []}`

const testGeoJSON = `{"type": "FeatureCollection", "features": [
  {"type": "Feature", "id": "fr", "properties": {"name": "Friesland"},
   "geometry": {"type": "Polygon", "coordinates": [[[5.0, 52.8], [6.4, 52.8], [6.4, 53.5], [5.0, 52.8]]]}},
  {"type": "Feature", "id": "gr", "properties": {"name": "Groningen"},
   "geometry": {"type": "Polygon", "coordinates": [[[6.2, 53.0], [7.2, 53.0], [7.2, 53.5], [6.2, 53.0]]]}}
]}`

const testOverlays = `[{"id": "flood", "title": "Overstroming", "url": "img/flood.png"}]`

type fixture struct {
	sess *session.Session
	srv  *httptest.Server
	cfg  *config.Config
}

func newFixture(t *testing.T, load bool) *fixture {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"provincies.csv":       testCSV,
		"metric_groups.json":   testGroups,
		"nl_provinces.geojson": testGeoJSON,
		"overlays.json":        testOverlays,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	cfg := &config.Config{}
	cfg.Data.Dataset = filepath.Join(dir, "provincies.csv")
	cfg.Data.Groups = filepath.Join(dir, "metric_groups.json")
	cfg.Data.Geometry = filepath.Join(dir, "nl_provinces.geojson")
	cfg.Data.Overlays = filepath.Join(dir, "overlays.json")
	cfg.Data.KeyColumn = "Provincie"
	cfg.Aliases = []alias.Entry{{From: "Fryslân", To: "Friesland"}}
	cfg.Display.Locale = "nl"
	cfg.Display.Dash = "–"
	cfg.Overlay.DefaultOpacity = 0.65

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)
	sess, err := session.New(cfg, fetcher.NewSource(fetcher.HTTPOptions{}), metrics)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })

	if load {
		require.NoError(t, sess.Load(context.Background()))
		sess.LoadOverlays(context.Background())
	}

	tiles := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("tile:" + r.URL.Path))
	})

	srv := httptest.NewServer(New(Options{
		Session:  sess,
		Tiles:    tiles,
		Gatherer: reg,
	}).Handler())
	t.Cleanup(srv.Close)

	return &fixture{sess: sess, srv: srv, cfg: cfg}
}

func (f *fixture) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func TestHealth(t *testing.T) {
	f := newFixture(t, true)
	resp, body := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","loaded":true}`, string(body))
}

func TestMap_NotLoaded(t *testing.T) {
	f := newFixture(t, false)
	resp, body := f.do(t, http.MethodGet, "/api/map", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.JSONEq(t, `{"error":"not loaded"}`, string(body))
}

func TestMap_LoadFailureAlert(t *testing.T) {
	f := newFixture(t, false)
	f.cfg.Data.Groups = filepath.Join(t.TempDir(), "metric_groups.json")
	require.Error(t, f.sess.Load(context.Background()))

	resp, body := f.do(t, http.MethodGet, "/api/map", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Kon metric_groups.json niet laden."}`, string(body))
}

func TestMap_Loaded(t *testing.T) {
	f := newFixture(t, true)
	resp, body := f.do(t, http.MethodGet, "/api/map", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/geo+json", resp.Header.Get("Content-Type"))

	var doc struct {
		Type     string `json:"type"`
		Features []struct {
			ID    string `json:"id"`
			Style struct {
				FillColor string `json:"fillColor"`
			} `json:"style"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Equal(t, "FeatureCollection", doc.Type)
	require.Len(t, doc.Features, 2)
	assert.Equal(t, "rgb(246,251,247)", doc.Features[0].Style.FillColor)
	assert.Equal(t, "rgb(14,87,53)", doc.Features[1].Style.FillColor)
}

func TestSelection(t *testing.T) {
	f := newFixture(t, true)

	resp, body := f.do(t, http.MethodPut, "/api/selection/metric", `{"metric":"bedrijven"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"group":"bedrijvigheid","metric":"bedrijven"}`, string(body))

	resp, body = f.do(t, http.MethodGet, "/api/choropleth", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sum struct {
		Metric  string `json:"metric"`
		Matched int    `json:"matched"`
	}
	require.NoError(t, json.Unmarshal(body, &sum))
	assert.Equal(t, "bedrijven", sum.Metric)
	assert.Equal(t, 2, sum.Matched)

	resp, _ = f.do(t, http.MethodPut, "/api/selection/group", `{"group":"nope"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPut, "/api/selection/metric", `{"metric":"nope"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPut, "/api/selection/group", `{bad`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = f.do(t, http.MethodPut, "/api/selection/group", `{"group":"overig"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"group":"overig","metric":""}`, string(body))

	resp, body = f.do(t, http.MethodGet, "/api/catalog", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cat struct {
		State   string `json:"state"`
		Metrics []any  `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(body, &cat))
	assert.Equal(t, "group_selected", cat.State)
	assert.Empty(t, cat.Metrics)
}

func TestSelection_NotLoaded(t *testing.T) {
	f := newFixture(t, false)
	resp, _ := f.do(t, http.MethodPut, "/api/selection/group", `{"group":"overig"}`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp, _ = f.do(t, http.MethodGet, "/api/joins", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestOverlays(t *testing.T) {
	f := newFixture(t, true)

	resp, body := f.do(t, http.MethodPut, "/api/overlays/opacity", `{"opacity":1.5}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"opacity":1}`, string(body))

	resp, _ = f.do(t, http.MethodPut, "/api/overlays/opacity", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = f.do(t, http.MethodPut, "/api/overlays/flood", `{"enabled":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var layer struct {
		OverlayID string  `json:"overlay_id"`
		Opacity   float64 `json:"opacity"`
	}
	require.NoError(t, json.Unmarshal(body, &layer))
	assert.Equal(t, "flood", layer.OverlayID)
	assert.Equal(t, 1.0, layer.Opacity)

	resp, body = f.do(t, http.MethodGet, "/api/overlays", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view struct {
		Status   string `json:"status"`
		Overlays []struct {
			ID     string `json:"id"`
			Active bool   `json:"active"`
		} `json:"overlays"`
	}
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, "loaded", view.Status)
	require.Len(t, view.Overlays, 1)
	assert.True(t, view.Overlays[0].Active)

	resp, body = f.do(t, http.MethodPut, "/api/overlays/flood", `{"enabled":false}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"overlay_id":"flood","active":false}`, string(body))

	resp, _ = f.do(t, http.MethodPut, "/api/overlays/nope", `{"enabled":true}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOverlays_NoBounds(t *testing.T) {
	f := newFixture(t, false)
	f.sess.LoadOverlays(context.Background())
	resp, _ := f.do(t, http.MethodPut, "/api/overlays/flood", `{"enabled":true}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestReload(t *testing.T) {
	f := newFixture(t, false)
	resp, body := f.do(t, http.MethodPost, "/api/reload", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"loaded":true}`, string(body))

	resp, body = f.do(t, http.MethodGet, "/api/joins", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"match":"alias_backward"`)
}

func TestDiagnosticsAndMetrics(t *testing.T) {
	f := newFixture(t, true)

	resp, body := f.do(t, http.MethodGet, "/api/diagnostics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"dataset_rows":2`)

	resp, body = f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "provmap_renders_total")
}

func TestBasemapMount(t *testing.T) {
	f := newFixture(t, false)
	resp, body := f.do(t, http.MethodGet, "/basemap/5/16/10.png", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "tile:/5/16/10.png", string(body))
}

func TestCORS(t *testing.T) {
	f := newFixture(t, true)
	req, err := http.NewRequest(http.MethodGet, f.srv.URL+"/api/status", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://example.org")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
