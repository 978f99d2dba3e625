package geometry

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

const provincesGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "id": "fr", "properties": {"name": "Friesland"},
     "geometry": {"type": "Polygon", "coordinates": [[[5.0, 52.8], [6.4, 52.8], [6.4, 53.5], [5.0, 53.5], [5.0, 52.8]]]}},
    {"type": "Feature", "id": 7, "properties": {"Provincie": " Utrecht "},
     "geometry": {"type": "MultiPolygon", "coordinates": [[[[4.8, 51.9], [5.6, 51.9], [5.6, 52.3], [4.8, 51.9]]]]}},
    {"type": "Feature", "properties": null, "geometry": null}
  ]
}`

func TestDecodeGeoJSON(t *testing.T) {
	c, err := DecodeGeoJSON(strings.NewReader(provincesGeoJSON))
	require.NoError(t, err)
	require.Equal(t, 3, c.Len())

	assert.Equal(t, "fr", c.Features[0].ID)
	assert.Equal(t, "7", c.Features[1].ID)
	assert.Equal(t, "2", c.Features[2].ID)

	_, ok := c.Features[0].Geometry.(*geom.Polygon)
	assert.True(t, ok)
	_, ok = c.Features[1].Geometry.(*geom.MultiPolygon)
	assert.True(t, ok)
	assert.Nil(t, c.Features[2].Geometry)
	assert.NotNil(t, c.Features[2].Properties)
}

func TestDecodeGeoJSON_Errors(t *testing.T) {
	_, err := DecodeGeoJSON(strings.NewReader(`not json`))
	assert.Error(t, err)

	_, err = DecodeGeoJSON(strings.NewReader(`{"type": "Feature"}`))
	assert.Error(t, err)

	_, err = DecodeGeoJSON(strings.NewReader(`{"type": "FeatureCollection", "features": [{"geometry": {"type": "Blob"}}]}`))
	assert.Error(t, err)
}

func TestRegionName_Priority(t *testing.T) {
	c, err := DecodeGeoJSON(strings.NewReader(provincesGeoJSON))
	require.NoError(t, err)

	assert.Equal(t, "Friesland", c.Features[0].RegionName(DefaultNameProperties))
	assert.Equal(t, "Utrecht", c.Features[1].RegionName(DefaultNameProperties))
	assert.Equal(t, "", c.Features[2].RegionName(DefaultNameProperties))

	props := map[string]any{"name": "  ", "Provincie": "Zeeland", "NAME": "ZEELAND"}
	assert.Equal(t, "Zeeland", RegionName(props, DefaultNameProperties))
	assert.Equal(t, "ZEELAND", RegionName(props, []string{"NAME", "name"}))
	assert.Equal(t, "", RegionName(map[string]any{"name": 12}, DefaultNameProperties))

	var nilFeature *Feature
	assert.Equal(t, "", nilFeature.RegionName(DefaultNameProperties))
}

func TestCollectionBounds(t *testing.T) {
	c, err := DecodeGeoJSON(strings.NewReader(provincesGeoJSON))
	require.NoError(t, err)

	b, ok := c.Bounds()
	require.True(t, ok)
	assert.Equal(t, Bounds{South: 51.9, West: 4.8, North: 53.5, East: 6.4}, b)

	empty := &Collection{Features: []*Feature{{ID: "x"}}}
	_, ok = empty.Bounds()
	assert.False(t, ok)

	var nilColl *Collection
	_, ok = nilColl.Bounds()
	assert.False(t, ok)
}

func TestBounds_JSON(t *testing.T) {
	var b Bounds
	require.NoError(t, json.Unmarshal([]byte(`[[50.7, 3.3], [53.6, 7.3]]`), &b))
	assert.Equal(t, Bounds{South: 50.7, West: 3.3, North: 53.6, East: 7.3}, b)

	data, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, `[[50.7, 3.3], [53.6, 7.3]]`, string(data))

	assert.Error(t, json.Unmarshal([]byte(`[[1, 2]]`), &b))
	assert.Error(t, json.Unmarshal([]byte(`[[53, 3], [50, 7]]`), &b), "south above north")
	assert.Error(t, json.Unmarshal([]byte(`"x"`), &b))
}

func TestMarshalGeometry(t *testing.T) {
	data, err := MarshalGeometry(nil)
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))

	pt := geom.NewPointFlat(geom.XY, []float64{5.1, 52.1})
	data, err = MarshalGeometry(pt)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type": "Point", "coordinates": [5.1, 52.1]}`, string(data))
}

func TestLoadShapefile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "provinces.shp")

	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.StringField("statnaam", 32)}))

	poly := shp.Polygon(*shp.NewPolyLine([][]shp.Point{
		{{X: 5.0, Y: 52.0}, {X: 6.0, Y: 52.0}, {X: 6.0, Y: 53.0}, {X: 5.0, Y: 52.0}},
	}))
	n := w.Write(&poly)
	require.NoError(t, w.WriteAttribute(int(n), 0, "Fryslân"))
	w.Close()

	c, err := LoadShapefile(path)
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())

	f := c.Features[0]
	assert.Equal(t, "Fryslân", f.RegionName(DefaultNameProperties))
	mp, ok := f.Geometry.(*geom.MultiPolygon)
	require.True(t, ok)
	assert.Equal(t, 1, mp.NumPolygons())

	b, ok := c.Bounds()
	require.True(t, ok)
	assert.Equal(t, Bounds{South: 52, West: 5, North: 53, East: 6}, b)
}

func TestLoadShapefile_Missing(t *testing.T) {
	_, err := LoadShapefile(filepath.Join(t.TempDir(), "nope.shp"))
	assert.Error(t, err)
}
