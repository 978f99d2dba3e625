package geometry

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

type rawFeature struct {
	ID         json.RawMessage `json:"id,omitempty"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

type rawCollection struct {
	Type     string       `json:"type"`
	Features []rawFeature `json:"features"`
}

var jsonNull = []byte("null")

// DecodeGeoJSON reads a GeoJSON FeatureCollection. Features without an id
// get their position in the collection as id.
func DecodeGeoJSON(r io.Reader) (*Collection, error) {
	var raw rawCollection
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, eris.Wrap(err, "geometry: decode geojson")
	}
	if raw.Type != "FeatureCollection" {
		return nil, eris.Errorf("geometry: expected FeatureCollection, got %q", raw.Type)
	}

	c := &Collection{Features: make([]*Feature, 0, len(raw.Features))}
	for i, rf := range raw.Features {
		f := &Feature{
			ID:         featureID(rf.ID, i),
			Properties: rf.Properties,
		}
		if f.Properties == nil {
			f.Properties = map[string]any{}
		}
		if len(rf.Geometry) > 0 && !bytes.Equal(bytes.TrimSpace(rf.Geometry), jsonNull) {
			var g geom.T
			if err := geojson.Unmarshal(rf.Geometry, &g); err != nil {
				return nil, eris.Wrapf(err, "geometry: decode geometry of feature %d", i)
			}
			f.Geometry = g
		}
		c.Features = append(c.Features, f)
	}

	return c, nil
}

func featureID(raw json.RawMessage, pos int) string {
	if len(raw) == 0 || bytes.Equal(raw, jsonNull) {
		return strconv.Itoa(pos)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// MarshalGeometry encodes g as a GeoJSON geometry object, or null.
func MarshalGeometry(g geom.T) (json.RawMessage, error) {
	if g == nil {
		return json.RawMessage(jsonNull), nil
	}
	data, err := geojson.Marshal(g)
	if err != nil {
		return nil, eris.Wrap(err, "geometry: encode geojson")
	}
	return data, nil
}
