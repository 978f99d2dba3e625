package geometry

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Bounds is a geographic rectangle in degrees. Its JSON form is the
// corner-pair array [[south, west], [north, east]].
type Bounds struct {
	South float64
	West  float64
	North float64
	East  float64
}

// FromGeom converts an XY go-geom bounds (x = longitude, y = latitude).
func FromGeom(b *geom.Bounds) Bounds {
	return Bounds{
		South: b.Min(1),
		West:  b.Min(0),
		North: b.Max(1),
		East:  b.Max(0),
	}
}

// Valid reports whether the corners are ordered and within range.
func (b Bounds) Valid() bool {
	return b.South <= b.North && b.West <= b.East &&
		b.South >= -90 && b.North <= 90 &&
		b.West >= -180 && b.East <= 180
}

// MarshalJSON encodes the bounds as [[south, west], [north, east]].
func (b Bounds) MarshalJSON() ([]byte, error) {
	return json.Marshal([2][2]float64{{b.South, b.West}, {b.North, b.East}})
}

// UnmarshalJSON decodes [[south, west], [north, east]].
func (b *Bounds) UnmarshalJSON(data []byte) error {
	var pairs [][]float64
	if err := json.Unmarshal(data, &pairs); err != nil {
		return eris.Wrap(err, "geometry: decode bounds")
	}
	if len(pairs) != 2 || len(pairs[0]) != 2 || len(pairs[1]) != 2 {
		return eris.Errorf("geometry: bounds must be [[south, west], [north, east]], got %s", string(data))
	}
	*b = Bounds{South: pairs[0][0], West: pairs[0][1], North: pairs[1][0], East: pairs[1][1]}
	if !b.Valid() {
		return eris.Errorf("geometry: invalid bounds %s", string(data))
	}
	return nil
}
