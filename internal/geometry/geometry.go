// Package geometry loads region boundaries and exposes the properties the
// choropleth binds against.
package geometry

import (
	"fmt"
	"strings"

	"github.com/twpayne/go-geom"
)

// DefaultNameProperties lists the feature properties that may carry the
// region name, in priority order.
var DefaultNameProperties = []string{"name", "Provincie", "statnaam", "NAME"}

// Feature is a region boundary with its source properties.
type Feature struct {
	ID         string
	Geometry   geom.T
	Properties map[string]any
}

// RegionName returns the first non-blank string property among candidates.
func (f *Feature) RegionName(candidates []string) string {
	if f == nil {
		return ""
	}
	return RegionName(f.Properties, candidates)
}

// RegionName returns the first non-blank string value among candidates.
func RegionName(props map[string]any, candidates []string) string {
	for _, key := range candidates {
		v, ok := props[key]
		if !ok || v == nil {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case fmt.Stringer:
			s = t.String()
		default:
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// Collection is an ordered set of features.
type Collection struct {
	Features []*Feature
}

// Len returns the number of features.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Features)
}

// Bounds returns the union bounds of every feature geometry. ok is false
// when no feature has a geometry.
func (c *Collection) Bounds() (Bounds, bool) {
	if c == nil {
		return Bounds{}, false
	}
	b := geom.NewBounds(geom.XY)
	for _, f := range c.Features {
		if f.Geometry == nil {
			continue
		}
		b.Extend(f.Geometry)
	}
	if b.IsEmpty() {
		return Bounds{}, false
	}
	return FromGeom(b), true
}
