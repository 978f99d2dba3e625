// Package mapview is the in-memory map the renderer and overlay manager
// draw on. The browser shell mirrors its state through the HTTP API.
package mapview

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/provmap/internal/choropleth"
	"github.com/sells-group/provmap/internal/geometry"
	"github.com/sells-group/provmap/internal/overlay"
)

// DefaultFitPadding is the pixel padding the shell applies when fitting the
// view to the region bounds.
const DefaultFitPadding = 12

type featureState struct {
	feature *geometry.Feature
	style   *choropleth.Style
	popup   *choropleth.Popup
}

// Map holds the displayed region layer and the raster overlays above it.
// It implements choropleth.Surface and overlay.Display.
type Map struct {
	mu       sync.RWMutex
	features []*featureState
	byID     map[string]*featureState
	bounds   geometry.Bounds
	fitted   bool
	padding  int
	rasters  []*overlay.Layer // bottom to top
}

var (
	_ choropleth.Surface = (*Map)(nil)
	_ overlay.Display    = (*Map)(nil)
)

// New returns an empty map.
func New() *Map {
	return &Map{
		byID:    make(map[string]*featureState),
		padding: DefaultFitPadding,
	}
}

// SetFeatures replaces the region layer with the features of c and fits the
// view to their union bounds. Styles and popups start unset.
func (m *Map) SetFeatures(c *geometry.Collection) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.features = m.features[:0]
	m.byID = make(map[string]*featureState, c.Len())
	for _, f := range c.Features {
		if _, dup := m.byID[f.ID]; dup {
			zap.L().Warn("mapview: duplicate feature id", zap.String("feature", f.ID))
			continue
		}
		st := &featureState{feature: f}
		m.features = append(m.features, st)
		m.byID[f.ID] = st
	}
	m.bounds, m.fitted = c.Bounds()
}

// Features returns the displayed features in layer order.
func (m *Map) Features() []*geometry.Feature {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*geometry.Feature, len(m.features))
	for i, st := range m.features {
		out[i] = st.feature
	}
	return out
}

// SetStyle restyles one feature.
func (m *Map) SetStyle(featureID string, s choropleth.Style) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.byID[featureID]; ok {
		st.style = &s
	}
}

// BindPopup attaches p to a feature, replacing any previous popup.
func (m *Map) BindPopup(featureID string, p *choropleth.Popup) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.byID[featureID]; ok {
		st.popup = p
	}
}

// UnbindPopup removes a feature's popup.
func (m *Map) UnbindPopup(featureID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.byID[featureID]; ok {
		st.popup = nil
	}
}

// Style returns the current style of a feature.
func (m *Map) Style(featureID string) (choropleth.Style, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.byID[featureID]
	if !ok || st.style == nil {
		return choropleth.Style{}, false
	}
	return *st.style, true
}

// Popup returns the popup bound to a feature, or nil.
func (m *Map) Popup(featureID string) *choropleth.Popup {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if st, ok := m.byID[featureID]; ok {
		return st.popup
	}
	return nil
}

// Bounds returns the fitted view bounds. ok is false before any geometry
// with coordinates was loaded.
func (m *Map) Bounds() (b geometry.Bounds, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bounds, m.fitted
}

// AddRaster puts l on top of the raster stack.
func (m *Map) AddRaster(l *overlay.Layer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rasters = append(m.rasters, l)
}

// RemoveRaster drops a raster layer. Unknown ids are ignored.
func (m *Map) RemoveRaster(instanceID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.rasterIndex(instanceID); i >= 0 {
		m.rasters = append(m.rasters[:i], m.rasters[i+1:]...)
	}
}

// BringToFront moves a raster layer to the top of the stack.
func (m *Map) BringToFront(instanceID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.rasterIndex(instanceID)
	if i < 0 {
		return
	}
	l := m.rasters[i]
	m.rasters = append(m.rasters[:i], m.rasters[i+1:]...)
	m.rasters = append(m.rasters, l)
}

// SetRasterOpacity sets the opacity of one raster layer.
func (m *Map) SetRasterOpacity(instanceID string, opacity float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.rasterIndex(instanceID); i >= 0 {
		m.rasters[i].Opacity = opacity
	}
}

func (m *Map) rasterIndex(instanceID string) int {
	for i, l := range m.rasters {
		if l.InstanceID == instanceID {
			return i
		}
	}
	return -1
}

// Rasters returns copies of the raster layers, bottom to top.
func (m *Map) Rasters() []overlay.Layer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]overlay.Layer, len(m.rasters))
	for i, l := range m.rasters {
		out[i] = *l
	}
	return out
}

// View is the non-feature state of the map.
type View struct {
	Bounds  *geometry.Bounds `json:"bounds,omitempty"`
	Padding int              `json:"padding"`
	Rasters []overlay.Layer  `json:"rasters"`
}

// View returns the fit bounds, padding and raster stack.
func (m *Map) View() View {
	v := View{Rasters: m.Rasters()}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v.Padding = m.padding
	if m.fitted {
		b := m.bounds
		v.Bounds = &b
	}
	return v
}

type outFeature struct {
	Type       string            `json:"type"`
	ID         string            `json:"id"`
	Geometry   json.RawMessage   `json:"geometry"`
	Properties map[string]any    `json:"properties"`
	Style      *choropleth.Style `json:"style,omitempty"`
	Popup      string            `json:"popup,omitempty"`
}

type outCollection struct {
	Type     string           `json:"type"`
	BBox     *geometry.Bounds `json:"bounds,omitempty"`
	Features []outFeature     `json:"features"`
}

// WriteGeoJSON writes the region layer as a GeoJSON FeatureCollection. Each
// feature carries its current style and sanitised popup markup as foreign
// members next to its original properties.
func (m *Map) WriteGeoJSON(w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := outCollection{Type: "FeatureCollection", Features: make([]outFeature, 0, len(m.features))}
	if m.fitted {
		b := m.bounds
		out.BBox = &b
	}
	for _, st := range m.features {
		g, err := geometry.MarshalGeometry(st.feature.Geometry)
		if err != nil {
			return eris.Wrapf(err, "mapview: encode feature %s", st.feature.ID)
		}
		props := st.feature.Properties
		if props == nil {
			props = map[string]any{}
		}
		of := outFeature{
			Type:       "Feature",
			ID:         st.feature.ID,
			Geometry:   g,
			Properties: props,
			Style:      st.style,
		}
		if st.popup != nil {
			html, err := st.popup.HTML()
			if err != nil {
				return eris.Wrapf(err, "mapview: popup for %s", st.feature.ID)
			}
			of.Popup = html
		}
		out.Features = append(out.Features, of)
	}

	if err := json.NewEncoder(w).Encode(out); err != nil {
		return eris.Wrap(err, "mapview: write geojson")
	}
	return nil
}
