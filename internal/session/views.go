package session

import (
	"io"

	"github.com/sells-group/provmap/internal/catalog"
	"github.com/sells-group/provmap/internal/choropleth"
	"github.com/sells-group/provmap/internal/geometry"
	"github.com/sells-group/provmap/internal/mapview"
	"github.com/sells-group/provmap/internal/monitoring"
	"github.com/sells-group/provmap/internal/overlay"
)

// Status reports whether the session is loaded. Alert is set after a failed
// required load.
type Status struct {
	Loaded bool   `json:"loaded"`
	Alert  string `json:"alert,omitempty"`
}

// Status returns the load status.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{Loaded: s.loaded}
	if s.loadErr != nil {
		st.Alert = s.loadErr.Alert()
	}
	return st
}

// LoadError returns the most recent required-asset failure, or nil.
func (s *Session) LoadError() *LoadError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

// CatalogView is the state of both selectors.
type CatalogView struct {
	State     string            `json:"state"`
	Groups    []catalog.Group   `json:"groups"`
	Selection catalog.Selection `json:"selection"`
	Metrics   []MetricOption    `json:"metrics"`
}

// MetricOption is one entry of the metric selector.
type MetricOption struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Catalog returns the selector state with the metric options of the
// selected group.
func (s *Session) Catalog() CatalogView {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := CatalogView{
		State:     s.catalog.State().String(),
		Groups:    s.catalog.Groups(),
		Selection: s.catalog.Selection(),
		Metrics:   []MetricOption{},
	}
	if g, ok := s.catalog.CurrentGroup(); ok {
		for _, key := range g.Metrics {
			v.Metrics = append(v.Metrics, MetricOption{Key: key, Label: choropleth.PrettifyMetric(key)})
		}
	}
	return v
}

// Summary returns the result of the last render pass.
func (s *Session) Summary() choropleth.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// WriteMap writes the styled region layer as GeoJSON.
func (s *Session) WriteMap(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return ErrNotLoaded
	}
	return s.view.WriteGeoJSON(w)
}

// MapView returns the fit bounds and raster stack.
func (s *Session) MapView() mapview.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.View()
}

// OverlayItem is one entry of the overlay list.
type OverlayItem struct {
	overlay.Overlay
	Active bool `json:"active"`
}

// OverlaysView is the overlay panel state.
type OverlaysView struct {
	Status   overlay.Status `json:"status"`
	Message  string         `json:"message,omitempty"`
	Opacity  float64        `json:"opacity"`
	Overlays []OverlayItem  `json:"overlays"`
}

// Overlays returns the overlay panel state.
func (s *Session) Overlays() OverlaysView {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := OverlaysView{
		Status:   s.outcome.Status,
		Message:  s.outcome.Message,
		Opacity:  s.overlays.Opacity(),
		Overlays: []OverlayItem{},
	}
	for _, o := range s.overlays.Overlays() {
		v.Overlays = append(v.Overlays, OverlayItem{Overlay: o, Active: s.overlays.IsActive(o.ID)})
	}
	return v
}

// Diagnostics returns the join health report.
func (s *Session) Diagnostics() monitoring.Report {
	return s.diag.Report()
}

// Join describes how one feature was bound to the dataset.
type Join struct {
	FeatureID string `json:"feature_id"`
	Name      string `json:"name"`
	Match     string `json:"match"`
	Key       string `json:"key,omitempty"`
}

// Joins resolves every displayed feature against the region index.
func (s *Session) Joins() ([]Join, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return nil, ErrNotLoaded
	}
	names := s.cfg.Data.NameProperties
	if len(names) == 0 {
		names = geometry.DefaultNameProperties
	}
	var out []Join
	for _, f := range s.view.Features() {
		name := f.RegionName(names)
		rec, m := s.index.Lookup(name)
		j := Join{FeatureID: f.ID, Name: name, Match: m.String()}
		if rec != nil {
			j.Key = rec.RawKey
		}
		out = append(out, j)
	}
	return out, nil
}
