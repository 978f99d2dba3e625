package choropleth

import (
	"github.com/sells-group/provmap/internal/geometry"
)

// fakeSurface implements Surface for testing.
type fakeSurface struct {
	features []*geometry.Feature
	styles   map[string]Style
	popups   map[string]*Popup
	unbound  []string
}

func newFakeSurface(features ...*geometry.Feature) *fakeSurface {
	return &fakeSurface{
		features: features,
		styles:   make(map[string]Style),
		popups:   make(map[string]*Popup),
	}
}

func (s *fakeSurface) Features() []*geometry.Feature { return s.features }

func (s *fakeSurface) SetStyle(id string, st Style) { s.styles[id] = st }

func (s *fakeSurface) BindPopup(id string, p *Popup) { s.popups[id] = p }

func (s *fakeSurface) UnbindPopup(id string) {
	delete(s.popups, id)
	s.unbound = append(s.unbound, id)
}

// recordingDiagnostics implements Diagnostics for testing.
type recordingDiagnostics struct {
	unmatched []string
}

func (d *recordingDiagnostics) UnmatchedRegion(_, name string) {
	d.unmatched = append(d.unmatched, name)
}

func feature(id, name string) *geometry.Feature {
	return &geometry.Feature{ID: id, Properties: map[string]any{"name": name}}
}
