package overlay

import (
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/provmap/internal/geometry"
)

// DefaultOpacity is the opacity used until the slider is first moved.
const DefaultOpacity = 0.65

// Sentinel errors.
var (
	ErrUnknownOverlay = eris.New("overlay: unknown overlay")
	ErrNoBounds       = eris.New("overlay: no bounds available")
)

// Manager owns the set of active overlays. It is not safe for concurrent
// use; the owning session serialises access.
type Manager struct {
	display   Display
	overlays  []Overlay
	byID      map[string]int
	reference *geometry.Bounds
	opacity   float64
	active    map[string]*Layer
	order     []string
}

// NewManager creates a Manager drawing onto display. An opacity outside
// [0,1] is clamped.
func NewManager(display Display, opacity float64) *Manager {
	return &Manager{
		display: display,
		byID:    make(map[string]int),
		opacity: clamp(opacity),
		active:  make(map[string]*Layer),
	}
}

// SetOverlays replaces the available overlays. Invalid and duplicate
// entries are skipped. Active layers whose overlay disappeared are removed.
func (m *Manager) SetOverlays(list []Overlay) {
	m.overlays = m.overlays[:0]
	m.byID = make(map[string]int, len(list))
	for _, o := range list {
		if err := o.Validate(); err != nil {
			zap.L().Warn("overlay: skipping index entry", zap.Error(err))
			continue
		}
		if _, dup := m.byID[o.ID]; dup {
			zap.L().Warn("overlay: skipping duplicate index entry", zap.String("overlay", o.ID))
			continue
		}
		m.byID[o.ID] = len(m.overlays)
		m.overlays = append(m.overlays, o)
	}

	for _, id := range append([]string(nil), m.order...) {
		if _, ok := m.byID[id]; !ok {
			m.disable(id)
		}
	}
}

// SetReferenceBounds sets the fallback bounds for overlays that declare
// none: the union bounds of the loaded geometry.
func (m *Manager) SetReferenceBounds(b geometry.Bounds) {
	m.reference = &b
}

// Overlays returns the available overlays in index order.
func (m *Manager) Overlays() []Overlay {
	out := make([]Overlay, len(m.overlays))
	copy(out, m.overlays)
	return out
}

// Toggle enables or disables overlay id. Enabling an active overlay or
// disabling an inactive one does nothing. The returned layer is nil after
// disabling.
func (m *Manager) Toggle(id string, enabled bool) (*Layer, error) {
	i, ok := m.byID[id]
	if !ok {
		return nil, eris.Wrapf(ErrUnknownOverlay, "overlay: %q", id)
	}
	if !enabled {
		m.disable(id)
		return nil, nil
	}
	if l, ok := m.active[id]; ok {
		return l, nil
	}
	return m.enable(m.overlays[i])
}

func (m *Manager) enable(o Overlay) (*Layer, error) {
	var bounds geometry.Bounds
	switch {
	case o.Bounds != nil:
		bounds = *o.Bounds
	case m.reference != nil:
		bounds = *m.reference
	default:
		return nil, eris.Wrapf(ErrNoBounds, "overlay: %q", o.ID)
	}

	l := &Layer{
		InstanceID: uuid.NewString(),
		OverlayID:  o.ID,
		Title:      o.Title,
		ImageURL:   o.ImageURL,
		Bounds:     bounds,
		Opacity:    m.opacity,
	}
	m.display.AddRaster(l)
	m.display.BringToFront(l.InstanceID)
	m.display.SetRasterOpacity(l.InstanceID, m.opacity)

	m.active[o.ID] = l
	m.order = append(m.order, o.ID)

	zap.L().Debug("overlay: enabled",
		zap.String("overlay", o.ID),
		zap.String("instance", l.InstanceID),
		zap.Float64("opacity", m.opacity),
	)
	return l, nil
}

func (m *Manager) disable(id string) {
	l, ok := m.active[id]
	if !ok {
		return
	}
	m.display.RemoveRaster(l.InstanceID)
	delete(m.active, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	zap.L().Debug("overlay: disabled", zap.String("overlay", id), zap.String("instance", l.InstanceID))
}

// SetOpacity sets the shared opacity, clamped to [0,1], applies it to every
// active layer and remembers it for layers enabled later.
func (m *Manager) SetOpacity(opacity float64) float64 {
	m.opacity = clamp(opacity)
	for _, id := range m.order {
		l := m.active[id]
		l.Opacity = m.opacity
		m.display.SetRasterOpacity(l.InstanceID, m.opacity)
	}
	return m.opacity
}

// Opacity returns the last-set opacity.
func (m *Manager) Opacity() float64 {
	return m.opacity
}

// IsActive reports whether overlay id is enabled.
func (m *Manager) IsActive(id string) bool {
	_, ok := m.active[id]
	return ok
}

// Active returns the live layers in activation order.
func (m *Manager) Active() []*Layer {
	out := make([]*Layer, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.active[id])
	}
	return out
}

func clamp(v float64) float64 {
	switch {
	case v != v: // NaN
		return DefaultOpacity
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
