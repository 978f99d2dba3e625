// Package overlay manages the toggleable raster layers drawn above the
// choropleth.
package overlay

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/provmap/internal/geometry"
)

// Overlay is an entry of the overlay index.
type Overlay struct {
	ID       string           `json:"id"`
	Title    string           `json:"title"`
	ImageURL string           `json:"url"`
	Bounds   *geometry.Bounds `json:"bounds,omitempty"`
}

// UnmarshalJSON accepts the image location under "url" or "imageUrl".
func (o *Overlay) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID       string           `json:"id"`
		Title    string           `json:"title"`
		URL      string           `json:"url"`
		ImageURL string           `json:"imageUrl"`
		Bounds   *geometry.Bounds `json:"bounds"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return eris.Wrap(err, "overlay: decode entry")
	}
	*o = Overlay{
		ID:       strings.TrimSpace(raw.ID),
		Title:    raw.Title,
		ImageURL: raw.URL,
		Bounds:   raw.Bounds,
	}
	if o.ImageURL == "" {
		o.ImageURL = raw.ImageURL
	}
	if o.Title == "" {
		o.Title = o.ID
	}
	return nil
}

// Validate checks the fields every overlay needs.
func (o Overlay) Validate() error {
	if o.ID == "" {
		return eris.New("overlay: missing id")
	}
	if o.ImageURL == "" {
		return eris.Errorf("overlay: %q has no image url", o.ID)
	}
	return nil
}

// Layer is one live raster layer. Every activation creates a new Layer with
// a new InstanceID.
type Layer struct {
	InstanceID string          `json:"instance_id"`
	OverlayID  string          `json:"overlay_id"`
	Title      string          `json:"title"`
	ImageURL   string          `json:"url"`
	Bounds     geometry.Bounds `json:"bounds"`
	Opacity    float64         `json:"opacity"`
}

// Display is the map side of the overlay lifecycle. The Manager is its only
// caller for raster layers.
type Display interface {
	AddRaster(l *Layer)
	RemoveRaster(instanceID string)
	BringToFront(instanceID string)
	SetRasterOpacity(instanceID string, opacity float64)
}
