// Package choropleth binds region geometry to dataset rows and styles each
// region by the selected metric.
package choropleth

import (
	"math"

	"go.uber.org/zap"

	"github.com/sells-group/provmap/internal/catalog"
	"github.com/sells-group/provmap/internal/colorscale"
	"github.com/sells-group/provmap/internal/geometry"
	"github.com/sells-group/provmap/internal/region"
)

// Style is the presentation of one region, named after the Leaflet path
// options the shell applies verbatim.
type Style struct {
	FillColor   colorscale.Color `json:"fillColor"`
	Color       colorscale.Color `json:"color"`
	Weight      float64          `json:"weight"`
	FillOpacity float64          `json:"fillOpacity"`
	Opacity     float64          `json:"opacity"`
}

// Stroke is the fixed part of every region style.
type Stroke struct {
	Color       colorscale.Color
	Weight      float64
	Opacity     float64
	FillOpacity float64
}

// DefaultStroke is a thin grey-green outline over a mostly opaque fill.
var DefaultStroke = Stroke{
	Color:       colorscale.Color{R: 0x64, G: 0x76, B: 0x6e},
	Weight:      1,
	Opacity:     1,
	FillOpacity: 0.9,
}

// Style combines the stroke with a fill color.
func (s Stroke) Style(fill colorscale.Color) Style {
	return Style{
		FillColor:   fill,
		Color:       s.Color,
		Weight:      s.Weight,
		FillOpacity: s.FillOpacity,
		Opacity:     s.Opacity,
	}
}

// Surface is the displayed feature layer the renderer styles. The map owns
// the presentation state; the renderer only writes it.
type Surface interface {
	Features() []*geometry.Feature
	SetStyle(featureID string, s Style)
	BindPopup(featureID string, p *Popup)
	UnbindPopup(featureID string)
}

// Diagnostics receives regions that could not be joined to a dataset row.
type Diagnostics interface {
	UnmatchedRegion(featureID, name string)
}

// Options configures a Renderer. Zero fields take defaults.
type Options struct {
	Scale          *colorscale.Scale
	Stroke         *Stroke
	NameProperties []string
	Formatter      *Formatter
	Diagnostics    Diagnostics
}

// Renderer colors every feature of a Surface by the catalog's selected
// metric.
type Renderer struct {
	index   *region.Index
	catalog *catalog.Catalog
	scale   colorscale.Scale
	stroke  Stroke
	names   []string
	format  *Formatter
	diag    Diagnostics
}

// NewRenderer creates a Renderer reading from idx and cat.
func NewRenderer(idx *region.Index, cat *catalog.Catalog, opts Options) *Renderer {
	r := &Renderer{
		index:   idx,
		catalog: cat,
		scale:   colorscale.Default(),
		stroke:  DefaultStroke,
		names:   geometry.DefaultNameProperties,
		format:  opts.Formatter,
		diag:    opts.Diagnostics,
	}
	if opts.Scale != nil {
		r.scale = *opts.Scale
	}
	if opts.Stroke != nil {
		r.stroke = *opts.Stroke
	}
	if len(opts.NameProperties) > 0 {
		r.names = opts.NameProperties
	}
	if r.format == nil {
		r.format = NewFormatter("nl", DefaultDash)
	}
	if r.diag == nil {
		r.diag = logDiagnostics{}
	}
	return r
}

// Summary describes one render pass.
type Summary struct {
	Metric    string           `json:"metric"`
	Range     colorscale.Range `json:"range"`
	HasRange  bool             `json:"has_range"`
	Features  int              `json:"features"`
	Matched   int              `json:"matched"`
	Unmatched int              `json:"unmatched"`
	// Skipped is true when no metric was selected and nothing was touched.
	Skipped bool `json:"skipped"`
}

// Render restyles every feature of s. The metric range is recomputed from
// the index on every call. Unmatched features get the no-data fill, lose
// their popup and are reported to Diagnostics; they never stop the pass.
func (r *Renderer) Render(s Surface) Summary {
	sel := r.catalog.Selection()
	if !sel.HasMetric() {
		return Summary{Skipped: true}
	}

	sum := Summary{Metric: sel.MetricKey}
	sum.Range, sum.HasRange = colorscale.RangeOf(r.index.Values(sel.MetricKey))

	for _, f := range s.Features() {
		sum.Features++

		name := f.RegionName(r.names)
		rec, _ := r.index.Lookup(name)

		v := math.NaN()
		if rec != nil {
			v = rec.Value(sel.MetricKey).Float()
		}
		s.SetStyle(f.ID, r.stroke.Style(r.scale.ColorFor(v, sum.Range)))

		if rec == nil {
			sum.Unmatched++
			s.UnbindPopup(f.ID)
			r.diag.UnmatchedRegion(f.ID, name)
			continue
		}

		sum.Matched++
		s.BindPopup(f.ID, r.Popup(name, rec))
	}

	return sum
}

// Popup builds the grouped listing of every metric of rec.
func (r *Renderer) Popup(title string, rec *region.Record) *Popup {
	p := &Popup{Title: title}
	for _, g := range r.catalog.Groups() {
		sec := Section{Title: g.Title, Entries: make([]Entry, 0, len(g.Metrics))}
		for _, key := range g.Metrics {
			sec.Entries = append(sec.Entries, Entry{
				Key:   key,
				Label: PrettifyMetric(key),
				Value: r.format.Format(rec.Value(key)),
			})
		}
		p.Sections = append(p.Sections, sec)
	}
	return p
}

type logDiagnostics struct{}

func (logDiagnostics) UnmatchedRegion(featureID, name string) {
	zap.L().Warn("choropleth: no dataset row for region",
		zap.String("feature", featureID),
		zap.String("region", name),
	)
}
