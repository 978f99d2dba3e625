// Package session owns the state of one map session: the region index, the
// metric catalog, the rendered map and its overlays. Every mutation is
// serialised by the session mutex, so UI events apply one at a time and
// renders never overlap.
package session

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/provmap/internal/alias"
	"github.com/sells-group/provmap/internal/catalog"
	"github.com/sells-group/provmap/internal/choropleth"
	"github.com/sells-group/provmap/internal/colorscale"
	"github.com/sells-group/provmap/internal/config"
	"github.com/sells-group/provmap/internal/fetcher"
	"github.com/sells-group/provmap/internal/geometry"
	"github.com/sells-group/provmap/internal/mapview"
	"github.com/sells-group/provmap/internal/monitoring"
	"github.com/sells-group/provmap/internal/overlay"
	"github.com/sells-group/provmap/internal/region"
)

// Sentinel errors.
var (
	ErrNotLoaded     = eris.New("session: not loaded")
	ErrUnknownGroup  = eris.New("session: unknown group")
	ErrUnknownMetric = eris.New("session: metric not in selected group")
)

// Session is one map session.
type Session struct {
	cfg     *config.Config
	src     Source
	metrics *monitoring.Metrics
	diag    *monitoring.Diagnostics
	log     *zap.Logger

	scale  colorscale.Scale
	stroke choropleth.Stroke
	format *choropleth.Formatter

	mu       sync.Mutex
	tmpDir   string
	index    *region.Index
	catalog  *catalog.Catalog
	renderer *choropleth.Renderer
	view     *mapview.Map
	overlays *overlay.Manager
	outcome  overlay.Outcome
	summary  choropleth.Summary
	loaded   bool
	loadErr  *LoadError
}

// New creates an unloaded session. metrics may be nil.
func New(cfg *config.Config, src Source, metrics *monitoring.Metrics) (*Session, error) {
	scale, stroke, err := styleFromConfig(cfg.Style)
	if err != nil {
		return nil, err
	}
	view := mapview.New()
	return &Session{
		cfg:      cfg,
		src:      src,
		metrics:  metrics,
		diag:     monitoring.NewDiagnostics(metrics),
		log:      zap.L().With(zap.String("component", "session")),
		scale:    scale,
		stroke:   stroke,
		format:   choropleth.NewFormatter(cfg.Display.Locale, cfg.Display.Dash),
		catalog:  catalog.New(),
		view:     view,
		overlays: overlay.NewManager(view, cfg.Overlay.DefaultOpacity),
		outcome:  overlay.Outcome{Status: overlay.StatusEmpty, Message: overlay.MessageEmpty},
	}, nil
}

func styleFromConfig(c config.StyleConfig) (colorscale.Scale, choropleth.Stroke, error) {
	scale := colorscale.Default()
	stroke := choropleth.DefaultStroke
	for _, p := range []struct {
		hex string
		dst *colorscale.Color
	}{
		{c.Low, &scale.Low},
		{c.High, &scale.High},
		{c.NoData, &scale.NoData},
		{c.Stroke, &stroke.Color},
	} {
		if p.hex == "" {
			continue
		}
		col, err := colorscale.ParseHex(p.hex)
		if err != nil {
			return scale, stroke, eris.Wrap(err, "session: style color")
		}
		*p.dst = col
	}
	if c.Weight > 0 {
		stroke.Weight = c.Weight
	}
	if c.FillOpacity > 0 {
		stroke.FillOpacity = c.FillOpacity
	}
	if c.Opacity > 0 {
		stroke.Opacity = c.Opacity
	}
	return scale, stroke, nil
}

// Load fetches the dataset with its aliases, the metric groups and the
// geometry concurrently, each exactly once. Only when all of them resolve
// are they bound together and the map rendered. A failed load leaves the
// previous state in place and is reported as a *LoadError.
func (s *Session) Load(ctx context.Context) error {
	start := time.Now()
	dir, err := s.ensureTmpDir()
	if err != nil {
		return err
	}

	var (
		table   *fetcher.Table
		aliases *alias.Table
		groups  []catalog.Group
		coll    *geometry.Collection
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if aliases, err = s.loadAliases(gctx, s.cfg.Data.Aliases); err != nil {
			return s.loadFailed(AssetAliases, s.cfg.Data.Aliases, err)
		}
		if table, err = s.loadDataset(gctx, s.cfg.Data.Dataset, dir); err != nil {
			return s.loadFailed(AssetDataset, s.cfg.Data.Dataset, err)
		}
		s.diag.RecordLoad(AssetDataset, s.cfg.Data.Dataset, nil)
		return nil
	})
	g.Go(func() error {
		var err error
		if groups, err = s.loadGroups(gctx, s.cfg.Data.Groups); err != nil {
			return s.loadFailed(AssetGroups, s.cfg.Data.Groups, err)
		}
		s.diag.RecordLoad(AssetGroups, s.cfg.Data.Groups, nil)
		return nil
	})
	g.Go(func() error {
		var err error
		if coll, err = s.loadGeometry(gctx, s.cfg.Data.Geometry, dir); err != nil {
			return s.loadFailed(AssetGeometry, s.cfg.Data.Geometry, err)
		}
		s.diag.RecordLoad(AssetGeometry, s.cfg.Data.Geometry, nil)
		return nil
	})

	if err := g.Wait(); err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			s.mu.Lock()
			s.loadErr = le
			s.mu.Unlock()
		}
		s.log.Error("load failed", zap.Error(err))
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := region.Build(table.Header, table.Rows, region.Options{
		KeyColumn: s.cfg.Data.KeyColumn,
		Aliases:   aliases,
	})
	s.diag.RecordDataset(idx.Len(), idx.Dropped(), idx.Duplicates())
	s.diag.RecordMissingMetrics(missingMetrics(groups, idx.Columns()))

	s.view.SetFeatures(coll)
	s.diag.Reset()
	if b, ok := s.view.Bounds(); ok {
		s.overlays.SetReferenceBounds(b)
	}

	cat := catalog.New()
	s.index = idx
	s.catalog = cat
	s.renderer = choropleth.NewRenderer(idx, cat, choropleth.Options{
		Scale:          &s.scale,
		Stroke:         &s.stroke,
		NameProperties: s.cfg.Data.NameProperties,
		Formatter:      s.format,
		Diagnostics:    s.diag,
	})
	s.loaded = true
	s.loadErr = nil
	cat.Subscribe(func(catalog.Selection) { s.render() })
	cat.LoadGroups(groups, s.cfg.Data.Group)

	s.log.Info("session loaded",
		zap.Int("rows", idx.Len()),
		zap.Int("groups", len(cat.Groups())),
		zap.Int("features", coll.Len()),
		zap.Int("aliases", aliases.Len()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (s *Session) loadFailed(asset, location string, err error) error {
	s.diag.RecordLoad(asset, location, err)
	return &LoadError{Asset: asset, Location: location, Err: eris.Wrapf(err, "session: load %s", asset)}
}

// missingMetrics returns the group metrics that are not dataset columns.
func missingMetrics(groups []catalog.Group, columns []string) []string {
	have := make(map[string]bool, len(columns))
	for _, c := range columns {
		have[c] = true
	}
	var out []string
	for _, g := range groups {
		for _, m := range g.Metrics {
			if !have[m] {
				have[m] = true
				out = append(out, m)
			}
		}
	}
	return out
}

func (s *Session) ensureTmpDir() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tmpDir != "" {
		return s.tmpDir, nil
	}
	dir, err := os.MkdirTemp("", "provmap-")
	if err != nil {
		return "", eris.Wrap(err, "session: create temp dir")
	}
	s.tmpDir = dir
	return dir, nil
}

// Close removes downloaded assets.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tmpDir == "" {
		return nil
	}
	dir := s.tmpDir
	s.tmpDir = ""
	if err := os.RemoveAll(dir); err != nil {
		return eris.Wrap(err, "session: remove temp dir")
	}
	return nil
}

// render runs with s.mu held.
func (s *Session) render() {
	start := time.Now()
	sum := s.renderer.Render(s.view)
	s.summary = sum
	if sum.Skipped {
		return
	}
	if s.metrics != nil {
		s.metrics.ObserveRender(start, sum.Matched)
	}
	s.log.Debug("rendered",
		zap.String("metric", sum.Metric),
		zap.Int("matched", sum.Matched),
		zap.Int("unmatched", sum.Unmatched),
	)
}

// LoadOverlays fetches the optional overlay index. It never fails; the
// outcome carries the empty-state message when there is nothing to show.
func (s *Session) LoadOverlays(ctx context.Context) overlay.Outcome {
	out := overlay.LoadIndex(ctx, s.src.Open, s.cfg.Data.Overlays)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.overlays.SetOverlays(out.Overlays)
	s.outcome = out
	if s.cfg.Data.Overlays != "" {
		s.diag.RecordLoad(AssetOverlays, s.cfg.Data.Overlays, out.Err)
	}
	return out
}

// SelectGroup selects a group and cascades to its first metric. An unknown
// id leaves the selection unchanged and returns ErrUnknownGroup.
func (s *Session) SelectGroup(id string) (catalog.Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return catalog.Selection{}, ErrNotLoaded
	}
	if !s.catalog.SelectGroup(id) {
		return s.catalog.Selection(), eris.Wrapf(ErrUnknownGroup, "session: group %q", id)
	}
	return s.catalog.Selection(), nil
}

// SelectMetric selects a metric of the current group.
func (s *Session) SelectMetric(key string) (catalog.Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return catalog.Selection{}, ErrNotLoaded
	}
	if !s.catalog.SelectMetric(key) {
		return s.catalog.Selection(), eris.Wrapf(ErrUnknownMetric, "session: metric %q", key)
	}
	return s.catalog.Selection(), nil
}

// ToggleOverlay enables or disables an overlay. It returns a snapshot of
// the live layer, or nil after disabling.
func (s *Session) ToggleOverlay(id string, enabled bool) (*overlay.Layer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.overlays.Toggle(id, enabled)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ObserveToggle(enabled)
	}
	if l == nil {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

// SetOverlayOpacity sets the opacity of every current and future overlay
// and returns the clamped value.
func (s *Session) SetOverlayOpacity(opacity float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlays.SetOpacity(opacity)
}
