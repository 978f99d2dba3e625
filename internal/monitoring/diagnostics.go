package monitoring

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// UnmatchedRegion is a feature that found no dataset row.
type UnmatchedRegion struct {
	FeatureID string    `json:"feature_id"`
	Name      string    `json:"name"`
	Seen      int       `json:"seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// AssetStatus is the outcome of the most recent load of one asset.
type AssetStatus struct {
	Asset    string    `json:"asset"`
	Location string    `json:"location"`
	OK       bool      `json:"ok"`
	Error    string    `json:"error,omitempty"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Report is a point-in-time view of join health.
type Report struct {
	Unmatched      []UnmatchedRegion `json:"unmatched"`
	DatasetRows    int               `json:"dataset_rows"`
	DroppedRows    int               `json:"dropped_rows"`
	DuplicateRows  int               `json:"duplicate_rows"`
	MissingMetrics []string          `json:"missing_metrics"`
	Assets         []AssetStatus     `json:"assets"`
	CollectedAt    time.Time         `json:"collected_at"`
}

// Diagnostics collects join problems. Each unmatched feature is logged once;
// later reports only bump its counters. Safe for concurrent use.
type Diagnostics struct {
	metrics *Metrics
	now     func() time.Time

	mu        sync.Mutex
	unmatched map[string]*UnmatchedRegion
	rows      int
	dropped   int
	dupes     int
	missing   []string
	assets    map[string]AssetStatus
}

// NewDiagnostics returns Diagnostics feeding m. m may be nil.
func NewDiagnostics(m *Metrics) *Diagnostics {
	return &Diagnostics{
		metrics:   m,
		now:       time.Now,
		unmatched: make(map[string]*UnmatchedRegion),
		assets:    make(map[string]AssetStatus),
	}
}

// UnmatchedRegion records a feature rendered without a dataset row.
func (d *Diagnostics) UnmatchedRegion(featureID, name string) {
	d.mu.Lock()
	u, seen := d.unmatched[featureID]
	if !seen {
		u = &UnmatchedRegion{FeatureID: featureID}
		d.unmatched[featureID] = u
	}
	u.Name = name
	u.Seen++
	u.LastSeen = d.now().UTC()
	d.mu.Unlock()

	if seen {
		return
	}
	zap.L().Warn("monitoring: region has no dataset row",
		zap.String("feature", featureID),
		zap.String("region", name),
	)
	if d.metrics != nil {
		d.metrics.UnmatchedRegions.Inc()
	}
}

// RecordDataset stores the row statistics of a freshly built index.
func (d *Diagnostics) RecordDataset(rows, dropped, duplicates int) {
	d.mu.Lock()
	d.rows, d.dropped, d.dupes = rows, dropped, duplicates
	d.mu.Unlock()

	if dropped > 0 || duplicates > 0 {
		zap.L().Info("monitoring: dataset rows skipped or replaced",
			zap.Int("rows", rows),
			zap.Int("dropped", dropped),
			zap.Int("duplicates", duplicates),
		)
	}
	if d.metrics != nil {
		d.metrics.DatasetRows.Set(float64(rows))
		d.metrics.DroppedRows.Set(float64(dropped))
	}
}

// RecordMissingMetrics stores the group metrics absent from the dataset
// header. Regions are drawn as no-data while such a metric is selected.
func (d *Diagnostics) RecordMissingMetrics(keys []string) {
	missing := append([]string(nil), keys...)
	sort.Strings(missing)
	d.mu.Lock()
	d.missing = missing
	d.mu.Unlock()

	if len(missing) > 0 {
		zap.L().Warn("monitoring: group metrics missing from dataset",
			zap.Strings("metrics", missing),
		)
	}
}

// RecordLoad stores the outcome of loading asset from location.
func (d *Diagnostics) RecordLoad(asset, location string, err error) {
	st := AssetStatus{Asset: asset, Location: location, OK: err == nil, LoadedAt: d.now().UTC()}
	if err != nil {
		st.Error = err.Error()
	}
	d.mu.Lock()
	d.assets[asset] = st
	d.mu.Unlock()

	if d.metrics != nil {
		d.metrics.ObserveLoad(asset, err)
	}
}

// Reset forgets unmatched regions, used when new geometry is loaded.
func (d *Diagnostics) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.unmatched = make(map[string]*UnmatchedRegion)
}

// Report returns a snapshot sorted by feature id and asset name.
func (d *Diagnostics) Report() Report {
	d.mu.Lock()
	defer d.mu.Unlock()

	r := Report{
		Unmatched:      make([]UnmatchedRegion, 0, len(d.unmatched)),
		DatasetRows:    d.rows,
		DroppedRows:    d.dropped,
		DuplicateRows:  d.dupes,
		MissingMetrics: append([]string{}, d.missing...),
		Assets:         make([]AssetStatus, 0, len(d.assets)),
		CollectedAt:    d.now().UTC(),
	}
	for _, u := range d.unmatched {
		r.Unmatched = append(r.Unmatched, *u)
	}
	sort.Slice(r.Unmatched, func(i, j int) bool { return r.Unmatched[i].FeatureID < r.Unmatched[j].FeatureID })
	for _, a := range d.assets {
		r.Assets = append(r.Assets, a)
	}
	sort.Slice(r.Assets, func(i, j int) bool { return r.Assets[i].Asset < r.Assets[j].Asset })
	return r
}
