// Package catalog holds the metric groups and the cascading group -> metric
// selection that drives re-rendering.
//
// A Catalog is not safe for concurrent use; the owning session serialises
// access.
package catalog

import (
	"go.uber.org/zap"
)

// State is the selection state of a Catalog.
type State int

// Selection states.
const (
	Uninitialized State = iota
	GroupSelected
	MetricSelected
)

func (s State) String() string {
	switch s {
	case GroupSelected:
		return "group_selected"
	case MetricSelected:
		return "metric_selected"
	default:
		return "uninitialized"
	}
}

// Group is a titled, ordered list of metric keys.
type Group struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Metrics []string `json:"metrics"`
}

// Has reports whether key is one of the group's metrics.
func (g Group) Has(key string) bool {
	for _, m := range g.Metrics {
		if m == key {
			return true
		}
	}
	return false
}

// Selection is the current group and metric. MetricKey is empty when the
// selected group has no metrics.
type Selection struct {
	GroupID   string `json:"group"`
	MetricKey string `json:"metric"`
}

// HasMetric reports whether a metric is selected.
func (s Selection) HasMetric() bool {
	return s.MetricKey != ""
}

// Catalog owns the group structure and the current selection.
type Catalog struct {
	groups    []Group
	byID      map[string]int
	sel       Selection
	state     State
	listeners []func(Selection)
}

// New returns an uninitialized Catalog.
func New() *Catalog {
	return &Catalog{byID: make(map[string]int)}
}

// Subscribe registers fn to be called synchronously after every successful
// selection change.
func (c *Catalog) Subscribe(fn func(Selection)) {
	c.listeners = append(c.listeners, fn)
}

// LoadGroups replaces the available groups, keeping their order, and
// selects preselected when it names a loaded group, otherwise the first
// group. Later groups reusing an id are ignored.
func (c *Catalog) LoadGroups(groups []Group, preselected string) {
	c.groups = c.groups[:0]
	c.byID = make(map[string]int, len(groups))
	for _, g := range groups {
		if _, dup := c.byID[g.ID]; dup {
			zap.L().Warn("catalog: duplicate group ignored", zap.String("group", g.ID))
			continue
		}
		if g.Title == "" {
			g.Title = g.ID
		}
		c.byID[g.ID] = len(c.groups)
		c.groups = append(c.groups, g)
	}

	if len(c.groups) == 0 {
		c.sel = Selection{}
		c.state = Uninitialized
		return
	}

	id := c.groups[0].ID
	if _, ok := c.byID[preselected]; ok {
		id = preselected
	}
	c.selectGroup(id)
}

// SelectGroup selects group id and resets the metric to the group's first
// metric. An unknown id leaves the selection untouched and returns false.
func (c *Catalog) SelectGroup(id string) bool {
	if _, ok := c.byID[id]; !ok {
		return false
	}
	c.selectGroup(id)
	return true
}

func (c *Catalog) selectGroup(id string) {
	g := c.groups[c.byID[id]]
	c.sel = Selection{GroupID: id}
	c.state = GroupSelected
	if len(g.Metrics) > 0 {
		c.sel.MetricKey = g.Metrics[0]
		c.state = MetricSelected
	}
	c.notify()
}

// SelectMetric selects key within the current group. Keys outside the
// current group are rejected and leave the selection untouched.
func (c *Catalog) SelectMetric(key string) bool {
	g, ok := c.CurrentGroup()
	if !ok || !g.Has(key) {
		return false
	}
	c.sel.MetricKey = key
	c.state = MetricSelected
	c.notify()
	return true
}

func (c *Catalog) notify() {
	for _, fn := range c.listeners {
		fn(c.sel)
	}
}

// Selection returns the current selection.
func (c *Catalog) Selection() Selection {
	return c.sel
}

// State returns the current state.
func (c *Catalog) State() State {
	return c.state
}

// Groups returns the loaded groups in order.
func (c *Catalog) Groups() []Group {
	out := make([]Group, len(c.groups))
	copy(out, c.groups)
	return out
}

// Group returns the group with the given id.
func (c *Catalog) Group(id string) (Group, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Group{}, false
	}
	return c.groups[i], true
}

// CurrentGroup returns the selected group.
func (c *Catalog) CurrentGroup() (Group, bool) {
	return c.Group(c.sel.GroupID)
}
