// Package alias holds the static table of known region-name variants.
package alias

import (
	"io"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/provmap/internal/normalize"
)

// ErrCycle is returned when the declared entries form a cycle.
var ErrCycle = eris.New("alias: entries form a cycle")

// Entry declares that From and To name the same region. Entries are
// directional: From is the variant, To the name it maps to.
type Entry struct {
	From string `yaml:"from" json:"from" mapstructure:"from"`
	To   string `yaml:"to" json:"to" mapstructure:"to"`
}

// Table resolves normalized names through declared aliases. A Table is
// immutable once built.
type Table struct {
	forward  map[string]string
	backward map[string][]string
	entries  []Entry
}

// New builds a Table from entries. Both sides are normalized. Entries whose
// sides normalize to the same key are ignored. A second entry for an
// already mapped source is an error, as is any cycle.
func New(entries []Entry) (*Table, error) {
	t := &Table{
		forward:  make(map[string]string, len(entries)),
		backward: make(map[string][]string, len(entries)),
	}

	for _, e := range entries {
		from := normalize.Name(e.From)
		to := normalize.Name(e.To)
		if from == "" || to == "" {
			return nil, eris.Errorf("alias: entry %q -> %q has an empty side", e.From, e.To)
		}
		if from == to {
			continue
		}
		if prev, ok := t.forward[from]; ok && prev != to {
			return nil, eris.Errorf("alias: %q maps to both %q and %q", from, prev, to)
		}
		t.forward[from] = to
	}

	if err := t.checkCycles(); err != nil {
		return nil, err
	}

	sources := make([]string, 0, len(t.forward))
	for from := range t.forward {
		sources = append(sources, from)
	}
	sort.Strings(sources)
	for _, from := range sources {
		to := t.forward[from]
		t.backward[to] = append(t.backward[to], from)
		t.entries = append(t.entries, Entry{From: from, To: to})
	}

	return t, nil
}

// Load decodes a YAML (or JSON) list of entries and builds a Table.
func Load(r io.Reader) (*Table, error) {
	var entries []Entry
	if err := yaml.NewDecoder(r).Decode(&entries); err != nil {
		if err == io.EOF {
			return New(nil)
		}
		return nil, eris.Wrap(err, "alias: decode entries")
	}
	return New(entries)
}

func (t *Table) checkCycles() error {
	for start := range t.forward {
		seen := map[string]bool{start: true}
		cur := start
		for {
			next, ok := t.forward[cur]
			if !ok {
				break
			}
			if seen[next] {
				return eris.Wrapf(ErrCycle, "alias: cycle through %q", start)
			}
			seen[next] = true
			cur = next
		}
	}
	return nil
}

// Forward returns the target of the entry whose source is name.
// name must already be normalized.
func (t *Table) Forward(name string) (string, bool) {
	if t == nil {
		return "", false
	}
	to, ok := t.forward[name]
	return to, ok
}

// Backward returns the sources of every entry whose target is name, in
// lexical order. name must already be normalized.
func (t *Table) Backward(name string) []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.backward[name]...)
}

// Entries returns the normalized entries sorted by source.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.forward)
}
