package region

import (
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/provmap/internal/alias"
	"github.com/sells-group/provmap/internal/normalize"
)

// Match reports which resolution step found a record.
type Match int

// Resolution steps, in the order Lookup tries them.
const (
	MatchNone Match = iota
	MatchRaw
	MatchNormalized
	MatchAliasForward
	MatchAliasBackward
)

func (m Match) String() string {
	switch m {
	case MatchRaw:
		return "raw"
	case MatchNormalized:
		return "normalized"
	case MatchAliasForward:
		return "alias_forward"
	case MatchAliasBackward:
		return "alias_backward"
	default:
		return "none"
	}
}

// Options configures Build.
type Options struct {
	KeyColumn string       // default DefaultKeyColumn
	Aliases   *alias.Table // optional
}

// Index is the joined view of dataset rows. It is built once per dataset
// load and read-only afterwards.
type Index struct {
	records    []*Record
	byRaw      map[string]*Record
	byNorm     map[string]*Record
	columns    []string
	aliases    *alias.Table
	dropped    int
	duplicates int
}

// Build indexes rows by the key column. header names the columns of every
// row; all columns except the key column are metrics. Rows with a missing
// or blank key are dropped and counted.
func Build(header []string, rows [][]string, opts Options) *Index {
	if opts.KeyColumn == "" {
		opts.KeyColumn = DefaultKeyColumn
	}

	idx := &Index{
		byRaw:   make(map[string]*Record, len(rows)),
		byNorm:  make(map[string]*Record, len(rows)),
		aliases: opts.Aliases,
	}

	keyCol := -1
	for i, h := range header {
		h = cleanHeader(h)
		if h == opts.KeyColumn {
			keyCol = i
			continue
		}
		idx.columns = append(idx.columns, h)
	}

	if keyCol < 0 {
		zap.L().Warn("region: key column not found in header",
			zap.String("key_column", opts.KeyColumn),
			zap.Strings("header", header),
		)
		idx.dropped = len(rows)
		return idx
	}

	for _, row := range rows {
		if keyCol >= len(row) {
			idx.dropped++
			continue
		}
		raw := strings.TrimSpace(row[keyCol])
		if raw == "" {
			idx.dropped++
			continue
		}

		rec := &Record{
			RawKey:        raw,
			NormalizedKey: normalize.Name(raw),
			Metrics:       make(map[string]Value, len(header)-1),
		}
		for i, h := range header {
			if i == keyCol {
				continue
			}
			h = cleanHeader(h)
			if i < len(row) {
				rec.Metrics[h] = ParseValue(row[i])
			} else {
				rec.Metrics[h] = Missing
			}
		}

		if prev, ok := idx.byRaw[raw]; ok {
			idx.duplicates++
			idx.replace(prev, rec)
		} else {
			idx.records = append(idx.records, rec)
		}
		idx.byRaw[raw] = rec
		idx.byNorm[rec.NormalizedKey] = rec
	}

	return idx
}

// cleanHeader trims whitespace and a leading byte order mark.
func cleanHeader(h string) string {
	return strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
}

func (idx *Index) replace(prev, rec *Record) {
	for i, r := range idx.records {
		if r == prev {
			idx.records[i] = rec
			return
		}
	}
}

// Lookup resolves a raw or geometry-supplied name to a record, trying in
// order: raw exact match, normalized match, forward alias, backward alias.
func (idx *Index) Lookup(name string) (*Record, Match) {
	if idx == nil {
		return nil, MatchNone
	}

	trimmed := strings.TrimSpace(name)
	if rec, ok := idx.byRaw[trimmed]; ok {
		return rec, MatchRaw
	}

	key := normalize.Name(name)
	if key == "" {
		return nil, MatchNone
	}
	if rec, ok := idx.byNorm[key]; ok {
		return rec, MatchNormalized
	}

	if to, ok := idx.aliases.Forward(key); ok {
		if rec, ok := idx.byNorm[to]; ok {
			return rec, MatchAliasForward
		}
	}

	// Several variants may share a target; the first one present wins.
	for _, from := range idx.aliases.Backward(key) {
		if rec, ok := idx.byNorm[from]; ok {
			return rec, MatchAliasBackward
		}
	}

	return nil, MatchNone
}

// Values returns the present values of metric across all records, in
// dataset order.
func (idx *Index) Values(metric string) []float64 {
	if idx == nil {
		return nil
	}
	var out []float64
	for _, r := range idx.records {
		if v := r.Metrics[metric]; v.Valid {
			out = append(out, v.Number)
		}
	}
	return out
}

// Columns returns the metric column names in header order.
func (idx *Index) Columns() []string {
	if idx == nil {
		return nil
	}
	return append([]string(nil), idx.columns...)
}

// Len returns the number of indexed records.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.records)
}

// Dropped returns the number of rows excluded for a missing region name.
func (idx *Index) Dropped() int {
	if idx == nil {
		return 0
	}
	return idx.dropped
}

// Duplicates returns the number of rows that replaced an earlier row with
// the same raw key.
func (idx *Index) Duplicates() int {
	if idx == nil {
		return 0
	}
	return idx.duplicates
}
