// Package region indexes dataset rows by region name and resolves names
// supplied by the geometry against them.
package region

import (
	"math"
	"strconv"
	"strings"
)

// DefaultKeyColumn is the dataset column holding the region name.
const DefaultKeyColumn = "Provincie"

// Value is a metric cell. Valid is false for empty or non-numeric cells.
type Value struct {
	Number float64
	Valid  bool
}

// Missing is the zero Value.
var Missing = Value{}

// Float returns the number, or NaN when the value is missing.
func (v Value) Float() float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Number
}

// ParseValue converts a raw cell into a Value. Empty, non-numeric, NaN and
// infinite cells are missing.
func ParseValue(raw string) Value {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Missing
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return Missing
	}
	return Value{Number: f, Valid: true}
}

// Record is one dataset row keyed by region.
type Record struct {
	RawKey        string
	NormalizedKey string
	Metrics       map[string]Value
}

// Value returns the value of metric, or Missing.
func (r *Record) Value(metric string) Value {
	if r == nil {
		return Missing
	}
	return r.Metrics[metric]
}
