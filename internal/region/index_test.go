package region

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/provmap/internal/alias"
)

func testAliases(t *testing.T) *alias.Table {
	t.Helper()
	tbl, err := alias.New([]alias.Entry{
		{From: "Fryslân", To: "Friesland"},
		{From: "Brabant", To: "Noord-Brabant"},
	})
	require.NoError(t, err)
	return tbl
}

func testIndex(t *testing.T) *Index {
	t.Helper()
	header := []string{"Provincie", "pop__density", "r_strategie__reuse"}
	rows := [][]string{
		{"Fryslân", "200", "3"},
		{"Noord-Brabant", "510", ""},
		{"Utrecht", "1100", "n/a"},
		{"", "5", "5"},
		{"  ", "6", "6"},
	}
	return Build(header, rows, Options{Aliases: testAliases(t)})
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		raw   string
		want  float64
		valid bool
	}{
		{"200", 200, true},
		{" 1.5 ", 1.5, true},
		{"-3", -3, true},
		{"", 0, false},
		{"abc", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
	}
	for _, tt := range tests {
		v := ParseValue(tt.raw)
		assert.Equal(t, tt.valid, v.Valid, "raw %q", tt.raw)
		if tt.valid {
			assert.InDelta(t, tt.want, v.Number, 1e-9)
		}
	}
}

func TestValue_Float(t *testing.T) {
	assert.True(t, math.IsNaN(Missing.Float()))
	assert.Equal(t, 4.0, Value{Number: 4, Valid: true}.Float())
}

func TestBuild_DropsBlankKeys(t *testing.T) {
	idx := testIndex(t)
	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, 2, idx.Dropped())
	assert.Equal(t, []string{"pop__density", "r_strategie__reuse"}, idx.Columns())
}

func TestBuild_MissingKeyColumn(t *testing.T) {
	idx := Build([]string{"Name", "x"}, [][]string{{"a", "1"}}, Options{})
	assert.Equal(t, 0, idx.Len())
	assert.Equal(t, 1, idx.Dropped())
}

func TestBuild_ShortRowsAndBOM(t *testing.T) {
	idx := Build([]string{"\ufeffProvincie", "a", "b"}, [][]string{{"Zeeland", "1"}}, Options{})
	rec, m := idx.Lookup("Zeeland")
	require.NotNil(t, rec)
	assert.Equal(t, MatchRaw, m)
	assert.True(t, rec.Value("a").Valid)
	assert.False(t, rec.Value("b").Valid)
}

func TestBuild_DuplicateRawKeyReplaces(t *testing.T) {
	idx := Build([]string{"Provincie", "a"}, [][]string{{"Zeeland", "1"}, {"Zeeland", "2"}}, Options{})
	assert.Equal(t, 1, idx.Len())
	assert.Equal(t, 1, idx.Duplicates())
	rec, _ := idx.Lookup("Zeeland")
	assert.Equal(t, 2.0, rec.Value("a").Number)
}

func TestBuild_CustomKeyColumn(t *testing.T) {
	idx := Build([]string{"naam", "a"}, [][]string{{"Zeeland", "1"}}, Options{KeyColumn: "naam"})
	assert.Equal(t, 1, idx.Len())
}

func TestLookup_ResolutionOrder(t *testing.T) {
	idx := testIndex(t)

	tests := []struct {
		name    string
		query   string
		wantKey string
		want    Match
	}{
		{"raw exact", "Fryslân", "Fryslân", MatchRaw},
		{"raw exact trimmed", " Utrecht ", "Utrecht", MatchRaw},
		{"normalized", "fryslan", "Fryslân", MatchNormalized},
		{"normalized hyphen", "noord brabant", "Noord-Brabant", MatchNormalized},
		{"forward alias", "Brabant", "Noord-Brabant", MatchAliasForward},
		{"backward alias", "Friesland", "Fryslân", MatchAliasBackward},
		{"unmatched", "Atlantis", "", MatchNone},
		{"blank", "   ", "", MatchNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, m := idx.Lookup(tt.query)
			assert.Equal(t, tt.want, m)
			if tt.wantKey == "" {
				assert.Nil(t, rec)
				return
			}
			require.NotNil(t, rec)
			assert.Equal(t, tt.wantKey, rec.RawKey)
		})
	}
}

func TestLookup_AliasSymmetry(t *testing.T) {
	idx := testIndex(t)
	a, _ := idx.Lookup("Fryslân")
	b, _ := idx.Lookup("Friesland")
	require.NotNil(t, a)
	assert.Same(t, a, b)
}

func TestLookup_ForwardAliasFromDatasetSide(t *testing.T) {
	// Dataset uses the alias target, geometry the source.
	idx := Build([]string{"Provincie", "x"}, [][]string{{"Friesland", "1"}}, Options{Aliases: testAliases(t)})
	rec, m := idx.Lookup("Fryslân")
	require.NotNil(t, rec)
	assert.Equal(t, MatchAliasForward, m)
}

func TestLookup_BackwardAliasTriesEverySource(t *testing.T) {
	aliases, err := alias.New([]alias.Entry{
		{From: "Brabant", To: "Noord-Brabant"},
		{From: "NBr", To: "Noord-Brabant"},
	})
	require.NoError(t, err)

	idx := Build([]string{"Provincie", "x"}, [][]string{{"NBr", "1"}}, Options{Aliases: aliases})
	rec, m := idx.Lookup("Noord-Brabant")
	require.NotNil(t, rec)
	assert.Equal(t, MatchAliasBackward, m)
	assert.Equal(t, "NBr", rec.RawKey)

	// With both variants present the lexically smallest wins.
	idx = Build([]string{"Provincie", "x"}, [][]string{{"NBr", "1"}, {"Brabant", "2"}}, Options{Aliases: aliases})
	rec, _ = idx.Lookup("Noord-Brabant")
	require.NotNil(t, rec)
	assert.Equal(t, "Brabant", rec.RawKey)
}

func TestLookup_WithoutAliases(t *testing.T) {
	idx := Build([]string{"Provincie", "x"}, [][]string{{"Fryslân", "1"}}, Options{})
	rec, m := idx.Lookup("Friesland")
	assert.Nil(t, rec)
	assert.Equal(t, MatchNone, m)
}

func TestValues(t *testing.T) {
	idx := testIndex(t)
	assert.Equal(t, []float64{200, 510, 1100}, idx.Values("pop__density"))
	assert.Equal(t, []float64{3}, idx.Values("r_strategie__reuse"))
	assert.Empty(t, idx.Values("unknown"))
}

func TestMatchString(t *testing.T) {
	assert.Equal(t, "alias_backward", MatchAliasBackward.String())
	assert.Equal(t, "none", MatchNone.String())
}

func TestNilIndex(t *testing.T) {
	var idx *Index
	rec, m := idx.Lookup("x")
	assert.Nil(t, rec)
	assert.Equal(t, MatchNone, m)
	assert.Equal(t, 0, idx.Len())
	assert.Nil(t, idx.Values("x"))
}
