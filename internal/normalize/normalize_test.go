package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "Utrecht", "utrecht"},
		{"diacritic", "Fryslân", "fryslan"},
		{"hyphen", "Noord-Brabant", "noord brabant"},
		{"surrounding space", "  Zeeland \t", "zeeland"},
		{"combined", " Noord-Holländ ", "noord holland"},
		{"multiple marks", "Équipe-Ñandú", "equipe nandu"},
		{"already normalized", "friesland", "friesland"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Name(tt.input))
		})
	}
}

func TestName_Idempotent(t *testing.T) {
	inputs := []string{"Fryslân", "Noord-Brabant", "  ÅLAND-øer ", "Groningen", "", "Zuid‐Holland"}
	for _, in := range inputs {
		once := Name(in)
		assert.Equal(t, once, Name(once), "input %q", in)
	}
}

func TestName_VariantsShareKey(t *testing.T) {
	assert.Equal(t, Name("Fryslân"), Name("fryslan"))
	assert.Equal(t, Name("Noord-Brabant"), Name("noord brabant"))
	assert.NotEqual(t, Name("Friesland"), Name("Fryslân"))
}
