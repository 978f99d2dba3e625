package choropleth

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/sells-group/provmap/internal/region"
)

// NamespaceSeparator separates a metric's namespace from its name, as in
// "bedrijvigheid__aantal_banen".
const NamespaceSeparator = "__"

// DefaultDash is shown for missing values.
const DefaultDash = "–"

// PrettifyMetric turns a metric key into a display label: the namespace
// prefix is dropped, underscores become spaces and every word starts with a
// capital letter.
func PrettifyMetric(key string) string {
	if i := strings.LastIndex(key, NamespaceSeparator); i >= 0 {
		key = key[i+len(NamespaceSeparator):]
	}
	key = strings.TrimSpace(strings.ReplaceAll(key, "_", " "))
	// Casers keep state and cannot be shared between goroutines.
	return cases.Title(language.Und, cases.NoLower).String(key)
}

// Formatter renders metric values for display.
type Formatter struct {
	printer *message.Printer
	dash    string
}

// NewFormatter returns a Formatter for the BCP 47 locale tag (e.g. "nl").
// Unknown tags fall back to the root locale.
func NewFormatter(locale, dash string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Und
	}
	if dash == "" {
		dash = DefaultDash
	}
	return &Formatter{printer: message.NewPrinter(tag), dash: dash}
}

// Format renders v with locale-aware digit grouping, or the dash when v is
// missing.
func (f *Formatter) Format(v region.Value) string {
	if !v.Valid {
		return f.dash
	}
	return f.printer.Sprint(number.Decimal(v.Number, number.MaxFractionDigits(3)))
}
