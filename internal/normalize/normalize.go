// Package normalize canonicalises region names so that spellings from
// independently authored sources compare equal.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var hyphens = strings.NewReplacer(
	"-", " ",
	"‐", " ", // hyphen
	"‑", " ", // non-breaking hyphen
)

// Name returns the comparison key for a region name:
//  1. Decompose accented characters and drop the combining marks
//  2. Replace hyphens with spaces
//  3. Trim surrounding whitespace
//  4. Lower-case
//
// Name is total and idempotent: Name(Name(s)) == Name(s).
func Name(s string) string {
	if s == "" {
		return ""
	}

	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		// The chain only fails on invalid transformer state; keep the input.
		out = s
	}

	out = hyphens.Replace(out)
	out = strings.TrimSpace(out)
	return strings.ToLower(out)
}
