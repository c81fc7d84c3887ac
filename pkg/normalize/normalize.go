// Package normalize canonicalizes item names for identity matching.
// "Soro Fisiológico 0,9%" and "soro fisiologico 09" resolve to the
// same key, so re-imports and receipts land on the same item row.
package normalize

import (
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const combiningCedilla = '\u0327'

// Name returns the canonical form of an item name: accents stripped,
// everything but letters and digits removed, uppercased. The cedilla
// is the one diacritic kept, so MAÇA and MACA stay distinct.
func Name(s string) string {
	out := make([]rune, 0, len(s))

	for _, r := range norm.NFD.String(s) {
		if r == combiningCedilla && len(out) > 0 && out[len(out)-1] == 'C' {
			out[len(out)-1] = 'Ç'
			continue
		}
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			out = append(out, unicode.ToUpper(r))
		}
	}

	return string(out)
}

// Equal reports whether two raw names resolve to the same canonical form.
func Equal(a, b string) bool {
	return Name(a) == Name(b)
}
