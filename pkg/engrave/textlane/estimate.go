package textlane

import "strings"

// Character class width factors in em units. A flat per-character average
// misclassifies placement by 20-50% on common inputs (lyric syllables are
// narrow-heavy, harmony symbols numeric-heavy), so characters are bucketed
// by class instead.
const (
	charNarrow  = 0.34 // i l j t f r and punctuation
	charMedium  = 0.55 // typical lowercase
	charWide    = 0.88 // m w M W and other full-width glyphs
	charNumeric = 0.52 // digits: tabular figures share one advance

	boldFactor   = 1.12
	italicFactor = 1.08
)

const narrowChars = "iljtfr.,;:'!|() "
const wideChars = "mwMW@%&"

// EstimateWidth approximates the rendered width of a text annotation from
// its character classes, font size, and style weight. It only needs to be
// accurate enough for collision avoidance; exact metrics belong to the
// drawing collaborator's font engine.
func EstimateWidth(text string, size float64, bold, italic bool) float64 {
	if size <= 0 {
		return 0
	}
	em := 0.0
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9':
			em += charNumeric
		case strings.ContainsRune(narrowChars, r):
			em += charNarrow
		case strings.ContainsRune(wideChars, r):
			em += charWide
		case r >= 'A' && r <= 'Z':
			em += charMedium * 1.25 // capitals run wider than lowercase
		default:
			em += charMedium
		}
	}
	w := em * size
	if bold {
		w *= boldFactor
	}
	if italic {
		w *= italicFactor
	}
	return w
}
