package ocr

import (
	"strings"
	"unicode"
)

// Score rates how plausible an OCR result is as a single UI label: length
// in [3, 24], mostly letters, digits and spaces, few special characters.
func Score(s string) float64 {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	n := len(runes)
	if n == 0 {
		return 0
	}
	length := 1.0
	switch {
	case n < 3:
		length = float64(n) / 3
	case n > 24:
		length = 24 / float64(n)
	}
	var plain, special int
	for _, r := range runes {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			plain++
		} else {
			special++
		}
	}
	return length + float64(plain)/float64(n) - float64(special)/float64(n)
}

// Best returns the highest scoring non-empty candidate. Ties keep the
// earlier candidate.
func Best(candidates ...string) string {
	best, bestScore := "", 0.0
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if sc := Score(c); best == "" || sc > bestScore {
			best, bestScore = c, sc
		}
	}
	return best
}

// CleanNickname removes rank/team icon noise that OCR reads in front of a
// player name: first any of the known glyph prefixes, then every remaining
// leading rune that is not a letter, digit, '[' or '_'.
func CleanNickname(s string, glyphs []string) string {
	s = strings.TrimSpace(s)
	for changed := true; changed; {
		changed = false
		for _, g := range glyphs {
			if g != "" && strings.HasPrefix(s, g) {
				s = strings.TrimSpace(strings.TrimPrefix(s, g))
				changed = true
			}
		}
	}
	s = strings.TrimLeftFunc(s, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '[' || r == '_')
	})
	return strings.TrimSpace(s)
}
