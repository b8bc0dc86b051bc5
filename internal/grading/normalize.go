package grading

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Plain signed integer or decimal. Exponent and hex forms are rejected on
// purpose: free-text lab answers are decimal notation only.
var numberPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d+)?|\.\d+)$`)

// NormalizeNumber converts raw user-entered text into a comparable float64.
// It tolerates comma decimal separators, internal spacing used as digit
// grouping, and the invisible code points that leak in from copy-paste
// (U+200B..U+200D, U+FEFF). ok=false means "definitely not a number".
func NormalizeNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", ".")
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || isInvisible(r) {
			return -1
		}
		return r
	}, s)
	if !numberPattern.MatchString(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func isInvisible(r rune) bool {
	return (r >= '\u200b' && r <= '\u200d') || r == '\ufeff'
}

// StripInvisible removes the same invisible code points the normalizer drops.
// The submission store applies it to stored answer text so exports downstream
// are not corrupted.
func StripInvisible(s string) string {
	return strings.Map(func(r rune) rune {
		if isInvisible(r) {
			return -1
		}
		return r
	}, s)
}
