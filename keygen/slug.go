package keygen

import (
	"strings"
	"unicode/utf8"

	"github.com/gosimple/slug"
	"golang.org/x/text/unicode/norm"
)

// Slugify turns natural-language text into a lowercase key fragment joined by
// sep. Non-Latin scripts are transliterated ("你好" -> "ni-hao"), "$" is
// dropped and the result is cut to maxLen runes (0 = unlimited) without a
// trailing separator.
func Slugify(text, sep string, maxLen int) string {
	text = strings.ReplaceAll(text, "$", "")
	text = norm.NFC.String(text)

	s := slug.MakeLang(text, "en")
	if sep != "-" {
		s = strings.ReplaceAll(s, "-", sep)
	}

	if maxLen > 0 && utf8.RuneCountInString(s) > maxLen {
		s = trimSeparator(string([]rune(s)[:maxLen]), sep)
	}
	return s
}

// trimSeparator drops trailing copies of sep and, for multi-rune separators,
// a trailing partial copy left by truncation.
func trimSeparator(s, sep string) string {
	if sep == "" {
		return s
	}
	for strings.HasSuffix(s, sep) {
		s = strings.TrimSuffix(s, sep)
	}
	r := []rune(sep)
	for n := len(r) - 1; n > 0; n-- {
		if part := string(r[:n]); strings.HasSuffix(s, part) {
			return strings.TrimSuffix(s, part)
		}
	}
	return s
}
