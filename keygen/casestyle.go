package keygen

import (
	"strings"
	"unicode"

	"github.com/iancoleman/strcase"
)

// Case styles accepted by ChangeCase.
const (
	StyleDefault = "default"
	StyleKebab   = "kebab-case"
	StyleSnake   = "snake_case"
	StyleCamel   = "camelCase"
	StylePascal  = "PascalCase"
	StyleAllCaps = "ALL_CAPS"
)

// ChangeCase converts every dot-separated segment of key to style, so key
// path structure survives ("user-menu.log-out" -> "userMenu.logOut").
// Unknown styles and StyleDefault return key unchanged.
func ChangeCase(key, style string) string {
	var convert func(string) string
	switch style {
	case StyleKebab:
		convert = strcase.ToKebab
	case StyleSnake:
		convert = strcase.ToSnake
	case StyleCamel:
		convert = strcase.ToLowerCamel
	case StylePascal:
		convert = strcase.ToCamel
	case StyleAllCaps:
		convert = strcase.ToScreamingSnake
	default:
		return key
	}

	parts := strings.Split(key, ".")
	for i, p := range parts {
		if p != "" {
			parts[i] = convert(p)
		}
	}
	return strings.Join(parts, ".")
}

// caseable reports whether key has anything a case style can act on:
// an ASCII letter or digit, whitespace, '-' or '_'.
func caseable(key string) bool {
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return true
		case r == '-' || r == '_' || unicode.IsSpace(r):
			return true
		}
	}
	return false
}
