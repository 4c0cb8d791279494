// Package i18n translates the i18nkey CLI itself.
//
// It wraps gotext with T() and N() helpers. Translations are embedded in the
// binary via //go:embed and loaded by Init().
//
// Usage:
//
//	i18n.Init("")  // auto-detect from LANGUAGE/LC_ALL/LC_MESSAGES/LANG
//	fmt.Println(i18n.T("No source files found"))
//	fmt.Printf(i18n.N("%d string", "%d strings", n), n)
package i18n

import (
	"embed"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/leonelquinteros/gotext"
	"golang.org/x/text/language"
)

// locales embeds the translation files.
// Directory structure: locales/{lang}/LC_MESSAGES/i18nkey.po
//
//go:embed all:locales
var locales embed.FS

// domain is the gettext domain name.
const domain = "i18nkey"

var (
	po      *gotext.Locale
	current = "en"
)

// Init loads the catalog for lang. If lang is empty it is detected from the
// environment (LANGUAGE, LC_ALL, LC_MESSAGES, LANG, like GNU gettext).
// A regional locale without its own catalog falls back to its base
// language ("pt_BR" -> "pt").
//
// Init should be called once at program startup, before any T() or N() calls.
func Init(lang string) {
	if lang == "" {
		lang = detectLanguage()
	}
	lang = resolveLanguage(lang)
	current = lang

	po = gotext.NewLocaleFSWithPath(lang, locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
}

// T translates a string. Untranslated strings are returned unchanged.
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	return po.Get(msgid)
}

// N translates a string with plural forms.
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return po.GetN(singular, plural, n)
}

// resolveLanguage picks the embedded catalog directory for lang.
func resolveLanguage(lang string) string {
	if hasCatalog(lang) {
		return lang
	}
	tag, err := language.Parse(strings.ReplaceAll(lang, "_", "-"))
	if err != nil {
		return lang
	}
	base, _ := tag.Base()
	if hasCatalog(base.String()) {
		return base.String()
	}
	return lang
}

func hasCatalog(lang string) bool {
	_, err := fs.Stat(locales, path.Join("locales", lang, "LC_MESSAGES", domain+".po"))
	return err == nil
}

// detectLanguage reads the gettext environment variables in priority order.
func detectLanguage() string {
	for _, env := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		val := os.Getenv(env)
		if val == "" {
			continue
		}
		// LANGUAGE can be a colon-separated list; take the first
		if env == "LANGUAGE" {
			val, _, _ = strings.Cut(val, ":")
		}
		// "ru_RU.UTF-8" -> "ru_RU"
		if idx := strings.IndexByte(val, '.'); idx >= 0 {
			val = val[:idx]
		}
		if val == "C" || val == "POSIX" || val == "" {
			continue
		}
		return val
	}
	return "en"
}
