package extract

import (
	"path/filepath"
	"strings"
	"unicode"

	"github.com/minios-linux/i18nkey/document"
)

// Candidate is a string literal that looks like user-facing text.
type Candidate struct {
	// Range covers the literal including its quotes and prefix, or the
	// trimmed text of a markup text node.
	Range document.Range
	// Text is the unquoted value.
	Text string
	// Markup marks a text node of a component template, which needs the
	// template interpolation syntax around the replacement.
	Markup bool
}

// scriptWrappers are call names whose arguments are already localized in
// scanned languages.
var scriptWrappers = map[string]bool{
	"t":        true,
	"$t":       true,
	"i18n.t":   true,
	"_":        true,
	"gettext":  true,
	"ngettext": true,
	"$_":       true,
	"require":  true,
}

// scannedExtensions use the quoted-literal scanner; hashComments marks
// languages where # starts a comment.
var scannedExtensions = map[string]struct{ hashComments bool }{
	".js":  {},
	".jsx": {},
	".mjs": {},
	".cjs": {},
	".ts":  {},
	".tsx": {},
	".py":  {hashComments: true},
	".rb":  {hashComments: true},
}

// Detect returns the hard-coded string candidates in src, in document order.
// Go is parsed with go/ast. HTML and the markup of Vue and Svelte components
// go through golang.org/x/net/html, with component <script> blocks handed to
// the quoted-literal scanner like the remaining known languages. Files of
// unknown type yield nothing.
func Detect(path string, src []byte) ([]Candidate, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".go":
		return detectGo(path, src)
	case ".html", ".htm":
		return detectMarkup(src, false)
	case ".vue", ".svelte":
		return detectMarkup(src, true)
	}
	lang, ok := scannedExtensions[ext]
	if !ok {
		return nil, nil
	}
	return scanLiterals(string(src), 0, lang.hashComments), nil
}

// Detectable reports whether Detect understands files with this extension.
func Detectable(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".go", ".html", ".htm", ".vue", ".svelte":
		return true
	}
	_, ok := scannedExtensions[ext]
	return ok
}

func newCandidate(src []byte, start, end int, text string) (Candidate, error) {
	s, err := document.PositionAt(string(src), start)
	if err != nil {
		return Candidate{}, err
	}
	e, err := document.PositionAt(string(src), end)
	if err != nil {
		return Candidate{}, err
	}
	return Candidate{Range: document.Range{Start: s, End: e}, Text: text}, nil
}

func hasLetter(s string) bool {
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}

// ---------------------------------------------------------------------------
// Quoted-literal scanner
// ---------------------------------------------------------------------------

// scanLiterals walks src from offset from, skipping comments, and returns
// single, double and backtick quoted literals. Template literals with ${...},
// triple-quoted docstrings, literals on import lines and arguments of
// localization calls are skipped. With hashComments the Python rules apply
// too: f-strings and byte strings are skipped, and r/u prefixes are part of
// the literal's range.
func scanLiterals(src string, from int, hashComments bool) []Candidate {
	var out []Candidate

	for i := from; i < len(src); {
		switch {
		case hashComments && src[i] == '#':
			i = skipLine(src, i)
			continue
		case !hashComments && strings.HasPrefix(src[i:], "//"):
			i = skipLine(src, i)
			continue
		case !hashComments && strings.HasPrefix(src[i:], "/*"):
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				return out
			}
			i += end + 4
			continue
		case hashComments && (strings.HasPrefix(src[i:], `"""`) || strings.HasPrefix(src[i:], "'''")):
			end := strings.Index(src[i+3:], src[i:i+3])
			if end < 0 {
				return out
			}
			i += end + 6
			continue
		}

		q := src[i]
		if q != '"' && q != '\'' && q != '`' {
			i++
			continue
		}

		end, text, ok := readQuoted(src, i)
		if !ok {
			i++
			continue
		}

		start := i
		if hashComments {
			prefix := stringPrefix(src, i)
			lower := strings.ToLower(prefix)
			if strings.ContainsAny(lower, "fb") {
				i = end
				continue
			}
			if strings.Contains(lower, "r") {
				text = src[i+1 : end-1]
			}
			start = i - len(prefix)
		}

		if hasLetter(text) && !importLine(src, start) && !wrappedArg(src, start) &&
			!(q == '`' && strings.Contains(src[i:end], "${")) {
			if c, err := newCandidate([]byte(src), start, end, text); err == nil {
				out = append(out, c)
			}
		}
		i = end
	}
	return out
}

// stringPrefix returns the Python string prefix (r, u, f, b or a two-letter
// combination) directly before the quote at i, or "".
func stringPrefix(src string, i int) string {
	k := i
	for k > 0 && i-k < 2 && strings.IndexByte("rRbBuUfF", src[k-1]) >= 0 {
		k--
	}
	if k > 0 && isIdentByte(src[k-1]) {
		return ""
	}
	return src[k:i]
}

func skipLine(src string, i int) int {
	if nl := strings.IndexByte(src[i:], '\n'); nl >= 0 {
		return i + nl + 1
	}
	return len(src)
}

// readQuoted reads the literal opening at start. It returns the offset just
// past the closing quote and the unescaped text. Single and double quoted
// literals may not span lines.
func readQuoted(src string, start int) (int, string, bool) {
	q := src[start]
	var b strings.Builder

	for i := start + 1; i < len(src); i++ {
		c := src[i]
		switch {
		case c == q:
			return i + 1, b.String(), true
		case c == '\n' && q != '`':
			return 0, "", false
		case c == '\\' && i+1 < len(src):
			i++
			switch src[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte(src[i])
			}
		default:
			b.WriteByte(c)
		}
	}
	return 0, "", false
}

// importLine reports whether the literal at i sits on an import statement.
func importLine(src string, i int) bool {
	lineStart := strings.LastIndexByte(src[:i], '\n') + 1
	line := strings.TrimSpace(src[lineStart:i])
	return strings.HasPrefix(line, "import ") || strings.HasPrefix(line, "from ") ||
		(strings.HasPrefix(line, "export ") && strings.Contains(line, " from"))
}

// wrappedArg reports whether the literal at i is the first argument of a
// localization call such as t('...') or _("...").
func wrappedArg(src string, i int) bool {
	j := i - 1
	for j >= 0 && (src[j] == ' ' || src[j] == '\t') {
		j--
	}
	if j < 0 || src[j] != '(' {
		return false
	}
	end := j
	j--
	for j >= 0 && (isIdentByte(src[j]) || src[j] == '.' || src[j] == '$') {
		j--
	}
	return scriptWrappers[src[j+1:end]]
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
