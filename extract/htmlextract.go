package extract

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// detectMarkup returns the text nodes of an HTML document or component.
// Whitespace around a node is left in place, and text holding template
// expressions ({{ ... }} or {...}) is skipped along with style and textarea
// content. Script content is skipped in plain HTML; in components it goes
// through the quoted-literal scanner and text nodes are marked as markup.
// Attribute values are never candidates.
func detectMarkup(src []byte, component bool) ([]Candidate, error) {
	z := html.NewTokenizer(bytes.NewReader(src))

	var out []Candidate
	offset := 0
	rawTag := ""

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return out, err
			}
			return out, nil
		}

		raw := z.Raw()
		start := offset
		offset += len(raw)

		switch tt {
		case html.StartTagToken:
			name, _ := z.TagName()
			rawTag = ""
			if isRawTag(name) {
				rawTag = string(name)
			}
		case html.EndTagToken:
			rawTag = ""
		case html.TextToken:
			if rawTag != "" {
				if component && rawTag == "script" {
					out = append(out, scanLiterals(string(src[:offset]), start, false)...)
				}
				continue
			}
			text := string(raw)
			trimmed := strings.TrimSpace(text)
			if !hasLetter(trimmed) || strings.ContainsAny(trimmed, "{}") {
				continue
			}
			lead := len(text) - len(strings.TrimLeftFunc(text, unicode.IsSpace))
			s := start + lead
			c, err := newCandidate(src, s, s+len(trimmed), html.UnescapeString(strings.Join(strings.Fields(trimmed), " ")))
			if err != nil {
				continue
			}
			c.Markup = component
			out = append(out, c)
		}
	}
}

func isRawTag(name []byte) bool {
	switch string(name) {
	case "script", "style", "textarea":
		return true
	}
	return false
}
