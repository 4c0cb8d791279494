package catalog

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// jsonEntries flattens a JSON locale file into key path -> message.
// Non-string leaves are ignored.
func jsonEntries(data []byte, flat bool) (map[string]string, error) {
	entries := make(map[string]string)
	if len(bytes.TrimSpace(data)) == 0 {
		return entries, nil
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("parsing JSON: invalid document")
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("JSON root must be an object")
	}
	collectJSON(root, "", flat, entries)
	return entries, nil
}

func collectJSON(node gjson.Result, prefix string, flat bool, entries map[string]string) {
	node.ForEach(func(key, value gjson.Result) bool {
		path := key.String()
		if prefix != "" {
			path = prefix + "." + path
		}
		switch {
		case value.Type == gjson.String:
			entries[path] = value.String()
		case value.IsObject() && !flat:
			collectJSON(value, path, flat, entries)
		}
		return true
	})
}

// setJSON writes messages into data, keeping existing key order, and returns
// the re-indented document.
func setJSON(data []byte, flat bool, messages map[string]string, order []string) ([]byte, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		data = []byte("{}")
	}

	var err error
	for _, keyPath := range order {
		if !flat {
			if err := checkJSONConflict(data, keyPath); err != nil {
				return nil, err
			}
		}
		data, err = sjson.SetBytes(data, sjsonPath(keyPath, flat), messages[keyPath])
		if err != nil {
			return nil, fmt.Errorf("setting %q: %w", keyPath, err)
		}
	}

	return pretty.PrettyOptions(data, &pretty.Options{Width: 80, Indent: "  "}), nil
}

// checkJSONConflict rejects nested paths that run through a non-object value.
func checkJSONConflict(data []byte, keyPath string) error {
	segments := strings.Split(keyPath, ".")
	for i := 1; i < len(segments); i++ {
		prefix := gjsonPath(segments[:i])
		if v := gjson.GetBytes(data, prefix); v.Exists() && !v.IsObject() {
			return fmt.Errorf("%w: %q", ErrConflict, keyPath)
		}
	}
	if v := gjson.GetBytes(data, gjsonPath(segments)); v.IsObject() {
		return fmt.Errorf("%w: %q", ErrConflict, keyPath)
	}
	return nil
}

// sjsonPath escapes a key path for sjson. Nested paths keep "." as the
// separator; flat paths are a single escaped segment. All-digit segments are
// forced to object keys with the ":" prefix so sjson does not build arrays.
func sjsonPath(keyPath string, flat bool) string {
	if flat {
		return escapeSegment(keyPath, true)
	}
	parts := strings.Split(keyPath, ".")
	for i, p := range parts {
		parts[i] = escapeSegment(p, true)
	}
	return strings.Join(parts, ".")
}

// gjsonPath escapes nested segments for gjson, which reads digit keys of
// objects without a prefix.
func gjsonPath(segments []string) string {
	parts := make([]string, len(segments))
	for i, p := range segments {
		parts[i] = escapeSegment(p, false)
	}
	return strings.Join(parts, ".")
}

func escapeSegment(s string, forceKey bool) string {
	var b strings.Builder
	if forceKey && s != "" && isDigits(s) {
		b.WriteByte(':')
	}
	for _, r := range s {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%', ':':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
