package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Options configures a Loader.
type Options struct {
	// Dir holds the locale files.
	Dir string
	// Format is "json" or "yaml".
	Format string
	// Flat stores key paths as literal keys instead of nesting them.
	Flat bool
	// SourceLanguage is the locale searched by SearchKeyForTranslations and
	// written when a PendingWrite has no locale.
	SourceLanguage string
	Logger         zerolog.Logger
}

// Loader is a file-backed Store. It loads lazily on first use and is safe
// for concurrent use.
type Loader struct {
	opts Options

	mu     sync.Mutex
	loaded bool
	nodes  map[string]*Node
	groups map[string]struct{} // nested key paths with children
	files  map[string]string   // locale -> file path
}

// NewLoader returns a Loader for opts. Nothing is read until first use.
func NewLoader(opts Options) *Loader {
	if opts.Format == "" {
		opts.Format = "json"
	}
	if opts.SourceLanguage == "" {
		opts.SourceLanguage = "en"
	}
	return &Loader{opts: opts}
}

// Load (re)reads every locale file in the directory.
func (l *Loader) Load() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loaded = false
	return l.loadLocked()
}

func (l *Loader) loadLocked() error {
	if l.loaded {
		return nil
	}

	nodes := make(map[string]*Node)
	files := make(map[string]string)

	dirEntries, err := os.ReadDir(l.opts.Dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("reading %s: %w", l.opts.Dir, err)
	}

	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		locale, ok := l.localeOf(de.Name())
		if !ok {
			continue
		}
		path := filepath.Join(l.opts.Dir, de.Name())
		entries, err := l.readEntries(path, locale)
		if err != nil {
			return err
		}
		files[locale] = path
		for key, value := range entries {
			n, ok := nodes[key]
			if !ok {
				n = &Node{KeyPath: key, Values: make(map[string]string)}
				nodes[key] = n
			}
			n.Values[locale] = value
		}
	}

	l.nodes = nodes
	l.files = files
	l.groups = make(map[string]struct{})
	for key := range nodes {
		l.addGroups(key)
	}
	l.loaded = true
	l.opts.Logger.Debug().Str("dir", l.opts.Dir).Int("keys", len(nodes)).Int("locales", len(files)).Msg("catalog loaded")
	return nil
}

// localeOf maps a file name to its locale when the extension matches Format.
func (l *Loader) localeOf(name string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	switch l.opts.Format {
	case "yaml":
		if ext != ".yaml" && ext != ".yml" {
			return "", false
		}
	default:
		if ext != ".json" {
			return "", false
		}
	}
	locale := strings.TrimSuffix(name, filepath.Ext(name))
	return locale, locale != ""
}

func (l *Loader) readEntries(path, locale string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if l.opts.Format == "yaml" {
		f, err := parseYAML(data, locale, l.opts.Flat)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return f.entries, nil
	}

	entries, err := jsonEntries(data, l.opts.Flat)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// ensure loads the catalog if needed; load errors are logged and leave an
// empty index so lookups degrade instead of failing.
func (l *Loader) ensure() {
	if err := l.loadLocked(); err != nil {
		l.opts.Logger.Warn().Err(err).Msg("catalog load failed")
		l.nodes = make(map[string]*Node)
		l.files = make(map[string]string)
		l.groups = make(map[string]struct{})
		l.loaded = true
	}
}

// ---------------------------------------------------------------------------
// KeyIndex
// ---------------------------------------------------------------------------

// SearchKeyForTranslations returns the first key (in sorted order) whose
// source-language message equals text after trimming, or "".
func (l *Loader) SearchKeyForTranslations(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensure()

	for _, key := range l.sortedKeysLocked() {
		if strings.TrimSpace(l.nodes[key].Values[l.opts.SourceLanguage]) == text {
			return key
		}
	}
	return ""
}

// NodeByKey returns a copy of the node for key.
func (l *Loader) NodeByKey(key string) (Node, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensure()

	n, ok := l.nodes[key]
	if !ok {
		return Node{}, false
	}
	values := make(map[string]string, len(n.Values))
	for k, v := range n.Values {
		values[k] = v
	}
	return Node{KeyPath: n.KeyPath, Values: values}, true
}

// Taken reports whether key names a message or, with nested keys, a group
// of messages.
func (l *Loader) Taken(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensure()

	if _, ok := l.nodes[key]; ok {
		return true
	}
	_, ok := l.groups[key]
	return ok
}

// LeafAncestor returns the shortest dot-prefix of key that holds a message.
// Flat catalogs have no nesting and always return "".
func (l *Loader) LeafAncestor(key string) string {
	if l.opts.Flat {
		return ""
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensure()

	for i := strings.IndexByte(key, '.'); i >= 0; {
		if _, ok := l.nodes[key[:i]]; ok {
			return key[:i]
		}
		next := strings.IndexByte(key[i+1:], '.')
		if next < 0 {
			break
		}
		i += next + 1
	}
	return ""
}

// addGroups records every proper dot-prefix of key as a group.
func (l *Loader) addGroups(key string) {
	if l.opts.Flat {
		return
	}
	for i := strings.LastIndexByte(key, '.'); i > 0; i = strings.LastIndexByte(key[:i], '.') {
		l.groups[key[:i]] = struct{}{}
	}
}

// Keys returns every known key path, sorted.
func (l *Loader) Keys() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensure()
	return l.sortedKeysLocked()
}

// Locales returns the sorted locales with a file on disk.
func (l *Loader) Locales() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensure()

	out := make([]string, 0, len(l.files))
	for locale := range l.files {
		out = append(out, locale)
	}
	sort.Strings(out)
	return out
}

func (l *Loader) sortedKeysLocked() []string {
	keys := make([]string, 0, len(l.nodes))
	for k := range l.nodes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Invalidate drops the cached index.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loaded = false
	l.nodes = nil
	l.groups = nil
	l.files = nil
}

// ---------------------------------------------------------------------------
// Writer
// ---------------------------------------------------------------------------

// Write persists entries, one file at a time, and updates the index.
// Entries are grouped by target file; within a file they apply in order, so
// a later entry for the same key wins.
func (l *Loader) Write(ctx context.Context, entries []PendingWrite) error {
	if len(entries) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensure()

	type batch struct {
		locale string
		order  []string
		values map[string]string
	}
	batches := make(map[string]*batch)
	var paths []string

	for _, e := range entries {
		if e.KeyPath == "" {
			return fmt.Errorf("pending write for %q has no key path", e.Value)
		}
		locale := e.Locale
		if locale == "" {
			locale = l.opts.SourceLanguage
		}
		path := e.FilePath
		if path == "" {
			path = l.pathFor(locale)
		}
		b, ok := batches[path]
		if !ok {
			b = &batch{locale: locale, values: make(map[string]string)}
			batches[path] = b
			paths = append(paths, path)
		}
		if _, seen := b.values[e.KeyPath]; !seen {
			b.order = append(b.order, e.KeyPath)
		}
		b.values[e.KeyPath] = e.Value
	}
	sort.Strings(paths)

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		b := batches[path]
		if err := l.writeFile(path, b.locale, b.order, b.values); err != nil {
			return err
		}

		if _, ok := l.files[b.locale]; !ok && filepath.Dir(path) == filepath.Clean(l.opts.Dir) {
			l.files[b.locale] = path
		}
		for _, key := range b.order {
			n, ok := l.nodes[key]
			if !ok {
				n = &Node{KeyPath: key, Values: make(map[string]string)}
				l.nodes[key] = n
				l.addGroups(key)
			}
			n.Values[b.locale] = b.values[key]
		}
		l.opts.Logger.Debug().Str("file", path).Int("keys", len(b.order)).Msg("catalog written")
	}
	return nil
}

func (l *Loader) pathFor(locale string) string {
	if p, ok := l.files[locale]; ok {
		return p
	}
	ext := ".json"
	if l.opts.Format == "yaml" {
		ext = ".yaml"
	}
	return filepath.Join(l.opts.Dir, locale+ext)
}

func (l *Loader) writeFile(path, locale string, order []string, values map[string]string) error {
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var out []byte
	if l.opts.Format == "yaml" {
		f, err := parseYAML(data, locale, l.opts.Flat)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		for _, key := range order {
			if err := f.set(key, values[key]); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
		}
		if out, err = f.marshal(); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	} else {
		if out, err = setJSON(data, l.opts.Flat, values, order); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
