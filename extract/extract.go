// Package extract finds hard-coded user-facing strings in source files and
// moves them into the catalog.
//
// A run has three steps:
//
//	Detect  locate string literals that look like UI text
//	Plan    generate a key for each and build the replacement code
//	Apply   rewrite the file and write the messages, in one transaction
//
// Detection understands Go through go/ast, HTML and component markup
// through golang.org/x/net/html, and scans quoted literals in JavaScript,
// TypeScript, Python and the script blocks of Vue and Svelte components.
package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/minios-linux/i18nkey/catalog"
	"github.com/minios-linux/i18nkey/document"
	"github.com/minios-linux/i18nkey/keygen"
)

// ExtractInfo is one planned replacement. Empty KeyPath, Message or Locale
// mean the field is absent; only extracts with both a key path and a
// message are written to the catalog.
type ExtractInfo struct {
	Range     document.Range
	ReplaceTo string
	KeyPath   string
	Message   string
	// Locale defaults to the source language.
	Locale string
}

// Document is the editable source file an extraction rewrites.
type Document interface {
	Path() string
	Edit(fn func(*document.EditBuilder)) error
	Save() error
}

// KeyGenerator produces catalog keys for extracted text.
type KeyGenerator interface {
	KeyContext(ctx context.Context, text string, p keygen.Params) string
}

// Extractor ties detection, key generation and the catalog together.
type Extractor struct {
	store          catalog.Store
	gen            KeyGenerator
	sourceLanguage string
	template       func(ext string) string
	reuse          bool
	log            zerolog.Logger
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithSourceLanguage sets the locale messages are written to.
func WithSourceLanguage(lang string) Option {
	return func(x *Extractor) { x.sourceLanguage = lang }
}

// WithTemplates sets the replacement template lookup, keyed by file
// extension. Templates contain a {key} placeholder.
func WithTemplates(fn func(ext string) string) Option {
	return func(x *Extractor) { x.template = fn }
}

// WithReuse makes Plan reuse catalog keys that already hold the same text.
func WithReuse(reuse bool) Option {
	return func(x *Extractor) { x.reuse = reuse }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(x *Extractor) { x.log = l }
}

// New returns an Extractor writing to store and naming keys with gen.
func New(store catalog.Store, gen KeyGenerator, opts ...Option) *Extractor {
	x := &Extractor{
		store:          store,
		gen:            gen,
		sourceLanguage: "en",
		template:       func(string) string { return `t('{key}')` },
		log:            zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// ---------------------------------------------------------------------------
// Apply
// ---------------------------------------------------------------------------

// ExtractHardStrings replaces every extract in doc and writes the messages
// to the catalog. The edit and the catalog write run concurrently and both
// must succeed; the first error is returned. When save is set the document
// is written back afterwards. The catalog index is invalidated once both
// tasks have finished.
func (x *Extractor) ExtractHardStrings(ctx context.Context, doc Document, extracts []ExtractInfo, save bool) error {
	if len(extracts) == 0 {
		return nil
	}

	// Descending start keeps earlier replacements from moving later ranges.
	sorted := make([]ExtractInfo, len(extracts))
	copy(sorted, extracts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[j].Range.Start.Before(sorted[i].Range.Start)
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return doc.Edit(func(b *document.EditBuilder) {
			for _, e := range sorted {
				b.Replace(e.Range, e.ReplaceTo)
			}
		})
	})
	g.Go(func() error {
		writes := x.pendingWrites(doc.Path(), sorted)
		if len(writes) == 0 {
			return nil
		}
		return x.store.Write(gctx, writes)
	})
	err := g.Wait()
	defer x.store.Invalidate()
	if err != nil {
		return fmt.Errorf("extracting strings in %s: %w", doc.Path(), err)
	}

	if save {
		if err := doc.Save(); err != nil {
			return err
		}
	}

	x.log.Debug().Str("file", doc.Path()).Int("count", len(sorted)).Msg("extracted strings")
	return nil
}

func (x *Extractor) pendingWrites(path string, extracts []ExtractInfo) []catalog.PendingWrite {
	var writes []catalog.PendingWrite
	for _, e := range extracts {
		if e.KeyPath == "" || e.Message == "" {
			continue
		}
		locale := e.Locale
		if locale == "" {
			locale = x.sourceLanguage
		}
		writes = append(writes, catalog.PendingWrite{
			TextFromPath: path,
			KeyPath:      e.KeyPath,
			Value:        e.Message,
			Locale:       locale,
		})
	}
	return writes
}

// ---------------------------------------------------------------------------
// Plan
// ---------------------------------------------------------------------------

// Plan generates keys for candidates found in path. Identical texts share a
// key; every new key is added to the used set so later candidates in the
// same file get distinct keys.
func (x *Extractor) Plan(ctx context.Context, path string, candidates []Candidate) []ExtractInfo {
	ext := strings.ToLower(filepath.Ext(path))
	tmpl := x.template(ext)

	byText := make(map[string]string)
	var used []string
	out := make([]ExtractInfo, 0, len(candidates))

	for _, c := range candidates {
		key, ok := byText[c.Text]
		if !ok {
			key = x.gen.KeyContext(ctx, c.Text, keygen.Params{
				FilePath:      path,
				ReuseExisting: x.reuse,
				UsedKeys:      used,
			})
			byText[c.Text] = key
			used = append(used, key)
		}
		replace := strings.ReplaceAll(tmpl, "{key}", key)
		if c.Markup {
			replace = interpolate(ext, replace)
		}
		out = append(out, ExtractInfo{
			Range:     c.Range,
			ReplaceTo: replace,
			KeyPath:   key,
			Message:   c.Text,
		})
	}
	return out
}

// interpolate wraps a replacement for a component template text node.
func interpolate(ext, code string) string {
	switch ext {
	case ".vue":
		return "{{ " + code + " }}"
	case ".svelte":
		return "{" + code + "}"
	}
	return code
}

// ---------------------------------------------------------------------------
// Whole-file convenience
// ---------------------------------------------------------------------------

// FileResult reports what ExtractFile did for one file.
type FileResult struct {
	Path     string
	Extracts []ExtractInfo
}

// ExtractFile detects, plans and (unless dryRun) applies extraction for one
// file.
func (x *Extractor) ExtractFile(ctx context.Context, path string, dryRun, save bool) (FileResult, error) {
	doc, err := document.Open(path)
	if err != nil {
		return FileResult{}, err
	}

	candidates, err := Detect(path, []byte(doc.Text()))
	if err != nil {
		return FileResult{}, err
	}

	res := FileResult{Path: path, Extracts: x.Plan(ctx, path, candidates)}
	if dryRun || len(res.Extracts) == 0 {
		return res, nil
	}
	if err := x.ExtractHardStrings(ctx, doc, res.Extracts, save); err != nil {
		return FileResult{}, err
	}
	return res, nil
}
