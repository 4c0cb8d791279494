// Package keygen turns extracted text into catalog keys.
//
// A key is produced in stages: an optional reuse lookup against the catalog,
// a strategy (slug, random, empty or translation), the configured case style,
// the key prefix with {fileName} placeholders, and finally a numeric suffix
// when the key is already taken.
package keygen

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/minios-linux/i18nkey/catalog"
	"github.com/minios-linux/i18nkey/config"
	"github.com/minios-linux/i18nkey/keycache"
	"github.com/minios-linux/i18nkey/translate"
)

// fallbackKey replaces a key that ended up empty.
const fallbackKey = "key"

// Config holds the key generation settings.
type Config struct {
	Strategy  string
	Style     string
	Prefix    string
	Delimiter string
	// MaxLength caps slugs in runes; 0 means unlimited.
	MaxLength int

	// Engine, From and To drive the translation strategy.
	Engine string
	From   string
	To     string
}

// ConfigFrom copies the keygen settings out of a project config.
func ConfigFrom(c *config.Config) Config {
	return Config{
		Strategy:  c.KeygenStrategy,
		Style:     c.KeygenStyle,
		Prefix:    c.KeyPrefix,
		Delimiter: c.PreferredDelimiter,
		MaxLength: c.ExtractKeyMaxLength,
		Engine:    c.Engine(),
		From:      c.ExtractTranslateSourceLanguage,
		To:        c.ExtractTranslateTargetLanguage,
	}
}

// Translator is the part of translate.Translator the generator needs.
type Translator interface {
	Translate(ctx context.Context, opts translate.Options) (translate.Result, error)
}

// Params are the per-call inputs.
type Params struct {
	// FilePath fills the {fileName} and {fileNameWithoutExt} placeholders.
	FilePath string
	// ReuseExisting returns the catalog key already holding the same text.
	ReuseExisting bool
	// UsedKeys are keys taken by earlier calls that are not in the catalog yet.
	UsedKeys []string
}

// Generator produces keys. It is safe for concurrent use when its
// KeyIndex, Translator and cache are.
type Generator struct {
	cfg        Config
	index      catalog.KeyIndex
	translator Translator
	cache      *keycache.Cache
	log        zerolog.Logger
	random     func() (string, error)

	// inflight collapses concurrent translations of the same text.
	inflight singleflight.Group
}

// Option customizes a Generator.
type Option func(*Generator)

// WithTranslator enables the translation strategy.
func WithTranslator(t Translator) Option {
	return func(g *Generator) { g.translator = t }
}

// WithCache memoizes translated keys.
func WithCache(c *keycache.Cache) Option {
	return func(g *Generator) { g.cache = c }
}

// WithLogger sets the logger for translation failures.
func WithLogger(l zerolog.Logger) Option {
	return func(g *Generator) { g.log = l }
}

// WithRandom replaces the random key source (nanoid by default).
func WithRandom(fn func() (string, error)) Option {
	return func(g *Generator) { g.random = fn }
}

// New returns a Generator. index may be nil, in which case only
// Params.UsedKeys are checked for collisions.
func New(cfg Config, index catalog.KeyIndex, opts ...Option) *Generator {
	if cfg.Strategy == "" {
		cfg.Strategy = config.StrategySlug
	}
	if cfg.Style == "" {
		cfg.Style = StyleDefault
	}
	if cfg.Delimiter == "" || strings.Contains(cfg.Delimiter, ".") {
		// dots separate key path segments
		cfg.Delimiter = "-"
	}
	if cfg.Engine == "" {
		cfg.Engine = translate.EngineGoogle
	}
	if cfg.From == "" {
		cfg.From = "auto"
	}
	if cfg.To == "" {
		cfg.To = "en"
	}

	g := &Generator{
		cfg:    cfg,
		index:  index,
		log:    zerolog.Nop(),
		random: func() (string, error) { return gonanoid.New() },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Key generates a key without network access. The translation strategy
// falls back to slug.
func (g *Generator) Key(text string, p Params) string {
	if key, ok := g.reuse(text, p); ok {
		return key
	}

	var key string
	switch g.cfg.Strategy {
	case config.StrategyRandom:
		key = g.randomKey(text)
	case config.StrategyEmpty:
	default:
		key = Slugify(text, g.cfg.Delimiter, g.cfg.MaxLength)
	}
	return g.finish(key, p)
}

// KeyContext is Key with the translation strategy enabled. Translation
// failures are logged and produce the fallback key.
func (g *Generator) KeyContext(ctx context.Context, text string, p Params) string {
	if g.cfg.Strategy != config.StrategyTranslation {
		return g.Key(text, p)
	}
	if key, ok := g.reuse(text, p); ok {
		return key
	}
	return g.finish(g.translatedKey(ctx, text), p)
}

func (g *Generator) reuse(text string, p Params) (string, bool) {
	if !p.ReuseExisting || g.index == nil {
		return "", false
	}
	key := g.index.SearchKeyForTranslations(text)
	return key, key != ""
}

func (g *Generator) randomKey(text string) string {
	key, err := g.random()
	if err != nil {
		g.log.Warn().Err(err).Msg("random key generation failed, using slug")
		return Slugify(text, g.cfg.Delimiter, g.cfg.MaxLength)
	}
	return key
}

func (g *Generator) translatedKey(ctx context.Context, text string) string {
	if g.cache != nil {
		if key, ok := g.cache.Lookup(g.cfg.Engine, g.cfg.From, g.cfg.To, text); ok {
			return key
		}
	}
	if g.translator == nil {
		g.log.Warn().Msg("translation strategy configured without a translator")
		return ""
	}

	v, _, _ := g.inflight.Do(text, func() (any, error) {
		res, err := g.translator.Translate(ctx, translate.Options{
			Engine: g.cfg.Engine,
			Text:   text,
			From:   g.cfg.From,
			To:     g.cfg.To,
		})
		if err != nil {
			g.log.Error().Err(err).Str("engine", g.cfg.Engine).Str("text", text).Msg("translation failed")
			return "", nil
		}

		key := Slugify(res.First(), g.cfg.Delimiter, g.cfg.MaxLength)
		if g.cache != nil {
			g.cache.Store(g.cfg.Engine, g.cfg.From, g.cfg.To, text, key)
		}
		return key, nil
	})
	return v.(string)
}

// finish applies case style, prefix and placeholders, then makes the key
// unique.
func (g *Generator) finish(key string, p Params) string {
	if caseable(key) {
		key = strings.TrimSpace(ChangeCase(key, g.cfg.Style))
	}

	if g.cfg.Prefix != "" && g.cfg.Strategy != config.StrategyEmpty {
		key = g.cfg.Prefix + key
	}

	if p.FilePath != "" {
		base := filepath.Base(p.FilePath)
		key = strings.ReplaceAll(key, "{fileName}", base)
		key = strings.ReplaceAll(key, "{fileNameWithoutExt}", strings.TrimSuffix(base, filepath.Ext(base)))
	}

	if key == "" {
		key = fallbackKey
	}
	return g.unique(key, p.UsedKeys)
}

// unique returns key, or key with the first free numeric suffix. A key that
// would nest under an existing message is detached from it first, and group
// paths count as taken, so the catalog can always store the result.
func (g *Generator) unique(key string, usedKeys []string) string {
	used := make(map[string]struct{}, len(usedKeys))
	for _, k := range usedKeys {
		used[k] = struct{}{}
	}
	key = g.detach(key, used)

	taken := func(k string) bool {
		if _, ok := used[k]; ok {
			return true
		}
		group := k + "."
		for u := range used {
			if strings.HasPrefix(u, group) {
				return true
			}
		}
		return g.index != nil && g.index.Taken(k)
	}

	if !taken(key) {
		return key
	}
	for n := 0; ; n++ {
		candidate := key + g.cfg.Delimiter + strconv.Itoa(n)
		if !taken(candidate) {
			return candidate
		}
	}
}

// detach replaces the dot after any message that key would be nested under
// with the delimiter: "nav.home.title" becomes "nav.home-title" when
// "nav.home" holds a message.
func (g *Generator) detach(key string, used map[string]struct{}) string {
	for {
		leaf := usedAncestor(key, used)
		if leaf == "" && g.index != nil {
			leaf = g.index.LeafAncestor(key)
		}
		if leaf == "" {
			return key
		}
		key = leaf + g.cfg.Delimiter + key[len(leaf)+1:]
	}
}

func usedAncestor(key string, used map[string]struct{}) string {
	for i := strings.IndexByte(key, '.'); i >= 0; {
		if _, ok := used[key[:i]]; ok {
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
