// Package config loads the .i18nkey.yaml (or .i18nkey.toml) project file.
//
// Lookup order for every setting:
//  1. I18NKEY_* environment variables (a .env file in the project root is
//     loaded first, if present)
//  2. The project file
//  3. Built-in defaults
//
// When no project file exists the defaults are used as-is, so the tool works
// in any directory with a locales/ folder.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// FileName is the default config file name.
const FileName = ".i18nkey.yaml"

// Alternative file names, probed after FileName.
var altFileNames = []string{".i18nkey.yml", ".i18nkey.toml"}

// EnvPrefix prefixes every environment override (I18NKEY_KEY_PREFIX, ...).
const EnvPrefix = "I18NKEY"

// Keygen strategies.
const (
	StrategySlug        = "slug"
	StrategyRandom      = "random"
	StrategyEmpty       = "empty"
	StrategyTranslation = "translation"
)

// Catalog formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Key styles inside catalog files.
const (
	KeyStyleNested = "nested"
	KeyStyleFlat   = "flat"
)

// KeygenStyles lists the accepted keygen_style values.
var KeygenStyles = []string{"default", "kebab-case", "snake_case", "camelCase", "PascalCase", "ALL_CAPS"}

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// ---------------------------------------------------------------------------
// Schema
// ---------------------------------------------------------------------------

// Config is the top-level project file structure.
type Config struct {
	// SourceLanguage is the locale extracted messages are written to (default "en").
	SourceLanguage string `yaml:"source_language,omitempty" toml:"source_language,omitempty"`
	// LocalesDir holds one catalog file per locale, relative to the project root.
	LocalesDir string `yaml:"locales_dir,omitempty" toml:"locales_dir,omitempty"`
	// CatalogFormat is "json" or "yaml".
	CatalogFormat string `yaml:"catalog_format,omitempty" toml:"catalog_format,omitempty"`
	// KeyStyle is "nested" (a.b -> {"a":{"b":..}}) or "flat".
	KeyStyle string `yaml:"key_style,omitempty" toml:"key_style,omitempty"`

	KeygenStrategy      string `yaml:"keygen_strategy,omitempty" toml:"keygen_strategy,omitempty"`
	KeygenStyle         string `yaml:"keygen_style,omitempty" toml:"keygen_style,omitempty"`
	KeyPrefix           string `yaml:"key_prefix,omitempty" toml:"key_prefix,omitempty"`
	PreferredDelimiter  string `yaml:"preferred_delimiter,omitempty" toml:"preferred_delimiter,omitempty"`
	ExtractKeyMaxLength int    `yaml:"extract_key_max_length,omitempty" toml:"extract_key_max_length,omitempty"`

	TranslateEngines               []string          `yaml:"translate_engines,omitempty" toml:"translate_engines,omitempty"`
	ExtractTranslateSourceLanguage string            `yaml:"extract_translate_source_language,omitempty" toml:"extract_translate_source_language,omitempty"`
	ExtractTranslateTargetLanguage string            `yaml:"extract_translate_target_language,omitempty" toml:"extract_translate_target_language,omitempty"`
	Translate                      TranslateSettings `yaml:"translate,omitempty" toml:"translate,omitempty"`

	// RefactorTemplates maps a file extension (".go", ".ts") to the code that
	// replaces an extracted string. "{key}" is substituted with the key.
	RefactorTemplates map[string]string `yaml:"refactor_templates,omitempty" toml:"refactor_templates,omitempty"`
	// IgnoreDirs are directory names skipped when scanning for sources.
	IgnoreDirs []string `yaml:"ignore_dirs,omitempty" toml:"ignore_dirs,omitempty"`

	path string
}

// TranslateSettings configures the HTTP translation engines.
type TranslateSettings struct {
	APIKey         string `yaml:"api_key,omitempty" toml:"api_key,omitempty"`
	BaseURL        string `yaml:"base_url,omitempty" toml:"base_url,omitempty"`
	Model          string `yaml:"model,omitempty" toml:"model,omitempty"`
	Proxy          string `yaml:"proxy,omitempty" toml:"proxy,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty" toml:"timeout_seconds,omitempty"`
	// MaxRetries is nil when unset; 0 disables retries.
	MaxRetries     *int   `yaml:"max_retries,omitempty" toml:"max_retries,omitempty"`

	// RequestsPerSecond limits calls to the engine; 0 means unlimited.
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty" toml:"requests_per_second,omitempty"`
}

// envOverrides are read with envconfig; unset variables leave the file value alone.
type envOverrides struct {
	SourceLanguage     string `envconfig:"SOURCE_LANGUAGE"`
	LocalesDir         string `envconfig:"LOCALES_DIR"`
	KeygenStrategy     string `envconfig:"KEYGEN_STRATEGY"`
	KeygenStyle        string `envconfig:"KEYGEN_STYLE"`
	KeyPrefix          string `envconfig:"KEY_PREFIX"`
	PreferredDelimiter string `envconfig:"PREFERRED_DELIMITER"`
	TranslateEngine    string `envconfig:"TRANSLATE_ENGINE"`
	APIKey             string `envconfig:"API_KEY"`
	BaseURL            string `envconfig:"BASE_URL"`
	Model              string `envconfig:"MODEL"`
	Proxy              string `envconfig:"PROXY"`
}

// DefaultMaxRetries applies when translate.max_retries is not set.
const DefaultMaxRetries = 3

// Retries returns the configured retry count.
func (t TranslateSettings) Retries() int {
	if t.MaxRetries == nil {
		return DefaultMaxRetries
	}
	return *t.MaxRetries
}

// DefaultRefactorTemplates are used for extensions missing from RefactorTemplates.
var DefaultRefactorTemplates = map[string]string{
	".go":     `i18n.T("{key}")`,
	".js":     `t('{key}')`,
	".jsx":    `t('{key}')`,
	".ts":     `t('{key}')`,
	".tsx":    `t('{key}')`,
	".vue":    `$t('{key}')`,
	".svelte": `$_('{key}')`,
	".py":     `_("{key}")`,
	".html":   `{{ $t('{key}') }}`,
	".htm":    `{{ $t('{key}') }}`,
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Default returns a Config with all defaults applied.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads the project file from rootDir (or explicitPath when non-empty),
// applies defaults and environment overrides, and validates the result.
// A missing project file is not an error unless explicitPath was given.
func Load(rootDir, explicitPath string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(rootDir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	c := &Config{}

	path := explicitPath
	if path == "" {
		path = findFile(rootDir)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		if err := decode(path, data, c); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		c.path = path
	}

	c.applyDefaults()

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		if path != "" {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return nil, err
	}
	return c, nil
}

// Path returns the file the config was loaded from ("" for defaults).
func (c *Config) Path() string {
	return c.path
}

func findFile(rootDir string) string {
	for _, name := range append([]string{FileName}, altFileNames...) {
		p := filepath.Join(rootDir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func decode(path string, data []byte, c *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(c)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.SourceLanguage == "" {
		c.SourceLanguage = "en"
	}
	if c.LocalesDir == "" {
		c.LocalesDir = "locales"
	}
	if c.CatalogFormat == "" {
		c.CatalogFormat = FormatJSON
	}
	if c.KeyStyle == "" {
		c.KeyStyle = KeyStyleNested
	}
	if c.KeygenStrategy == "" {
		c.KeygenStrategy = StrategySlug
	}
	if c.KeygenStyle == "" {
		c.KeygenStyle = "default"
	}
	if c.PreferredDelimiter == "" {
		c.PreferredDelimiter = "-"
	}
	if len(c.TranslateEngines) == 0 {
		c.TranslateEngines = []string{"google"}
	}
	if c.ExtractTranslateSourceLanguage == "" {
		c.ExtractTranslateSourceLanguage = "auto"
	}
	if c.ExtractTranslateTargetLanguage == "" {
		c.ExtractTranslateTargetLanguage = "en"
	}
	if c.Translate.MaxRetries == nil {
		retries := DefaultMaxRetries
		c.Translate.MaxRetries = &retries
	}
	if c.Translate.TimeoutSeconds == 0 {
		c.Translate.TimeoutSeconds = 30
	}
	if len(c.IgnoreDirs) == 0 {
		c.IgnoreDirs = []string{".git", "node_modules", "vendor", "dist", "build", "__pycache__"}
	}
}

func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("reading %s_* environment: %w", EnvPrefix, err)
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.SourceLanguage, env.SourceLanguage)
	set(&c.LocalesDir, env.LocalesDir)
	set(&c.KeygenStrategy, env.KeygenStrategy)
	set(&c.KeygenStyle, env.KeygenStyle)
	set(&c.KeyPrefix, env.KeyPrefix)
	set(&c.PreferredDelimiter, env.PreferredDelimiter)
	set(&c.Translate.APIKey, env.APIKey)
	set(&c.Translate.BaseURL, env.BaseURL)
	set(&c.Translate.Model, env.Model)
	set(&c.Translate.Proxy, env.Proxy)
	if env.TranslateEngine != "" {
		c.TranslateEngines = []string{env.TranslateEngine}
	}
	return nil
}

// Validate checks enumerated settings and locale codes.
func (c *Config) Validate() error {
	switch c.KeygenStrategy {
	case StrategySlug, StrategyRandom, StrategyEmpty, StrategyTranslation:
	default:
		return fmt.Errorf("%w: keygen_strategy %q (valid: slug, random, empty, translation)", ErrInvalid, c.KeygenStrategy)
	}
	if !contains(KeygenStyles, c.KeygenStyle) {
		return fmt.Errorf("%w: keygen_style %q (valid: %s)", ErrInvalid, c.KeygenStyle, strings.Join(KeygenStyles, ", "))
	}
	switch c.CatalogFormat {
	case FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("%w: catalog_format %q (valid: json, yaml)", ErrInvalid, c.CatalogFormat)
	}
	switch c.KeyStyle {
	case KeyStyleNested, KeyStyleFlat:
	default:
		return fmt.Errorf("%w: key_style %q (valid: nested, flat)", ErrInvalid, c.KeyStyle)
	}
	if _, err := language.Parse(c.SourceLanguage); err != nil {
		return fmt.Errorf("%w: source_language %q: %v", ErrInvalid, c.SourceLanguage, err)
	}
	if c.ExtractTranslateSourceLanguage != "auto" {
		if _, err := language.Parse(c.ExtractTranslateSourceLanguage); err != nil {
			return fmt.Errorf("%w: extract_translate_source_language %q: %v", ErrInvalid, c.ExtractTranslateSourceLanguage, err)
		}
	}
	if _, err := language.Parse(c.ExtractTranslateTargetLanguage); err != nil {
		return fmt.Errorf("%w: extract_translate_target_language %q: %v", ErrInvalid, c.ExtractTranslateTargetLanguage, err)
	}
	if c.Translate.MaxRetries != nil && *c.Translate.MaxRetries < 0 {
		return fmt.Errorf("%w: translate.max_retries must be >= 0", ErrInvalid)
	}
	if c.Translate.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: translate.requests_per_second must be >= 0", ErrInvalid)
	}
	if strings.Contains(c.PreferredDelimiter, ".") {
		return fmt.Errorf("%w: preferred_delimiter %q must not contain \".\", the key path separator", ErrInvalid, c.PreferredDelimiter)
	}
	if c.ExtractKeyMaxLength < 0 {
		return fmt.Errorf("%w: extract_key_max_length must be >= 0", ErrInvalid)
	}
	for ext, tmpl := range c.RefactorTemplates {
		if !strings.Contains(tmpl, "{key}") {
			return fmt.Errorf("%w: refactor template for %q has no {key} placeholder", ErrInvalid, ext)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// AbsLocalesDir resolves LocalesDir against the project root.
func (c *Config) AbsLocalesDir(rootDir string) string {
	if filepath.IsAbs(c.LocalesDir) {
		return c.LocalesDir
	}
	return filepath.Join(rootDir, c.LocalesDir)
}

// Engine returns the translation engine used for key generation.
func (c *Config) Engine() string {
	if len(c.TranslateEngines) == 0 {
		return "google"
	}
	return c.TranslateEngines[0]
}

// RefactorTemplate returns the replacement template for a file extension.
func (c *Config) RefactorTemplate(ext string) string {
	ext = strings.ToLower(ext)
	if t, ok := c.RefactorTemplates[ext]; ok {
		return t
	}
	if t, ok := DefaultRefactorTemplates[ext]; ok {
		return t
	}
	return `t('{key}')`
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
