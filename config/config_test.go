package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	dir := t.TempDir()

	c, err := Load(dir, "")
	require.NoError(t, err)

	assert.Equal(t, "", c.Path())
	assert.Equal(t, "en", c.SourceLanguage)
	assert.Equal(t, "locales", c.LocalesDir)
	assert.Equal(t, FormatJSON, c.CatalogFormat)
	assert.Equal(t, KeyStyleNested, c.KeyStyle)
	assert.Equal(t, StrategySlug, c.KeygenStrategy)
	assert.Equal(t, "default", c.KeygenStyle)
	assert.Equal(t, "-", c.PreferredDelimiter)
	assert.Equal(t, "google", c.Engine())
	assert.Equal(t, "auto", c.ExtractTranslateSourceLanguage)
	assert.Equal(t, "en", c.ExtractTranslateTargetLanguage)
	assert.Equal(t, 3, c.Translate.Retries())
	assert.Equal(t, filepath.Join(dir, "locales"), c.AbsLocalesDir(dir))
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, FileName, `
source_language: de
locales_dir: i18n
catalog_format: yaml
key_style: flat
keygen_strategy: random
keygen_style: snake_case
key_prefix: "app."
preferred_delimiter: "_"
extract_key_max_length: 40
translate_engines: [groq, google]
translate:
  model: llama
  max_retries: 5
  requests_per_second: 2.5
refactor_templates:
  ".ts": "i18n.t('{key}')"
`)

	c, err := Load(dir, "")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, FileName), c.Path())
	assert.Equal(t, "de", c.SourceLanguage)
	assert.Equal(t, "i18n", c.LocalesDir)
	assert.Equal(t, FormatYAML, c.CatalogFormat)
	assert.Equal(t, KeyStyleFlat, c.KeyStyle)
	assert.Equal(t, StrategyRandom, c.KeygenStrategy)
	assert.Equal(t, "snake_case", c.KeygenStyle)
	assert.Equal(t, "app.", c.KeyPrefix)
	assert.Equal(t, "_", c.PreferredDelimiter)
	assert.Equal(t, 40, c.ExtractKeyMaxLength)
	assert.Equal(t, "groq", c.Engine())
	assert.Equal(t, "llama", c.Translate.Model)
	assert.Equal(t, 5, c.Translate.Retries())
	assert.Equal(t, 2.5, c.Translate.RequestsPerSecond)
	assert.Equal(t, "i18n.t('{key}')", c.RefactorTemplate(".ts"))
	assert.Equal(t, `i18n.T("{key}")`, c.RefactorTemplate(".GO"))
	assert.Equal(t, `t('{key}')`, c.RefactorTemplate(".unknown"))
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".i18nkey.toml", `
source_language = "fr"
keygen_style = "camelCase"

[translate]
base_url = "http://localhost:11434"
`)

	c, err := Load(dir, "")
	require.NoError(t, err)
	assert.Equal(t, "fr", c.SourceLanguage)
	assert.Equal(t, "camelCase", c.KeygenStyle)
	assert.Equal(t, "http://localhost:11434", c.Translate.BaseURL)
}

func TestLoadZeroRetriesDisablesRetries(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, FileName, "translate:\n  max_retries: 0\n")

	c, err := Load(dir, "")
	require.NoError(t, err)
	require.NotNil(t, c.Translate.MaxRetries)
	assert.Equal(t, 0, c.Translate.Retries())
}

func TestLoadEmptyYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, FileName, "")

	c, err := Load(dir, "")
	require.NoError(t, err)
	assert.Equal(t, "en", c.SourceLanguage)
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, FileName, "key_prefix: file.\n")
	writeFile(t, dir, ".env", "I18NKEY_KEYGEN_STYLE=kebab-case\n")
	t.Setenv("I18NKEY_KEY_PREFIX", "env.")
	t.Setenv("I18NKEY_TRANSLATE_ENGINE", "ollama")
	t.Cleanup(func() { os.Unsetenv("I18NKEY_KEYGEN_STYLE") })

	c, err := Load(dir, "")
	require.NoError(t, err)
	assert.Equal(t, "env.", c.KeyPrefix)
	assert.Equal(t, "kebab-case", c.KeygenStyle)
	assert.Equal(t, []string{"ollama"}, c.TranslateEngines)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "unknown strategy", content: "keygen_strategy: magic\n"},
		{name: "unknown style", content: "keygen_style: Title Case\n"},
		{name: "unknown format", content: "catalog_format: xml\n"},
		{name: "unknown key style", content: "key_style: deep\n"},
		{name: "bad source language", content: "source_language: \"not a tag!\"\n"},
		{name: "negative max length", content: "extract_key_max_length: -1\n"},
		{name: "template without placeholder", content: "refactor_templates:\n  .go: T()\n"},
		{name: "dotted delimiter", content: "preferred_delimiter: \".\"\n"},
		{name: "negative retries", content: "translate:\n  max_retries: -1\n"},
		{name: "negative rate", content: "translate:\n  requests_per_second: -2\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, FileName, tc.content)
			_, err := Load(dir, "")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoadUnknownField(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, FileName, "no_such_option: true\n")

	_, err := Load(dir, "")
	require.Error(t, err)
}

func TestLoadExplicitPathMissing(t *testing.T) {
	_, err := Load(t.TempDir(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
