// i18nkey extracts hard-coded strings from source code into localization
// catalogs, generating keys for them.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/minios-linux/i18nkey/catalog"
	"github.com/minios-linux/i18nkey/config"
	"github.com/minios-linux/i18nkey/extract"
	"github.com/minios-linux/i18nkey/i18n"
	"github.com/minios-linux/i18nkey/keycache"
	"github.com/minios-linux/i18nkey/keygen"
	"github.com/minios-linux/i18nkey/logging"
	"github.com/minios-linux/i18nkey/translate"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

// logOutput receives the [INFO]/[OK]/[WARN]/[ERROR] lines.
var logOutput io.Writer = os.Stderr

func logTagged(color, tag, format string, args ...any) {
	if logging.IsTerminal(logOutput) {
		tag = color + tag + colorReset
	}
	fmt.Fprintf(logOutput, tag+" "+format+"\n", args...)
}

func logInfo(format string, args ...any) {
	logTagged(colorBlue, "[INFO]", format, args...)
}

func logSuccess(format string, args ...any) {
	logTagged(colorGreen, "[OK]", format, args...)
}

func logWarning(format string, args ...any) {
	logTagged(colorYellow, "[WARN]", format, args...)
}

func logError(format string, args ...any) {
	logTagged(colorRed, "[ERROR]", format, args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir    string
	configPath string
	verbose    bool
)

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "i18nkey",
		Short: i18n.T("Extract hard-coded strings into localization catalogs"),
		Long: i18n.T(`i18nkey finds user-facing string literals in source files, generates
catalog keys for them, rewrites the code to look the keys up and stores the
messages in per-locale catalog files (locales/en.json, locales/de.yaml, ...).

Commands:
  key       Generate a key for a piece of text
  extract   Extract hard-coded strings from files or directories
  lookup    Find the catalog key holding a text
  version   Show version information

Key strategies (keygen_strategy in .i18nkey.yaml):
  slug         Slugified text (default)
  random       Random 21-character id
  empty        Fixed placeholder key
  translation  Slug of the text translated by a translation engine`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&rootDir, "root", ".", i18n.T("Project root directory"))
	root.PersistentFlags().StringVar(&configPath, "config", "", i18n.T("Config file (default: <root>/.i18nkey.yaml)"))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, i18n.T("Enable debug logging"))

	root.AddCommand(
		newKeyCmd(),
		newExtractCmd(),
		newLookupCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logError("%v", err)
		stop()
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// Project wiring
// ---------------------------------------------------------------------------

// project bundles everything a command needs, built from the config file.
type project struct {
	root      string
	cfg       *config.Config
	log       zerolog.Logger
	store     *catalog.Loader
	cache     *keycache.Cache
	gen       *keygen.Generator
	extractor *extract.Extractor
}

func openProject() (*project, error) {
	root, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}

	cfg, err := config.Load(root, configPath)
	if err != nil {
		return nil, err
	}

	log := logging.New(logOutput, verbose)
	if cfg.Path() != "" {
		log.Debug().Str("file", cfg.Path()).Msg("config loaded")
	}

	cache, err := keycache.Load(root)
	if err != nil {
		return nil, err
	}

	store := catalog.NewLoader(catalog.Options{
		Dir:            cfg.AbsLocalesDir(root),
		Format:         cfg.CatalogFormat,
		Flat:           cfg.KeyStyle == config.KeyStyleFlat,
		SourceLanguage: cfg.SourceLanguage,
		Logger:         log,
	})

	translator := translate.New(translate.Settings{
		APIKey:     cfg.Translate.APIKey,
		BaseURL:    cfg.Translate.BaseURL,
		Model:      cfg.Translate.Model,
		Proxy:      cfg.Translate.Proxy,
		Timeout:    time.Duration(cfg.Translate.TimeoutSeconds) * time.Second,
		MaxRetries: retrySetting(cfg.Translate.Retries()),
		Logger:     log,

		RequestsPerSecond: cfg.Translate.RequestsPerSecond,
	})

	gen := keygen.New(keygen.ConfigFrom(cfg), store,
		keygen.WithTranslator(translator),
		keygen.WithCache(cache),
		keygen.WithLogger(log),
	)

	return &project{
		root:  root,
		cfg:   cfg,
		log:   log,
		store: store,
		cache: cache,
		gen:   gen,
		extractor: extract.New(store, gen,
			extract.WithSourceLanguage(cfg.SourceLanguage),
			extract.WithTemplates(cfg.RefactorTemplate),
			extract.WithReuse(true),
			extract.WithLogger(log),
		),
	}, nil
}

// retrySetting maps a configured retry count to translate.Settings, where
// zero selects the default and a negative value disables retries.
func retrySetting(n int) int {
	if n == 0 {
		return -1
	}
	return n
}

// saveCache persists translated keys; a failure only costs future lookups.
func (p *project) saveCache() {
	if err := p.cache.Save(); err != nil {
		logWarning(i18n.T("Could not save key cache: %v"), err)
		return
	}
	engines, keys := p.cache.Stats()
	p.log.Debug().Int("engines", engines).Int("keys", keys).Msg("key cache")
}

// relPath shortens path for display.
func (p *project) relPath(path string) string {
	if rel, err := filepath.Rel(p.root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

// ---------------------------------------------------------------------------
// key
// ---------------------------------------------------------------------------

func newKeyCmd() *cobra.Command {
	var (
		file  string
		reuse bool
		used  []string
	)

	cmd := &cobra.Command{
		Use:   "key TEXT",
		Short: i18n.T("Generate a key for a piece of text"),
		Long: i18n.T(`Generate a catalog key for TEXT using the configured strategy, case style
and prefix. The key never collides with an existing catalog key or with
any key passed via --used.`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject()
			if err != nil {
				return err
			}
			defer p.saveCache()

			key := p.gen.KeyContext(cmd.Context(), args[0], keygen.Params{
				FilePath:      file,
				ReuseExisting: reuse,
				UsedKeys:      used,
			})
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", i18n.T("Source file, fills {fileName} placeholders in the prefix"))
	cmd.Flags().BoolVar(&reuse, "reuse", false, i18n.T("Return the existing key if the catalog already has this text"))
	cmd.Flags().StringSliceVar(&used, "used", nil, i18n.T("Keys to treat as taken (comma-separated)"))

	return cmd
}

// ---------------------------------------------------------------------------
// extract
// ---------------------------------------------------------------------------

func newExtractCmd() *cobra.Command {
	var (
		dryRun bool
		noSave bool
	)

	cmd := &cobra.Command{
		Use:   "extract [PATH...]",
		Short: i18n.T("Extract hard-coded strings from files or directories"),
		Long: i18n.T(`Scan the given files and directories (default: the project root) for
hard-coded strings, generate keys, replace each string with the refactor
template for its file type and write the messages to the source language
catalog.

With --dry-run nothing is written; the planned replacements are printed.`),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject()
			if err != nil {
				return err
			}
			defer p.saveCache()
			return runExtract(cmd.Context(), cmd.OutOrStdout(), p, args, dryRun, !noSave)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, i18n.T("Show planned replacements without changing files"))
	cmd.Flags().BoolVar(&noSave, "no-save", false, i18n.T("Update the catalog but leave source files unchanged"))

	return cmd
}

func runExtract(ctx context.Context, out io.Writer, p *project, args []string, dryRun, save bool) error {
	paths := args
	if len(paths) == 0 {
		paths = []string{p.root}
	}
	for i, path := range paths {
		if !filepath.IsAbs(path) {
			paths[i] = filepath.Join(p.root, path)
		}
	}

	files, err := extract.FindSources(paths, p.cfg.IgnoreDirs)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		logWarning("%s", i18n.T("No source files found"))
		return nil
	}
	logInfo(i18n.T("Scanning %d file(s)"), len(files))

	var total, touched int
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !extract.Detectable(file) {
			logWarning(i18n.T("Skipping %s: unsupported file type"), p.relPath(file))
			continue
		}

		res, err := p.extractor.ExtractFile(ctx, file, dryRun, save)
		if err != nil {
			return err
		}
		if len(res.Extracts) == 0 {
			continue
		}
		total += len(res.Extracts)
		touched++

		if dryRun {
			printPlan(out, p.relPath(file), res.Extracts)
			continue
		}
		logSuccess(i18n.N("%s: %d string extracted", "%s: %d strings extracted", len(res.Extracts)), p.relPath(file), len(res.Extracts))
	}

	switch {
	case total == 0:
		logInfo("%s", i18n.T("No hard-coded strings found"))
	case dryRun:
		logInfo(i18n.T("Dry run: %d string(s) in %d file(s) would be extracted"), total, touched)
	default:
		logSuccess(i18n.T("Extracted %d string(s) from %d file(s)"), total, touched)
		p.log.Debug().
			Int("keys", len(p.store.Keys())).
			Strs("locales", p.store.Locales()).
			Msg("catalog updated")
	}
	return nil
}

func printPlan(out io.Writer, file string, extracts []extract.ExtractInfo) {
	for _, e := range extracts {
		fmt.Fprintf(out, "%s:%s\t%q -> %s\n", file, e.Range.Start, e.Message, e.ReplaceTo)
	}
}

// ---------------------------------------------------------------------------
// lookup
// ---------------------------------------------------------------------------

var errNoKey = errors.New("no key found")

func newLookupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup TEXT",
		Short: i18n.T("Find the catalog key holding a text"),
		Long: i18n.T(`Search the source language catalog for a message equal to TEXT (ignoring
surrounding whitespace) and print its key with every translation.`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject()
			if err != nil {
				return err
			}

			key := p.store.SearchKeyForTranslations(args[0])
			if key == "" {
				return fmt.Errorf("%w: %q", errNoKey, args[0])
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, key)
			node, _ := p.store.NodeByKey(key)
			for _, locale := range node.Locales() {
				fmt.Fprintf(out, "  %-8s %s\n", locale, node.Value(locale))
			}
			return nil
		},
	}

	return cmd
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: i18n.T("Show version information"),
		Long:  i18n.T(`Display version, commit hash, and build date.`),
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "i18nkey version %s\n", version)
			fmt.Fprintf(out, "  commit:    %s\n", commit)
			fmt.Fprintf(out, "  built:     %s\n", date)
		},
	}

	return cmd
}
