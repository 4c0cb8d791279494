// Package translate provides the translation engines used by the
// "translation" key generation strategy.
//
// Every engine implements the same small contract: translate one text from a
// source language to a target language. The Translator dispatches requests
// to engines by name, mirroring the provider table of the CLI:
//
//	google         Google Translate public endpoint (no key required)
//	gemini         Google AI generateContent (API key)
//	openai         OpenAI chat/completions (API key)
//	groq           Groq, OpenAI-compatible (API key)
//	ollama         Ollama local server, OpenAI-compatible
//	custom-openai  Any OpenAI-compatible endpoint (--base-url)
package translate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Engine identifiers.
const (
	EngineGoogle       = "google"
	EngineGemini       = "gemini"
	EngineOpenAI       = "openai"
	EngineGroq         = "groq"
	EngineOllama       = "ollama"
	EngineCustomOpenAI = "custom-openai"
)

// ErrUnknownEngine is returned for engine names that were never registered.
var ErrUnknownEngine = errors.New("unknown translation engine")

// ErrEmptyResult is returned when an engine answers without any text.
var ErrEmptyResult = errors.New("translation engine returned no text")

// Request is a single translation call.
type Request struct {
	Text string
	// From is a language code or "auto".
	From string
	To   string
}

// Options selects an engine for a Request.
type Options struct {
	Engine string
	Text   string
	From   string
	To     string
}

// Result is what an engine returns. Texts holds one or more candidate
// translations, best first.
type Result struct {
	Texts []string
	// Detected is the source language reported by the engine, if any.
	Detected string
}

// First returns the best translation or "".
func (r Result) First() string {
	if len(r.Texts) == 0 {
		return ""
	}
	return r.Texts[0]
}

// Engine translates text.
type Engine interface {
	Translate(ctx context.Context, req Request) (Result, error)
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(ctx context.Context, req Request) (Result, error)

// Translate calls f.
func (f EngineFunc) Translate(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}

// Settings configures the built-in HTTP engines.
type Settings struct {
	// APIKey authenticates against keyed engines.
	APIKey string
	// BaseURL overrides the default endpoint of the LLM engines.
	BaseURL string
	// GoogleURL overrides the Google Translate endpoint.
	GoogleURL string
	// Model is the model identifier for LLM engines.
	Model string
	// Proxy is an optional HTTP/HTTPS proxy URL.
	Proxy string
	// Timeout is the per-request timeout.
	Timeout time.Duration
	// MaxRetries bounds retries on transport errors, 5xx and 429. Zero
	// means the default of 3; a negative value disables retries.
	MaxRetries int
	// Backoff is the base delay for exponential backoff (default 1s).
	Backoff time.Duration
	// RequestsPerSecond paces outgoing requests, retries included; 0 disables it.
	RequestsPerSecond float64
	// Logger receives debug output for every attempt.
	Logger zerolog.Logger
}

func (s Settings) effectiveTimeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return 30 * time.Second
}

func (s Settings) effectiveMaxRetries() int {
	switch {
	case s.MaxRetries > 0:
		return s.MaxRetries
	case s.MaxRetries < 0:
		return 0
	}
	return 3
}

func (s Settings) effectiveBackoff() time.Duration {
	if s.Backoff > 0 {
		return s.Backoff
	}
	return time.Second
}

// Translator dispatches requests to registered engines.
type Translator struct {
	engines map[string]Engine
}

// New returns a Translator with every built-in engine registered.
func New(s Settings) *Translator {
	t := &Translator{engines: make(map[string]Engine)}
	c := newClient(s)

	t.Register(EngineGoogle, &googleEngine{client: c, baseURL: baseURLOr(s.GoogleURL, "https://translate.googleapis.com")})
	t.Register(EngineGemini, &llmEngine{
		client: c, format: formatGemini,
		baseURL: baseURLOr(s.BaseURL, "https://generativelanguage.googleapis.com"),
		apiKey:  s.APIKey, model: modelOr(s.Model, "gemini-2.0-flash"),
	})
	t.Register(EngineOpenAI, &llmEngine{
		client: c, format: formatOpenAIChat,
		baseURL: baseURLOr(s.BaseURL, "https://api.openai.com/v1"),
		apiKey:  s.APIKey, model: modelOr(s.Model, "gpt-4o-mini"),
	})
	t.Register(EngineGroq, &llmEngine{
		client: c, format: formatOpenAIChat,
		baseURL: baseURLOr(s.BaseURL, "https://api.groq.com/openai/v1"),
		apiKey:  s.APIKey, model: modelOr(s.Model, "llama-3.3-70b-versatile"),
	})
	t.Register(EngineOllama, &llmEngine{
		client: c, format: formatOpenAIChat,
		baseURL: baseURLOr(s.BaseURL, "http://localhost:11434/v1"),
		model:   modelOr(s.Model, "llama3.2"),
	})
	t.Register(EngineCustomOpenAI, &llmEngine{
		client: c, format: formatOpenAIChat,
		baseURL: s.BaseURL, apiKey: s.APIKey, model: s.Model,
	})

	return t
}

// Register adds or replaces an engine.
func (t *Translator) Register(name string, e Engine) {
	if t.engines == nil {
		t.engines = make(map[string]Engine)
	}
	t.engines[name] = e
}

// Engines returns the sorted registered engine names.
func (t *Translator) Engines() []string {
	names := make([]string, 0, len(t.engines))
	for name := range t.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Translate runs opts through the named engine.
func (t *Translator) Translate(ctx context.Context, opts Options) (Result, error) {
	e, ok := t.engines[opts.Engine]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q (available: %s)", ErrUnknownEngine, opts.Engine, strings.Join(t.Engines(), ", "))
	}
	if strings.TrimSpace(opts.Text) == "" {
		return Result{}, nil
	}

	from := opts.From
	if from == "" {
		from = "auto"
	}
	res, err := e.Translate(ctx, Request{Text: opts.Text, From: from, To: opts.To})
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", opts.Engine, err)
	}
	if len(res.Texts) == 0 {
		return Result{}, fmt.Errorf("%s: %w", opts.Engine, ErrEmptyResult)
	}
	return res, nil
}

func baseURLOr(v, def string) string {
	if v != "" {
		return strings.TrimRight(v, "/")
	}
	return def
}

func modelOr(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
