package translate

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSettings(url string) Settings {
	return Settings{
		BaseURL:    url,
		GoogleURL:  url,
		APIKey:     "secret",
		Model:      "test-model",
		MaxRetries: 2,
		Backoff:    time.Millisecond,
	}
}

// ---------------------------------------------------------------------------
// google
// ---------------------------------------------------------------------------

func TestGoogleEngine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/translate_a/single", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "gtx", q.Get("client"))
		assert.Equal(t, "auto", q.Get("sl"))
		assert.Equal(t, "en", q.Get("tl"))
		assert.Equal(t, "Hallo Welt. Wie geht's?", q.Get("q"))
		io.WriteString(w, `[[["Hello world. ","Hallo Welt.",null,null,10],["How are you?","Wie geht's?",null,null,10]],null,"de",null,null,null,1]`)
	}))
	defer srv.Close()

	tr := New(testSettings(srv.URL))
	res, err := tr.Translate(context.Background(), Options{Engine: EngineGoogle, Text: "Hallo Welt. Wie geht's?", To: "en"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello world. How are you?"}, res.Texts)
	assert.Equal(t, "de", res.Detected)
	assert.Equal(t, "Hello world. How are you?", res.First())
}

func TestParseGoogleResponseErrors(t *testing.T) {
	_, err := parseGoogleResponse([]byte(`not json`))
	require.Error(t, err)

	_, err = parseGoogleResponse([]byte(`{"error":"x"}`))
	require.Error(t, err)

	res, err := parseGoogleResponse([]byte(`[[],null,"en"]`))
	require.NoError(t, err)
	assert.Empty(t, res.Texts)
}

// ---------------------------------------------------------------------------
// LLM engines
// ---------------------------------------------------------------------------

func TestOpenAICompatibleEngine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body.Model)
		require.Len(t, body.Messages, 2)
		assert.Contains(t, body.Messages[0].Content, "to en")
		assert.Equal(t, "你好世界", body.Messages[1].Content)

		io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"\"Hello World\"\n"}}]}`)
	}))
	defer srv.Close()

	tr := New(testSettings(srv.URL))
	for _, engine := range []string{EngineOpenAI, EngineGroq, EngineCustomOpenAI} {
		res, err := tr.Translate(context.Background(), Options{Engine: engine, Text: "你好世界", From: "zh", To: "en"})
		require.NoError(t, err, engine)
		assert.Equal(t, "Hello World", res.First(), engine)
	}
}

func TestGeminiEngine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))
		io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"Save changes"}]}}]}`)
	}))
	defer srv.Close()

	tr := New(testSettings(srv.URL))
	res, err := tr.Translate(context.Background(), Options{Engine: EngineGemini, Text: "Änderungen speichern", To: "en"})
	require.NoError(t, err)
	assert.Equal(t, "Save changes", res.First())
}

func TestCustomOpenAIRequiresBaseURL(t *testing.T) {
	tr := New(Settings{})
	_, err := tr.Translate(context.Background(), Options{Engine: EngineCustomOpenAI, Text: "x", To: "en"})
	require.Error(t, err)
}

// ---------------------------------------------------------------------------
// Dispatch
// ---------------------------------------------------------------------------

func TestTranslatorDispatch(t *testing.T) {
	tr := &Translator{}
	tr.Register("echo", EngineFunc(func(_ context.Context, req Request) (Result, error) {
		return Result{Texts: []string{req.From + ":" + req.To + ":" + req.Text}}, nil
	}))
	tr.Register("silent", EngineFunc(func(context.Context, Request) (Result, error) {
		return Result{}, nil
	}))

	res, err := tr.Translate(context.Background(), Options{Engine: "echo", Text: "hi", To: "de"})
	require.NoError(t, err)
	assert.Equal(t, "auto:de:hi", res.First())

	_, err = tr.Translate(context.Background(), Options{Engine: "missing", Text: "hi"})
	assert.ErrorIs(t, err, ErrUnknownEngine)

	_, err = tr.Translate(context.Background(), Options{Engine: "silent", Text: "hi"})
	assert.ErrorIs(t, err, ErrEmptyResult)

	res, err = tr.Translate(context.Background(), Options{Engine: "echo", Text: "   "})
	require.NoError(t, err)
	assert.Empty(t, res.Texts)

	assert.Equal(t, []string{"echo", "silent"}, tr.Engines())
}

func TestBuiltinEngines(t *testing.T) {
	tr := New(Settings{})
	assert.Equal(t, []string{"custom-openai", "gemini", "google", "groq", "ollama", "openai"}, tr.Engines())
}

// ---------------------------------------------------------------------------
// Retry policy
// ---------------------------------------------------------------------------

func TestRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		io.WriteString(w, `[[["ok","ok"]],null,"en"]`)
	}))
	defer srv.Close()

	tr := New(testSettings(srv.URL))
	res, err := tr.Translate(context.Background(), Options{Engine: EngineGoogle, Text: "ok", To: "en"})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.First())
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestRetriesRateLimit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		io.WriteString(w, `[[["ok","ok"]],null,"en"]`)
	}))
	defer srv.Close()

	tr := New(testSettings(srv.URL))
	_, err := tr.Translate(context.Background(), Options{Engine: EngineGoogle, Text: "ok", To: "en"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tr := New(testSettings(srv.URL))
	_, err := tr.Translate(context.Background(), Options{Engine: EngineGoogle, Text: "ok", To: "en"})
	require.Error(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestNegativeMaxRetriesDisablesRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := testSettings(srv.URL)
	s.MaxRetries = -1
	_, err := New(s).Translate(context.Background(), Options{Engine: EngineGoogle, Text: "ok", To: "en"})
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"invalid api key"}}`)
	}))
	defer srv.Close()

	tr := New(testSettings(srv.URL))
	_, err := tr.Translate(context.Background(), Options{Engine: EngineOpenAI, Text: "ok", To: "en"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key")
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := New(testSettings("http://127.0.0.1:1"))
	_, err := tr.Translate(ctx, Options{Engine: EngineGoogle, Text: "ok", To: "en"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRequestsPerSecondPacesCalls(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		io.WriteString(w, `[[["ok","ok"]],null,"en"]`)
	}))
	defer srv.Close()

	s := testSettings(srv.URL)
	s.RequestsPerSecond = 20
	tr := New(s)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := tr.Translate(context.Background(), Options{Engine: EngineGoogle, Text: "ok", To: "en"})
		require.NoError(t, err)
	}
	// The first request uses the burst; the next two wait 50ms each.
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestRequestsPerSecondHonorsContext(t *testing.T) {
	s := testSettings("http://127.0.0.1:1")
	s.RequestsPerSecond = 0.001
	tr := New(s)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// Burst token is spent by the first attempt; the retry must give up.
	_, err := tr.Translate(ctx, Options{Engine: EngineGoogle, Text: "ok", To: "en"})
	require.Error(t, err)
}

func TestParseRetryDelay(t *testing.T) {
	fallback := 7 * time.Second

	assert.Equal(t, 3*time.Second, parseRetryDelay("3", nil, fallback))
	assert.Equal(t, maxRetryDelay, parseRetryDelay("99999", nil, fallback))

	body := []byte(`{"error":{"details":[{"@type":"type.googleapis.com/google.rpc.RetryInfo","retryDelay":"1.5s"}]}}`)
	assert.Equal(t, 1500*time.Millisecond, parseRetryDelay("", body, fallback))

	assert.Equal(t, fallback, parseRetryDelay("", []byte(`{}`), fallback))
}

func TestCleanModelOutput(t *testing.T) {
	tests := map[string]string{
		"Hello":                   "Hello",
		"  \"Hello\"  ":           "Hello",
		"```\nHello\n```":         "Hello",
		"Hello\nExplanation: ...": "Hello",
		"“Quoted”":                "Quoted",
	}
	for in, want := range tests {
		assert.Equal(t, want, cleanModelOutput(in), in)
	}
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "https://x.test/v?key=REDACTED", redact("https://x.test/v?key=abc"))
	assert.Equal(t, "https://x.test/v?q=1", redact("https://x.test/v?q=1"))
}
