package translate

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// maxRetryDelay caps server-advertised 429 delays.
const maxRetryDelay = 2 * time.Minute

// client wraps http.Client with the retry policy shared by all engines.
type client struct {
	http       *http.Client
	maxRetries int
	backoff    time.Duration
	log        zerolog.Logger
	// limiter paces attempts; nil means unlimited.
	limiter *rate.Limiter
}

func newClient(s Settings) *client {
	c := &client{
		http:       makeHTTPClient(s.Proxy, s.effectiveTimeout()),
		maxRetries: s.effectiveMaxRetries(),
		backoff:    s.effectiveBackoff(),
		log:        s.Logger,
	}
	if s.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(s.RequestsPerSecond), 1)
	}
	return c
}

func makeHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	// Explicit proxy wins over HTTP_PROXY/HTTPS_PROXY.
	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// do sends body to endpoint, retrying on transport errors, 5xx and 429.
// Other non-200 statuses fail immediately.
func (c *client) do(ctx context.Context, method, endpoint string, headers map[string]string, body []byte) ([]byte, error) {
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		var rdr io.Reader
		if body != nil {
			rdr = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, rdr)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		c.log.Debug().Int("attempt", attempt+1).Str("method", method).Str("url", redact(endpoint)).Msg("translate request")

		resp, err := c.http.Do(req)
		if err != nil {
			if attempt < c.maxRetries {
				if err := sleep(ctx, c.backoffFor(attempt)); err != nil {
					return nil, err
				}
				continue
			}
			return nil, fmt.Errorf("request failed: %w", err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("reading response: %w", readErr)
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			delay := parseRetryDelay(resp.Header.Get("Retry-After"), respBody, c.backoffFor(attempt))
			c.log.Warn().Dur("delay", delay).Int("attempt", attempt+1).Msg("rate limited")
			if attempt < c.maxRetries {
				if err := sleep(ctx, delay); err != nil {
					return nil, err
				}
				continue
			}
			return nil, fmt.Errorf("rate limited after %d retries: %s", c.maxRetries, truncate(string(respBody), 200))

		case resp.StatusCode >= 500:
			if attempt < c.maxRetries {
				if err := sleep(ctx, c.backoffFor(attempt)); err != nil {
					return nil, err
				}
				continue
			}
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(string(respBody), 200))

		case resp.StatusCode != http.StatusOK:
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, apiErrorMessage(respBody))
		}

		return respBody, nil
	}

	return nil, fmt.Errorf("exhausted all %d retries", c.maxRetries)
}

func (c *client) backoffFor(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * c.backoff
}

// parseRetryDelay reads Retry-After (seconds) or Google's RetryInfo detail.
func parseRetryDelay(header string, body []byte, fallback time.Duration) time.Duration {
	if header != "" {
		if secs, err := strconv.Atoi(strings.TrimSpace(header)); err == nil && secs >= 0 {
			return min(time.Duration(secs)*time.Second, maxRetryDelay)
		}
	}

	result := fallback
	gjson.GetBytes(body, "error.details").ForEach(func(_, detail gjson.Result) bool {
		delay := detail.Get("retryDelay").String()
		if delay == "" || !strings.Contains(detail.Raw, "RetryInfo") {
			return true
		}
		if secs, err := strconv.ParseFloat(strings.TrimSuffix(delay, "s"), 64); err == nil {
			result = min(time.Duration(secs*1000)*time.Millisecond, maxRetryDelay)
			return false
		}
		return true
	})
	return result
}

// apiErrorMessage extracts error.message from a JSON error body.
func apiErrorMessage(body []byte) string {
	if msg := gjson.GetBytes(body, "error.message"); msg.Exists() {
		return msg.String()
	}
	return truncate(string(body), 200)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// redact hides API keys passed as query parameters.
func redact(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	q := u.Query()
	if q.Has("key") {
		q.Set("key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
