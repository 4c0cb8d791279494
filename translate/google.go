package translate

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

// googleEngine calls the public translate_a/single endpoint used by the
// Google Translate web widgets (client=gtx). No API key is needed.
//
// The response is a positional JSON array:
//
//	[[["Hello world","Hallo Welt",null,null,10],...],null,"de",...]
//
// Element 0 holds the translated segments, element 2 the detected language.
type googleEngine struct {
	client  *client
	baseURL string
}

func (g *googleEngine) Translate(ctx context.Context, req Request) (Result, error) {
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", req.From)
	q.Set("tl", req.To)
	q.Set("dt", "t")
	q.Set("q", req.Text)
	endpoint := g.baseURL + "/translate_a/single?" + q.Encode()

	body, err := g.client.do(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return Result{}, err
	}
	return parseGoogleResponse(body)
}

func parseGoogleResponse(body []byte) (Result, error) {
	if !gjson.ValidBytes(body) {
		return Result{}, fmt.Errorf("invalid JSON response: %s", truncate(string(body), 200))
	}
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return Result{}, fmt.Errorf("unexpected response shape: %s", truncate(string(body), 200))
	}

	var b strings.Builder
	root.Get("0").ForEach(func(_, segment gjson.Result) bool {
		b.WriteString(segment.Get("0").String())
		return true
	})

	res := Result{Detected: root.Get("2").String()}
	if text := strings.TrimSpace(b.String()); text != "" {
		res.Texts = []string{text}
	}
	return res, nil
}
