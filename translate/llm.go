package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

type apiFormat int

const (
	formatOpenAIChat apiFormat = iota // OpenAI chat/completions
	formatGemini                      // Google generateContent
)

const systemPrompt = `You are a translation engine used to name localization keys.
Translate the user's text from %s to %s.
Return ONLY the translation as plain text: no quotes, no explanations, no markdown.`

// llmEngine translates through a chat-style model API.
type llmEngine struct {
	client  *client
	format  apiFormat
	baseURL string
	apiKey  string
	model   string
}

func (e *llmEngine) Translate(ctx context.Context, req Request) (Result, error) {
	if e.baseURL == "" {
		return Result{}, errors.New("base URL is not configured")
	}

	from := req.From
	if from == "" || from == "auto" {
		from = "the detected source language"
	}
	prompt := fmt.Sprintf(systemPrompt, from, req.To)

	endpoint, headers, body, err := e.buildRequest(prompt, req.Text)
	if err != nil {
		return Result{}, fmt.Errorf("building request: %w", err)
	}

	respBody, err := e.client.do(ctx, http.MethodPost, endpoint, headers, body)
	if err != nil {
		return Result{}, err
	}

	text, err := extractResponseText(respBody)
	if err != nil {
		return Result{}, err
	}
	text = cleanModelOutput(text)
	if text == "" {
		return Result{}, nil
	}
	return Result{Texts: []string{text}}, nil
}

func (e *llmEngine) buildRequest(prompt, text string) (string, map[string]string, []byte, error) {
	headers := map[string]string{
		"Content-Type": "application/json",
	}

	switch e.format {
	case formatGemini:
		endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", e.baseURL, e.model)
		if e.apiKey != "" {
			headers["x-goog-api-key"] = e.apiKey
		}
		body, err := buildGeminiRequest(prompt, text, 0.1)
		return endpoint, headers, body, err

	default:
		endpoint := e.baseURL
		if !strings.HasSuffix(endpoint, "/chat/completions") {
			endpoint += "/chat/completions"
		}
		if e.apiKey != "" {
			headers["Authorization"] = "Bearer " + e.apiKey
		}
		body, err := buildOpenAIChatRequest(e.model, prompt, text, 0.1)
		return endpoint, headers, body, err
	}
}

func buildOpenAIChatRequest(model, systemPrompt, userPrompt string, temperature float64) ([]byte, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	req := struct {
		Model       string  `json:"model"`
		Messages    []msg   `json:"messages"`
		Temperature float64 `json:"temperature"`
		Stream      bool    `json:"stream"`
	}{
		Model: model,
		Messages: []msg{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: temperature,
	}
	return json.Marshal(req)
}

func buildGeminiRequest(systemPrompt, userPrompt string, temperature float64) ([]byte, error) {
	type part struct {
		Text string `json:"text"`
	}
	type content struct {
		Role  string `json:"role,omitempty"`
		Parts []part `json:"parts"`
	}
	type genConfig struct {
		Temperature float64 `json:"temperature"`
	}
	req := struct {
		Contents          []content `json:"contents"`
		GenerationConfig  genConfig `json:"generationConfig"`
		SystemInstruction *content  `json:"systemInstruction,omitempty"`
	}{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: userPrompt}}},
		},
		GenerationConfig:  genConfig{Temperature: temperature},
		SystemInstruction: &content{Parts: []part{{Text: systemPrompt}}},
	}
	return json.Marshal(req)
}

// extractResponseText understands OpenAI chat and Gemini response bodies.
func extractResponseText(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("invalid JSON response: %s", truncate(string(body), 200))
	}
	if errMsg := gjson.GetBytes(body, "error.message"); errMsg.Exists() {
		return "", fmt.Errorf("API error: %s", errMsg.String())
	}

	for _, path := range []string{
		"choices.0.message.content",
		"candidates.0.content.parts.0.text",
	} {
		if r := gjson.GetBytes(body, path); r.Exists() {
			return r.String(), nil
		}
	}
	return "", fmt.Errorf("could not extract text from response: %s", truncate(string(body), 200))
}

// cleanModelOutput strips code fences, surrounding quotes and extra lines.
func cleanModelOutput(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.Trim(s, "\"'`“”")
	return strings.TrimSpace(s)
}
