package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"GoldSentinel/internal/httpclient"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com"

// Gemini calls the generateContent REST endpoint.
type Gemini struct {
	BaseURL string
	Model   string
	APIKey  string
	Client  *http.Client
}

// NewGemini creates a Gemini client.
func NewGemini(opts Options) *Gemini {
	base := opts.BaseURL
	if base == "" {
		base = geminiBaseURL
	}
	model := opts.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &Gemini{
		BaseURL: base,
		Model:   model,
		APIKey:  opts.APIKey,
		Client:  httpclient.New(opts.Proxy, opts.Timeout),
	}
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	if g.APIKey == "" {
		return "", errors.New("gemini: api key missing")
	}
	body, err := json.Marshal(map[string]any{
		"contents": []map[string]any{
			{"role": "user", "parts": []map[string]string{{"text": prompt}}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("gemini: marshal: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", strings.TrimRight(g.BaseURL, "/"), url.PathEscape(g.Model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.APIKey)

	resp, err := g.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gemini: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if msg := gjson.GetBytes(raw, "error.message").String(); msg != "" {
			return "", fmt.Errorf("gemini http %d: %s", resp.StatusCode, msg)
		}
		return "", fmt.Errorf("gemini http %d", resp.StatusCode)
	}
	if reason := gjson.GetBytes(raw, "promptFeedback.blockReason").String(); reason != "" {
		return "", fmt.Errorf("gemini: prompt blocked: %s", reason)
	}

	var parts []string
	for _, p := range gjson.GetBytes(raw, "candidates.0.content.parts.#.text").Array() {
		parts = append(parts, p.String())
	}
	text := strings.TrimSpace(strings.Join(parts, ""))
	if text == "" {
		return "", fmt.Errorf("gemini: empty response (finish reason %q)",
			gjson.GetBytes(raw, "candidates.0.finishReason").String())
	}
	return text, nil
}
