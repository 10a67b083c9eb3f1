package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"GoldSentinel/internal/httpclient"
)

// OpenAI calls the chat-completions endpoint.
type OpenAI struct {
	BaseURL string
	Model   string
	APIKey  string
	Client  *http.Client
}

// NewOpenAI creates an OpenAI client.
func NewOpenAI(opts Options) *OpenAI {
	base := opts.BaseURL
	if base == "" {
		base = "https://api.openai.com"
	}
	model := opts.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAI{
		BaseURL: base,
		Model:   model,
		APIKey:  opts.APIKey,
		Client:  httpclient.New(opts.Proxy, opts.Timeout),
	}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	if o.APIKey == "" {
		return "", errors.New("openai: api key missing")
	}
	body, err := json.Marshal(map[string]any{
		"model":       o.Model,
		"messages":    []map[string]string{{"role": "user", "content": prompt}},
		"temperature": 0.4,
	})
	if err != nil {
		return "", fmt.Errorf("openai: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(o.BaseURL, "/")+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+o.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("openai: read body: %w", err)
	}
	if resp.StatusCode >= 300 {
		if msg := gjson.GetBytes(raw, "error.message").String(); msg != "" {
			return "", fmt.Errorf("openai http %d: %s", resp.StatusCode, msg)
		}
		return "", fmt.Errorf("openai http %d", resp.StatusCode)
	}

	out := strings.TrimSpace(gjson.GetBytes(raw, "choices.0.message.content").String())
	if out == "" {
		return "", errors.New("openai: no choices")
	}
	return out, nil
}
