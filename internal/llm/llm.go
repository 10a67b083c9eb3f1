// Package llm talks to hosted language models. Every job treats the model
// as optional: a failed or disabled call degrades the message, never the run.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"GoldSentinel/internal/logger"
	"GoldSentinel/internal/metrics"
)

// ErrDisabled is returned by the no-op provider.
var ErrDisabled = errors.New("language model disabled")

// Summarizer generates text for a prompt.
type Summarizer interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

// Options configures a provider.
type Options struct {
	Provider string // gemini, openai or none
	Model    string
	APIKey   string
	BaseURL  string
	Proxy    string
	Timeout  time.Duration
}

// New builds the configured provider.
func New(opts Options) (Summarizer, error) {
	switch strings.ToLower(opts.Provider) {
	case "gemini":
		return NewGemini(opts), nil
	case "openai":
		return NewOpenAI(opts), nil
	case "none", "":
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
	}
}

// Noop is used when no provider is configured.
type Noop struct{}

func (Noop) Name() string { return "none" }

func (Noop) Generate(context.Context, string) (string, error) { return "", ErrDisabled }

type observed struct {
	next    Summarizer
	metrics *metrics.Metrics
}

// Observe wraps s with a span, a log line and a call counter per outcome.
func Observe(s Summarizer, m *metrics.Metrics) Summarizer {
	return &observed{next: s, metrics: m}
}

func (o *observed) Name() string { return o.next.Name() }

func (o *observed) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := logger.StartSpan(ctx, "llm.Generate")
	defer span.End()

	start := time.Now()
	out, err := o.next.Generate(ctx, prompt)
	status := "ok"
	switch {
	case errors.Is(err, ErrDisabled):
		status = "disabled"
	case err != nil:
		status = "error"
		logger.ErrorWithErr(ctx, "llm call failed", err, zap.String("provider", o.next.Name()))
	default:
		logger.Debug(ctx, "llm call done",
			zap.String("provider", o.next.Name()),
			zap.Int("prompt_chars", len(prompt)),
			zap.Int("reply_chars", len(out)),
			zap.Duration("took", time.Since(start)),
		)
	}
	if o.metrics != nil {
		o.metrics.LLMCalls.WithLabelValues(o.next.Name(), status).Inc()
	}
	return out, err
}
