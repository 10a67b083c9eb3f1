package scheduler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"GoldSentinel/internal/llm"
	"GoldSentinel/internal/logger"
	"GoldSentinel/internal/notifier"
	"GoldSentinel/internal/strategy"
)

// technicalJob analyses the latest bars and sends the report. The report
// goes out without the AI section when the model is unavailable.
func (s *Scheduler) technicalJob(ctx context.Context) error {
	series, err := s.Bars.Load(ctx)
	if err != nil {
		return fmt.Errorf("technical: %w", err)
	}

	a := strategy.Evaluate(series, s.Cfg.StrategyConfig())
	logger.Info(ctx, "analysis computed",
		zap.String("symbol", a.Symbol),
		zap.Int("bars", series.Len()),
		zap.Float64("close", a.Current.Close),
		zap.String("rsi", a.Current.RSI.String()),
		zap.Bool("trend_ready", a.TrendReady),
		zap.Int("signals", len(a.Signals)),
	)

	aiText, _ := s.ask(ctx, llm.TechnicalPrompt(a))
	return s.send(ctx, JobTechnical, notifier.FormatTechnicalReport(a, aiText))
}
