package collector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"GoldSentinel/internal/logger"
	"GoldSentinel/internal/metrics"
	"GoldSentinel/internal/model"
)

// Collector loads the configured symbol's bar series through a Fetcher.
type Collector struct {
	Fetcher  Fetcher
	Symbol   string
	Period   string
	Interval string
	Timeout  time.Duration
	Metrics  *metrics.Metrics
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, symbol, period, interval string, timeout time.Duration, m *metrics.Metrics) *Collector {
	return &Collector{
		Fetcher:  fetcher,
		Symbol:   symbol,
		Period:   period,
		Interval: interval,
		Timeout:  timeout,
		Metrics:  m,
	}
}

// Load performs a single bounded fetch. Failures are never retried.
func (c *Collector) Load(ctx context.Context) (model.BarSeries, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ctx, span := logger.StartSpan(ctx, "collector.Load")
	defer span.End()

	start := time.Now()
	series, err := c.Fetcher.FetchBars(ctx, c.Symbol, c.Period, c.Interval)
	if c.Metrics != nil {
		c.Metrics.ObserveFetch(c.Fetcher.Name(), start)
	}
	if err != nil {
		logger.ErrorWithErr(ctx, "bar fetch failed", err,
			zap.String("source", c.Fetcher.Name()), zap.String("symbol", c.Symbol))
		return model.BarSeries{}, fmt.Errorf("load %s: %w", c.Symbol, err)
	}
	if series.Len() == 0 {
		return model.BarSeries{}, fmt.Errorf("load %s: %w", c.Symbol, unavailable("empty series"))
	}

	last := series.Last()
	if c.Metrics != nil {
		c.Metrics.LastClose.WithLabelValues(c.Symbol).Set(last.Close)
	}
	logger.Info(ctx, "bars loaded",
		zap.String("source", c.Fetcher.Name()),
		zap.String("symbol", c.Symbol),
		zap.Int("bars", series.Len()),
		zap.Time("last_bar", last.Time),
		zap.Float64("last_close", last.Close),
	)
	return series, nil
}
