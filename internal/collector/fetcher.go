package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"GoldSentinel/internal/httpclient"
	"GoldSentinel/internal/model"
)

// ErrDataUnavailable is returned, wrapped, for every fetch failure: network,
// timeout, non-200 status, decode error or an empty result.
var ErrDataUnavailable = errors.New("market data unavailable")

// DefaultTimeout bounds a single fetch when no timeout is configured.
const DefaultTimeout = httpclient.DefaultTimeout

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	FetchBars(ctx context.Context, symbol, period, interval string) (model.BarSeries, error)
	Name() string
}

func unavailable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDataUnavailable, fmt.Sprintf(format, args...))
}

// normalize drops bars with a non-positive price, sorts ascending and keeps
// the last occurrence of a duplicated timestamp.
func normalize(bars []model.Bar) []model.Bar {
	out := make([]model.Bar, 0, len(bars))
	for _, b := range bars {
		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			continue
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })

	dedup := out[:0]
	for _, b := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Time.Equal(b.Time) {
			dedup[n-1] = b
			continue
		}
		dedup = append(dedup, b)
	}
	return dedup
}

// MockFetcher returns fixed or generated data for development and testing.
type MockFetcher struct {
	Price  float64
	Count  int
	Series *model.BarSeries
	Err    error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchBars(_ context.Context, symbol, _, interval string) (model.BarSeries, error) {
	if m.Err != nil {
		return model.BarSeries{}, m.Err
	}
	if m.Series != nil {
		return *m.Series, nil
	}
	count := m.Count
	if count <= 0 {
		count = 120
	}
	return model.BarSeries{Symbol: symbol, Interval: interval, Bars: generateMockBars(m.Price, count)}, nil
}

func generateMockBars(basePrice float64, count int) []model.Bar {
	end := time.Now().Truncate(time.Hour)
	bars := make([]model.Bar, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.Bar{
			Time:   end.Add(-time.Duration(count-1-i) * time.Hour),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000,
		}
	}
	return bars
}
