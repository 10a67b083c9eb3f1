package calculator

import (
	"math"

	"GoldSentinel/internal/model"
)

// TrueRange returns max(high-low, |high-prevClose|, |low-prevClose|).
func TrueRange(high, low, prevClose float64) float64 {
	return math.Max(high-low, math.Max(math.Abs(high-prevClose), math.Abs(low-prevClose)))
}

// ATRSeries computes the Wilder-smoothed average true range. True range is
// defined from the second bar, so the first value appears at index period and
// is the simple average of the first period true ranges.
func ATRSeries(bars []model.Bar, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errPeriod
	}
	out := nanSeries(len(bars))
	if len(bars) < period+1 {
		return out, nil
	}

	sum := 0.0
	for i := 1; i <= period; i++ {
		sum += TrueRange(bars[i].High, bars[i].Low, bars[i-1].Close)
	}
	atr := sum / float64(period)
	out[period] = atr

	p := float64(period)
	for i := period + 1; i < len(bars); i++ {
		tr := TrueRange(bars[i].High, bars[i].Low, bars[i-1].Close)
		atr = (atr*(p-1) + tr) / p
		out[i] = atr
	}
	return out, nil
}
