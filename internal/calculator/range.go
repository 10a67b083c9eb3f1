package calculator

import (
	"errors"
	"math"

	"GoldSentinel/internal/model"
)

// SwingSeries returns the rolling max(High) and min(Low) over the trailing
// window bars, inclusive of the current bar.
func SwingSeries(bars []model.Bar, window int) (high, low []float64, err error) {
	if window <= 0 {
		return nil, nil, errors.New("window must be positive")
	}
	high = nanSeries(len(bars))
	low = nanSeries(len(bars))
	for i := window - 1; i < len(bars); i++ {
		h := math.Inf(-1)
		l := math.Inf(1)
		for j := i - window + 1; j <= i; j++ {
			if bars[j].High > h {
				h = bars[j].High
			}
			if bars[j].Low < l {
				l = bars[j].Low
			}
		}
		high[i] = h
		low[i] = l
	}
	return high, low, nil
}
