package calculator

import (
	"errors"
	"math"
)

// MACDSeries returns the MACD line (fast EMA - slow EMA), the signal line
// (EMA of the MACD line, seeded from its first defined value) and the histogram.
func MACDSeries(closes []float64, fast, slow, signal int) (line, sig, hist []float64, err error) {
	if fast <= 0 || slow <= 0 || signal <= 0 {
		return nil, nil, nil, errPeriod
	}
	if fast >= slow {
		return nil, nil, nil, errors.New("fast period must be smaller than slow period")
	}

	fastEMA, _ := EMASeries(closes, fast)
	slowEMA, _ := EMASeries(closes, slow)

	n := len(closes)
	line = nanSeries(n)
	for i := range closes {
		if math.IsNaN(fastEMA[i]) || math.IsNaN(slowEMA[i]) {
			continue
		}
		line[i] = fastEMA[i] - slowEMA[i]
	}

	sig = nanSeries(n)
	hist = nanSeries(n)
	start := firstValid(line)
	if start < 0 {
		return line, sig, hist, nil
	}
	signalRaw, _ := EMASeries(line[start:], signal)
	for j, v := range signalRaw {
		i := start + j
		sig[i] = v
		if !math.IsNaN(v) {
			hist[i] = line[i] - v
		}
	}
	return line, sig, hist, nil
}
