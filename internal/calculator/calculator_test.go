package calculator

import (
	"math"
	"testing"
	"time"

	"GoldSentinel/internal/model"
)

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (diff=%.6f)", label, got, want, math.Abs(got-want))
	}
}

func bar(h, l, c float64) model.Bar {
	return model.Bar{Time: time.Unix(0, 0), Open: c, High: h, Low: l, Close: c}
}

func TestCalculateSMA(t *testing.T) {
	sma, err := CalculateSMA([]float64{1, 2, 3, 4, 5}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertClose(t, "SMA(3)", sma, 4.0, 1e-9)

	if _, err := CalculateSMA([]float64{1, 2}, 3); err == nil {
		t.Error("expected error for insufficient data")
	}
	if _, err := CalculateSMA([]float64{1, 2}, 0); err == nil {
		t.Error("expected error for zero period")
	}
}

func TestEMASeries_HandCalculated(t *testing.T) {
	// Seed = (1+2+3)/3 = 2, k = 0.5
	// idx3: (4-2)*0.5+2 = 3; idx4: (5-3)*0.5+3 = 4
	ema, err := EMASeries([]float64{1, 2, 3, 4, 5}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 2; i++ {
		if !math.IsNaN(ema[i]) {
			t.Errorf("idx %d: expected NaN warm-up, got %f", i, ema[i])
		}
	}
	assertClose(t, "EMA idx2", ema[2], 2, 1e-9)
	assertClose(t, "EMA idx3", ema[3], 3, 1e-9)
	assertClose(t, "EMA idx4", ema[4], 4, 1e-9)
}

func TestEMASeries_MonotonicIncreasing(t *testing.T) {
	closes := make([]float64, 300)
	for i := range closes {
		closes[i] = 100 + float64(i)*0.5
	}
	ema, _ := EMASeries(closes, 50)
	maxSeen := math.Inf(-1)
	for i, c := range closes {
		if c > maxSeen {
			maxSeen = c
		}
		if math.IsNaN(ema[i]) {
			continue
		}
		if ema[i] > maxSeen {
			t.Fatalf("idx %d: EMA %.4f exceeds max close %.4f", i, ema[i], maxSeen)
		}
		if i >= 50 && ema[i] >= c {
			t.Fatalf("idx %d: EMA %.4f should stay below rising price %.4f", i, ema[i], c)
		}
	}
}

func TestEMASeries_ShortInput(t *testing.T) {
	ema, err := EMASeries([]float64{1, 2}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if firstValid(ema) != -1 {
		t.Error("expected all NaN for input shorter than period")
	}
}

func TestRSISeries_ConstantPrice(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 2000
	}
	rsi, _ := RSISeries(closes, 14)
	for i := 14; i < len(rsi); i++ {
		if rsi[i] != 100 {
			t.Fatalf("idx %d: expected RSI=100 for flat prices, got %f", i, rsi[i])
		}
	}
	if !math.IsNaN(rsi[13]) {
		t.Errorf("expected NaN before index period, got %f", rsi[13])
	}
}

func TestRSISeries_HandCalculated(t *testing.T) {
	// period 2; changes +1,-1 -> avgGain 0.5, avgLoss 0.5 -> RSI 50
	// next change +2 -> avgGain 1.25, avgLoss 0.25 -> RS 5 -> 83.333
	rsi, _ := RSISeries([]float64{1, 2, 1, 3}, 2)
	assertClose(t, "RSI idx2", rsi[2], 50, 1e-9)
	assertClose(t, "RSI idx3", rsi[3], 100-100.0/6.0, 1e-9)
}

func TestRSISeries_Bounds(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 - float64(i)
	}
	rsi, _ := RSISeries(closes, 14)
	assertClose(t, "falling RSI", rsi[len(rsi)-1], 0, 1e-9)

	for i := range closes {
		closes[i] = 100 + 3*math.Sin(float64(i))
	}
	rsi, _ = RSISeries(closes, 14)
	for i := 14; i < len(rsi); i++ {
		if rsi[i] < 0 || rsi[i] > 100 {
			t.Fatalf("idx %d: RSI out of range: %f", i, rsi[i])
		}
	}
}

func TestATRSeries_HandCalculated(t *testing.T) {
	bars := []model.Bar{
		bar(10, 8, 9),
		bar(11, 9, 10),  // TR = 2
		bar(12, 10, 11), // TR = 2
		bar(15, 11, 14), // TR = 4
	}
	atr, err := ATRSeries(bars, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !math.IsNaN(atr[1]) {
		t.Errorf("expected NaN at idx1, got %f", atr[1])
	}
	assertClose(t, "ATR idx2", atr[2], 2, 1e-9)
	assertClose(t, "ATR idx3", atr[3], 3, 1e-9)
}

func TestTrueRange_Gap(t *testing.T) {
	// Gap up: previous close far below today's low.
	assertClose(t, "gap up", TrueRange(110, 108, 100), 10, 1e-9)
	assertClose(t, "gap down", TrueRange(92, 90, 100), 10, 1e-9)
	assertClose(t, "inside", TrueRange(105, 95, 100), 10, 1e-9)
}

func TestMACDSeries_Readiness(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i%7)
	}
	line, sig, hist, err := MACDSeries(closes, 12, 26, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if firstValid(line) != 25 {
		t.Errorf("MACD line first valid: got %d, want 25", firstValid(line))
	}
	if firstValid(sig) != 33 {
		t.Errorf("signal first valid: got %d, want 33", firstValid(sig))
	}
	last := len(closes) - 1
	assertClose(t, "histogram", hist[last], line[last]-sig[last], 1e-12)
}

func TestMACDSeries_ConstantPriceIsZero(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 1950
	}
	line, sig, hist, _ := MACDSeries(closes, 12, 26, 9)
	last := len(closes) - 1
	assertClose(t, "line", line[last], 0, 1e-9)
	assertClose(t, "signal", sig[last], 0, 1e-9)
	assertClose(t, "hist", hist[last], 0, 1e-9)
}

func TestMACDSeries_InvalidPeriods(t *testing.T) {
	if _, _, _, err := MACDSeries([]float64{1}, 26, 12, 9); err == nil {
		t.Error("expected error when fast >= slow")
	}
	if _, _, _, err := MACDSeries([]float64{1}, 0, 12, 9); err == nil {
		t.Error("expected error for zero period")
	}
}

func TestSwingSeries(t *testing.T) {
	bars := []model.Bar{
		bar(10, 5, 8),
		bar(12, 7, 11),
		bar(11, 6, 9),
		bar(9, 8, 8.5),
	}
	high, low, err := SwingSeries(bars, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !math.IsNaN(high[1]) || !math.IsNaN(low[1]) {
		t.Error("expected NaN inside the warm-up window")
	}
	assertClose(t, "high idx2", high[2], 12, 0)
	assertClose(t, "low idx2", low[2], 5, 0)
	assertClose(t, "high idx3", high[3], 12, 0)
	assertClose(t, "low idx3", low[3], 6, 0)

	if _, _, err := SwingSeries(bars, 0); err == nil {
		t.Error("expected error for zero window")
	}
}
