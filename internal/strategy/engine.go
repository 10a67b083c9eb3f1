package strategy

import (
	"GoldSentinel/internal/calculator"
	"GoldSentinel/internal/model"
)

// Config holds indicator periods, signal thresholds and risk multiples.
type Config struct {
	RSIPeriod   int
	MACDFast    int
	MACDSlow    int
	MACDSignal  int
	EMAPeriod   int
	ATRPeriod   int
	SwingWindow int

	Overbought float64
	Oversold   float64

	ATRStopMult   float64
	ATRTargetMult float64
	RewardRisk    float64
}

// DefaultConfig returns RSI(14), MACD(12,26,9), EMA(200), ATR(14), swing 20,
// thresholds 70/30, ATR multiples 2/3 and a 2:1 structure reward-to-risk.
func DefaultConfig() Config {
	return Config{
		RSIPeriod:     14,
		MACDFast:      12,
		MACDSlow:      26,
		MACDSignal:    9,
		EMAPeriod:     200,
		ATRPeriod:     14,
		SwingWindow:   20,
		Overbought:    70,
		Oversold:      30,
		ATRStopMult:   2,
		ATRTargetMult: 3,
		RewardRisk:    2,
	}
}

// seriesSet holds every indicator series for one bar series.
type seriesSet struct {
	closes    []float64
	rsi       []float64
	macd      []float64
	macdSig   []float64
	macdHist  []float64
	ema       []float64
	atr       []float64
	swingHigh []float64
	swingLow  []float64
}

func computeSeries(series model.BarSeries, cfg Config) seriesSet {
	s := seriesSet{closes: series.Closes()}
	// Invalid periods leave a series nil, which reads as not ready.
	s.rsi, _ = calculator.RSISeries(s.closes, cfg.RSIPeriod)
	s.macd, s.macdSig, s.macdHist, _ = calculator.MACDSeries(s.closes, cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal)
	s.ema, _ = calculator.EMASeries(s.closes, cfg.EMAPeriod)
	s.atr, _ = calculator.ATRSeries(series.Bars, cfg.ATRPeriod)
	s.swingHigh, s.swingLow, _ = calculator.SwingSeries(series.Bars, cfg.SwingWindow)
	return s
}

func at(series []float64, i int) model.Value {
	if i < 0 || i >= len(series) {
		return model.NotReady
	}
	return model.NewValue(series[i])
}

func (s seriesSet) snapshotAt(i int) model.Snapshot {
	if i < 0 || i >= len(s.closes) {
		return model.Snapshot{}
	}
	return model.Snapshot{
		Close:      s.closes[i],
		RSI:        at(s.rsi, i),
		MACD:       at(s.macd, i),
		MACDSignal: at(s.macdSig, i),
		MACDHist:   at(s.macdHist, i),
		EMA:        at(s.ema, i),
		ATR:        at(s.atr, i),
		SwingHigh:  at(s.swingHigh, i),
		SwingLow:   at(s.swingLow, i),
	}
}

// ComputeSnapshot returns the indicator set as of the last bar.
func ComputeSnapshot(series model.BarSeries, cfg Config) model.Snapshot {
	return SnapshotAt(series, series.Len()-1, cfg)
}

// SnapshotAt returns the indicator set as of bar i. Only bars[0..i] are used.
func SnapshotAt(series model.BarSeries, i int, cfg Config) model.Snapshot {
	if i < 0 || i >= series.Len() {
		return model.Snapshot{}
	}
	window := model.BarSeries{Symbol: series.Symbol, Interval: series.Interval, Bars: series.Bars[:i+1]}
	return computeSeries(window, cfg).snapshotAt(i)
}

// Evaluate computes the snapshot of the last bar, compares it with the
// previous bar and derives trend, signals and trade plans.
func Evaluate(series model.BarSeries, cfg Config) *model.Analysis {
	a := &model.Analysis{Symbol: series.Symbol, Interval: series.Interval}
	n := series.Len()
	if n == 0 {
		return a
	}

	set := computeSeries(series, cfg)
	a.Current = set.snapshotAt(n - 1)
	a.Previous = set.snapshotAt(n - 2)
	a.Trend, a.TrendReady = ClassifyTrend(a.Current)
	a.Signals = DetectSignals(a.Previous, a.Current, cfg)
	a.Plans = ComputeTradePlans(a.Current.Close, a.Current.ATR, a.Current.SwingHigh, a.Current.SwingLow, cfg)
	return a
}
