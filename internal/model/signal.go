package model

// SignalKind identifies a discrete indicator event.
type SignalKind string

const (
	SignalRSIOverbought   SignalKind = "RSI_OVERBOUGHT"
	SignalRSIOversold     SignalKind = "RSI_OVERSOLD"
	SignalMACDGoldenCross SignalKind = "MACD_GOLDEN_CROSS"
	SignalMACDDeathCross  SignalKind = "MACD_DEATH_CROSS"
)

// Level is a stop-loss / take-profit pair.
type Level struct {
	SL float64
	TP float64
}

// Width returns the distance between stop and target.
func (l Level) Width() float64 {
	if l.TP > l.SL {
		return l.TP - l.SL
	}
	return l.SL - l.TP
}

// PlanSet holds the buy and sell levels of one risk model.
type PlanSet struct {
	Buy   Level
	Sell  Level
	Ready bool
}

// TradePlans holds both risk models.
type TradePlans struct {
	Volatility PlanSet // ATR multiples
	Structure  PlanSet // swing high/low with fixed reward-to-risk
}

// Analysis is the full engine output for the last bar of a series.
type Analysis struct {
	Symbol     string
	Interval   string
	Current    Snapshot
	Previous   Snapshot
	Trend      Trend
	TrendReady bool
	Signals    []SignalKind
	Plans      TradePlans
}

// HasSignal reports whether kind fired.
func (a *Analysis) HasSignal(kind SignalKind) bool {
	for _, s := range a.Signals {
		if s == kind {
			return true
		}
	}
	return false
}
