package model

import (
	"fmt"
	"math"
)

// Value is an indicator reading with an explicit readiness marker.
// Consumers must check Ready before using V.
type Value struct {
	V     float64
	Ready bool
}

// NewValue wraps v as a ready value. NaN and Inf are reported as not ready.
func NewValue(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Value{}
	}
	return Value{V: v, Ready: true}
}

// NotReady is the zero Value.
var NotReady = Value{}

func (v Value) String() string {
	if !v.Ready {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", v.V)
}

// Snapshot holds the indicator set as of one bar.
type Snapshot struct {
	Close      float64
	RSI        Value
	MACD       Value
	MACDSignal Value
	MACDHist   Value
	EMA        Value
	ATR        Value
	SwingHigh  Value
	SwingLow   Value
}

// Trend is the direction of price relative to the long EMA.
type Trend string

const (
	TrendBullish Trend = "BULLISH"
	TrendBearish Trend = "BEARISH"
)
