package model

import "time"

// Bar represents a single OHLC candlestick.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// BarSeries holds bars for one symbol, sorted ascending by time.
type BarSeries struct {
	Symbol   string
	Interval string
	Bars     []Bar
}

// Len returns the number of bars in the series.
func (s BarSeries) Len() int { return len(s.Bars) }

// Last returns the most recent bar. The series must not be empty.
func (s BarSeries) Last() Bar { return s.Bars[len(s.Bars)-1] }

// Closes extracts the close prices in order.
func (s BarSeries) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}
