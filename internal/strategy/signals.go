package strategy

import "GoldSentinel/internal/model"

// ClassifyTrend reports Bullish when the close is strictly above the EMA and
// Bearish otherwise, equality included. ok is false while the EMA is not ready.
func ClassifyTrend(s model.Snapshot) (trend model.Trend, ok bool) {
	if !s.EMA.Ready {
		return "", false
	}
	if s.Close > s.EMA.V {
		return model.TrendBullish, true
	}
	return model.TrendBearish, true
}

// DetectSignals compares the previous and current snapshots. Each signal is
// evaluated independently; one whose inputs are not ready never fires.
func DetectSignals(prev, curr model.Snapshot, cfg Config) []model.SignalKind {
	var out []model.SignalKind

	if curr.RSI.Ready {
		if curr.RSI.V > cfg.Overbought {
			out = append(out, model.SignalRSIOverbought)
		}
		if curr.RSI.V < cfg.Oversold {
			out = append(out, model.SignalRSIOversold)
		}
	}

	if prev.MACD.Ready && prev.MACDSignal.Ready && curr.MACD.Ready && curr.MACDSignal.Ready {
		if prev.MACD.V <= prev.MACDSignal.V && curr.MACD.V > curr.MACDSignal.V {
			out = append(out, model.SignalMACDGoldenCross)
		}
		if prev.MACD.V >= prev.MACDSignal.V && curr.MACD.V < curr.MACDSignal.V {
			out = append(out, model.SignalMACDDeathCross)
		}
	}
	return out
}
