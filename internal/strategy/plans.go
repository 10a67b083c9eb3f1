package strategy

import "GoldSentinel/internal/model"

// ComputeTradePlans derives stop-loss and take-profit levels for a long and a
// short entry at price under two risk models:
//
//	volatility: SL = price ∓ ATRStopMult·ATR, TP = price ± ATRTargetMult·ATR
//	structure:  SL at the swing extreme, TP at RewardRisk times the stop distance
//
// Levels are not checked against price; a zero ATR or a flat swing window
// yields SL == TP == price, which callers treat as non-actionable.
func ComputeTradePlans(price float64, atr, swingHigh, swingLow model.Value, cfg Config) model.TradePlans {
	var plans model.TradePlans

	if atr.Ready {
		plans.Volatility = model.PlanSet{
			Buy:   model.Level{SL: price - cfg.ATRStopMult*atr.V, TP: price + cfg.ATRTargetMult*atr.V},
			Sell:  model.Level{SL: price + cfg.ATRStopMult*atr.V, TP: price - cfg.ATRTargetMult*atr.V},
			Ready: true,
		}
	}

	if swingHigh.Ready && swingLow.Ready {
		plans.Structure = model.PlanSet{
			Buy:   model.Level{SL: swingLow.V, TP: price + cfg.RewardRisk*(price-swingLow.V)},
			Sell:  model.Level{SL: swingHigh.V, TP: price - cfg.RewardRisk*(swingHigh.V-price)},
			Ready: true,
		}
	}
	return plans
}

// Actionable reports whether a plan set has non-zero width on both sides.
func Actionable(p model.PlanSet) bool {
	return p.Ready && p.Buy.Width() > 0 && p.Sell.Width() > 0
}
