package notifier

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"GoldSentinel/internal/model"
	"GoldSentinel/internal/strategy"
)

const (
	separator  = "➖➖➖➖➖➖➖➖"
	disclaimer = "⚠️ <i>(การลงทุนมีความเสี่ยง โปรดใช้วิจารณญาณ)</i>"
)

// Price renders v with two decimals.
func Price(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func num(v model.Value, places int32) string {
	if !v.Ready {
		return "n/a"
	}
	return decimal.NewFromFloat(v.V).StringFixed(places)
}

// distance renders to-from with an explicit sign.
func distance(from, to float64) string {
	d := decimal.NewFromFloat(to).Sub(decimal.NewFromFloat(from)).Round(2)
	if d.IsPositive() {
		return "+" + d.StringFixed(2)
	}
	return d.StringFixed(2)
}

var signalLabels = map[model.SignalKind]string{
	model.SignalRSIOverbought:   "RSI Overbought (ซื้อมากเกินไป)",
	model.SignalRSIOversold:     "RSI Oversold (ขายมากเกินไป)",
	model.SignalMACDGoldenCross: "MACD Golden Cross 🟢",
	model.SignalMACDDeathCross:  "MACD Death Cross 🔴",
}

func trendLabel(a *model.Analysis) string {
	switch {
	case !a.TrendReady:
		return "⚪ n/a"
	case a.Trend == model.TrendBullish:
		return "🟢 Bullish"
	default:
		return "🔴 Bearish"
	}
}

func writePlan(b *strings.Builder, price float64, p model.PlanSet) {
	if !p.Ready {
		b.WriteString("• n/a (ข้อมูลไม่พอ)\n")
		return
	}
	fmt.Fprintf(b, "• BUY  SL %s (%s) | TP %s (%s)\n",
		Price(p.Buy.SL), distance(price, p.Buy.SL), Price(p.Buy.TP), distance(price, p.Buy.TP))
	fmt.Fprintf(b, "• SELL SL %s (%s) | TP %s (%s)\n",
		Price(p.Sell.SL), distance(price, p.Sell.SL), Price(p.Sell.TP), distance(price, p.Sell.TP))
	if !strategy.Actionable(p) {
		b.WriteString("  ⚠️ ระยะ SL/TP เป็นศูนย์ ไม่ควรใช้แผนนี้\n")
	}
}

// FormatTechnicalReport renders the market analysis. aiText may be empty,
// in which case the AI section is omitted.
func FormatTechnicalReport(a *model.Analysis, aiText string) string {
	c := a.Current
	var b strings.Builder

	fmt.Fprintf(&b, "📈 <b>Technical Analyst (%s)</b>\n", strings.ToUpper(Escape(a.Interval)))
	fmt.Fprintf(&b, "💰 ราคา: <b>%s</b>\n", Price(c.Close))
	b.WriteString(separator + "\n")

	b.WriteString("📊 <b>Indicators:</b>\n")
	fmt.Fprintf(&b, "• RSI: %s\n", num(c.RSI, 1))
	fmt.Fprintf(&b, "• MACD: %s / %s (hist %s)\n", num(c.MACD, 2), num(c.MACDSignal, 2), num(c.MACDHist, 2))
	fmt.Fprintf(&b, "• EMA: %s\n", num(c.EMA, 2))
	fmt.Fprintf(&b, "• ATR: %s\n", num(c.ATR, 2))
	fmt.Fprintf(&b, "• Trend: %s\n", trendLabel(a))

	if len(a.Signals) > 0 {
		b.WriteString("\n🔔 <b>Signals:</b>\n")
		for _, s := range a.Signals {
			fmt.Fprintf(&b, "• %s\n", signalLabels[s])
		}
	}

	b.WriteString("\n🎯 <b>แผน ATR (Volatility):</b>\n")
	writePlan(&b, c.Close, a.Plans.Volatility)
	fmt.Fprintf(&b, "\n🧱 <b>แผน Swing (Structure):</b> High %s / Low %s\n", num(c.SwingHigh, 2), num(c.SwingLow, 2))
	writePlan(&b, c.Close, a.Plans.Structure)

	if aiText != "" {
		b.WriteString("\n🧠 <b>AI Strategy:</b>\n")
		b.WriteString(SanitizeHTML(aiText))
		b.WriteString("\n")
	}
	b.WriteString("\n" + disclaimer)
	return b.String()
}

// FormatNewsAlert renders one headline with the model's assessment.
func FormatNewsAlert(item model.FeedItem, aiText string) string {
	var b strings.Builder
	b.WriteString("📰 <b>VinzentNews Alert!</b>\n")
	b.WriteString(separator + "\n")
	fmt.Fprintf(&b, "<b>%s</b>\n\n", Escape(item.Title))
	if aiText != "" {
		b.WriteString(SanitizeHTML(aiText))
	} else {
		b.WriteString("⚠️ AI วิเคราะห์ไม่ได้")
	}
	if item.Link != "" {
		fmt.Fprintf(&b, "\n\n🔗 <a href=\"%s\">อ่านข่าวเต็ม</a>", Escape(item.Link))
	}
	return b.String()
}

// FormatVideoReport renders a summarized video.
func FormatVideoReport(channel string, item model.FeedItem, summary string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎥 <b>Spy Report: %s</b>\n\n", Escape(channel))
	fmt.Fprintf(&b, "📺 <b>%s</b>\n\n", Escape(item.Title))
	b.WriteString("📝 <b>สรุปเนื้อหา:</b>\n")
	b.WriteString(SanitizeHTML(summary))
	fmt.Fprintf(&b, "\n\n🔗 <a href=\"%s\">ดูคลิปเต็ม</a>", Escape(item.Link))
	return b.String()
}

// FormatVideoNotice announces a new video that could not be summarized,
// either for lack of subtitles or because the model failed.
func FormatVideoNotice(channel string, item model.FeedItem, reason string) string {
	return fmt.Sprintf("🎥 <b>คลิปใหม่! (%s)</b>\n📺 %s\n⚠️ (%s)\n🔗 %s",
		Escape(channel), Escape(item.Title), Escape(reason), Escape(item.Link))
}

// FormatPlan wraps the model's daily plan.
func FormatPlan(aiText string) string {
	return SanitizeHTML(aiText)
}

// FormatSystemError is sent when a job cannot produce its message.
func FormatSystemError(job string, err error) string {
	return fmt.Sprintf("⚠️ <b>ระบบขัดข้อง</b> (%s): %s", Escape(job), Escape(err.Error()))
}

// FormatHelp lists the daemon's chat commands.
func FormatHelp() string {
	return strings.Join([]string{
		"🤖 <b>GoldSentinel</b>",
		"/technical - วิเคราะห์กราฟทอง (RSI, MACD, EMA, ATR)",
		"/news - เช็คข่าวทองล่าสุด",
		"/youtube - สรุปคลิปใหม่จากช่องที่ติดตาม",
		"/plan - แผนเทรดประจำวัน",
		"/help - แสดงคำสั่งทั้งหมด",
	}, "\n")
}
