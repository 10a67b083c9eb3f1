package llm

import (
	"fmt"
	"strings"
	"time"

	"GoldSentinel/internal/model"
)

func price(v model.Value) string {
	if !v.Ready {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v.V)
}

func trendText(a *model.Analysis) string {
	if !a.TrendReady {
		return "ยังไม่พร้อม (ข้อมูลไม่พอสำหรับ EMA)"
	}
	if a.Trend == model.TrendBullish {
		return "ขาขึ้น"
	}
	return "ขาลง"
}

func planLine(side string, p model.PlanSet, l model.Level) string {
	if !p.Ready {
		return fmt.Sprintf("   - ถ้า %s: n/a", side)
	}
	return fmt.Sprintf("   - ถ้า %s: SL=%.2f, TP=%.2f", side, l.SL, l.TP)
}

// TechnicalPrompt asks for the best setup given the latest indicator set.
func TechnicalPrompt(a *model.Analysis) string {
	c := a.Current
	var b strings.Builder
	fmt.Fprintf(&b, "คุณคือผู้เชี่ยวชาญด้าน Technical Analysis ของทองคำ (%s)\n\n", a.Symbol)
	fmt.Fprintf(&b, "ข้อมูลตลาดล่าสุด (Timeframe %s):\n", a.Interval)
	fmt.Fprintf(&b, "- ราคาปัจจุบัน: %.2f\n", c.Close)
	fmt.Fprintf(&b, "- RSI: %s\n", price(c.RSI))
	fmt.Fprintf(&b, "- MACD Line: %s / Signal Line: %s\n", c.MACD, c.MACDSignal)
	fmt.Fprintf(&b, "- EMA: %s (เทรนด์หลัก: %s)\n", price(c.EMA), trendText(a))
	fmt.Fprintf(&b, "- ATR: %s\n", price(c.ATR))
	if len(a.Signals) > 0 {
		names := make([]string, len(a.Signals))
		for i, s := range a.Signals {
			names[i] = string(s)
		}
		fmt.Fprintf(&b, "- สัญญาณล่าสุด: %s\n", strings.Join(names, ", "))
	}

	b.WriteString("\nแผนสำรองที่เตรียมไว้ (Strategic Plan):\n")
	b.WriteString("1. แผน ATR (ตามความผันผวน):\n")
	b.WriteString(planLine("BUY", a.Plans.Volatility, a.Plans.Volatility.Buy) + "\n")
	b.WriteString(planLine("SELL", a.Plans.Volatility, a.Plans.Volatility.Sell) + "\n")
	b.WriteString("2. แผน Swing Structure (ตามแนวรับต้าน):\n")
	fmt.Fprintf(&b, "   - Swing High ล่าสุด: %s\n", price(c.SwingHigh))
	fmt.Fprintf(&b, "   - Swing Low ล่าสุด: %s\n", price(c.SwingLow))
	b.WriteString(planLine("BUY", a.Plans.Structure, a.Plans.Structure.Buy) + "\n")
	b.WriteString(planLine("SELL", a.Plans.Structure, a.Plans.Structure.Sell) + "\n")

	b.WriteString(`
คำสั่ง:
1. วิเคราะห์แนวโน้มปัจจุบัน (Trend & Momentum) ว่าควร Wait, Buy หรือ Sell
2. แนะนำ "Setup ที่ดีที่สุด" โดยเลือกตัวเลขจากแผน ATR หรือ Swing มาผสมกันตามความเหมาะสม
3. ระบุเหตุผลสั้นๆ ว่าเลือก SL/TP แบบไหนเพราะอะไร
4. ค่าที่เป็น n/a คือข้อมูลยังไม่พอ ห้ามเดาตัวเลขแทน
5. สรุปเป็นข้อความสั้นๆ ภาษาไทย เข้าใจง่าย ใส่ Emoji ใช้ได้เฉพาะแท็ก HTML <b> <i>
`)
	return b.String()
}

// NewsPrompt asks for impact, direction and a one-line summary of a headline.
func NewsPrompt(title, description string) string {
	return fmt.Sprintf(`วิเคราะห์ข่าวทองคำ (XAUUSD): %s
%s

ตอบสั้นๆ ในรูปแบบ HTML ของ Telegram (ใช้ได้เฉพาะ <b>):
<b>ความแรง:</b> (1-10)/10 🔥
<b>ทิศทาง:</b> (Bullish/Bearish/Neutral)
<b>สรุป:</b> 1 ประโยค`, title, description)
}

// VideoPrompt asks for a Thai bullet summary of a transcript. The caller
// truncates the transcript.
func VideoPrompt(channel, title, transcript string) string {
	return fmt.Sprintf(`สรุปคลิป YouTube: "%s" จากช่อง "%s"

เนื้อหา (Transcript, ตัดตอนมา):
%s

คำสั่ง:
1. สรุปประเด็นสำคัญเกี่ยวกับ "ราคาทองคำ" หรือ "ทิศทางเศรษฐกิจ"
2. ถ้ามีตัวเลขแนวรับ-แนวต้าน หรือคำแนะนำ (Buy/Sell) ให้ระบุ
3. เขียนเป็นภาษาไทย อ่านง่ายๆ ใช้ Bullet point ห้ามใช้ Markdown`, title, channel, transcript)
}

// PlanPrompt combines today's calendar and the latest headlines into a
// request for a daily trading plan rendered as Telegram HTML.
func PlanPrompt(now time.Time, events []model.CalendarEvent, headlines []string) string {
	date := now.Format("02/01/2006")

	var cal strings.Builder
	if len(events) == 0 {
		cal.WriteString("ไม่มี Event ในตารางวันนี้")
	}
	for _, ev := range events {
		when := "ทั้งวัน"
		if !ev.AllDay {
			when = ev.Time.In(now.Location()).Format("15:04")
		}
		fmt.Fprintf(&cal, "- [Calendar] %s | ความแรง: %s | %s", when, ev.Impact, ev.Title)
		if ev.Forecast != "" || ev.Previous != "" {
			fmt.Fprintf(&cal, " (คาด %s / ก่อนหน้า %s)", orDash(ev.Forecast), orDash(ev.Previous))
		}
		cal.WriteString("\n")
	}

	var news strings.Builder
	if len(headlines) == 0 {
		news.WriteString("ไม่มีหัวข้อข่าว")
	}
	for _, h := range headlines {
		fmt.Fprintf(&news, "- [News] %s\n", h)
	}

	return fmt.Sprintf(`Context:
วันนี้คือวันที่: %[1]s (เวลาท้องถิ่น %[2]s, เวลาในปฏิทินแปลงเป็นเวลาท้องถิ่นแล้ว)

ข้อมูล 1: ปฏิทินเศรษฐกิจ (เน้นเวลาและความแรง):
%[3]s
ข้อมูล 2: หัวข้อข่าวล่าสุดจากสำนักข่าว (เน้นอารมณ์ตลาด):
%[4]s
Task:
วิเคราะห์แผนเทรดทองคำ (XAUUSD) โดยใช้ข้อมูลทั้ง 2 ส่วนประกอบกัน

Instructions:
1. เช็คตาราง: หา Event ที่มีผลกับทอง (CPI, Fed, Jobless, GDP) และบอกช่วงเวลาที่ควร "ปิด EA"
2. เช็คอารมณ์ตลาดจากหัวข้อข่าว ว่ากำลังกังวลเรื่องอะไร
3. สรุปเป็นตารางเวลาหลบข่าวและคำแนะนำทิศทาง

Output Format (HTML Telegram, ใช้ได้เฉพาะ <b> <i>):
☯️ <b>Daily Plan: Hybrid Analysis</b>
📅 %[1]s
➖➖➖➖➖➖➖➖
🚨 <b>ตารางหลบข่าว:</b>
🕒 <b>[เวลา]</b> : <b>[ชื่อ Event]</b>
🔥 ความแรง: [High/Medium]
⛔ <b>ช่วงปิด EA:</b> [เช่น 19:00 - 20:30]
(ถ้าไม่มีข่าวแรง บอกว่า ✅ ทางสะดวก)
➖➖➖➖➖➖➖➖
🌍 <b>จับกระแสข่าว (Market Sentiment):</b>
[สรุปสั้นๆ]
🧠 <b>คำแนะนำวันนี้:</b>
[ฟันธงสั้นๆ]`, date, now.Format("15:04"), cal.String(), news.String())
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
