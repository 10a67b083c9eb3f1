package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"GoldSentinel/internal/httpclient"
	"GoldSentinel/internal/model"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooFetcher implements Fetcher using the Yahoo Finance chart API.
type YahooFetcher struct {
	BaseURL   string
	Client    *http.Client
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(proxyURL string, timeout time.Duration) *YahooFetcher {
	return &YahooFetcher{
		BaseURL: yahooBaseURL,
		Client:  httpclient.New(proxyURL, timeout),
		SymbolMap: map[string]string{
			"XAUUSD": "XAUUSD=X",
			"GOLD":   "GC=F",
		},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// FetchBars downloads period of interval bars. The chart API returns columns
// (timestamp, open, high, ...) where halted sessions appear as null cells;
// those rows are skipped.
func (f *YahooFetcher) FetchBars(ctx context.Context, symbol, period, interval string) (model.BarSeries, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		f.BaseURL, url.PathEscape(f.yahooSymbol(symbol)), url.QueryEscape(interval), url.QueryEscape(period))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return model.BarSeries{}, unavailable("yahoo request: %v", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return model.BarSeries{}, fmt.Errorf("%w: yahoo fetch: %w", ErrDataUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.BarSeries{}, unavailable("yahoo read body: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return model.BarSeries{}, unavailable("yahoo: status %d, body: %.200s", resp.StatusCode, body)
	}
	if !gjson.ValidBytes(body) {
		return model.BarSeries{}, unavailable("yahoo: invalid JSON")
	}

	doc := gjson.ParseBytes(body)
	if desc := doc.Get("chart.error.description"); desc.Exists() && desc.String() != "" {
		return model.BarSeries{}, unavailable("yahoo api error: %s", desc.String())
	}

	result := doc.Get("chart.result.0")
	timestamps := result.Get("timestamp").Array()
	if len(timestamps) == 0 {
		return model.BarSeries{}, unavailable("yahoo: no data returned for %s", symbol)
	}
	quote := result.Get("indicators.quote.0")
	opens := quote.Get("open").Array()
	highs := quote.Get("high").Array()
	lows := quote.Get("low").Array()
	closes := quote.Get("close").Array()
	volumes := quote.Get("volume").Array()

	bars := make([]model.Bar, 0, len(timestamps))
	for i, ts := range timestamps {
		o, ok1 := cell(opens, i)
		h, ok2 := cell(highs, i)
		l, ok3 := cell(lows, i)
		c, ok4 := cell(closes, i)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			continue
		}
		v, _ := cell(volumes, i)
		bars = append(bars, model.Bar{
			Time:   time.Unix(ts.Int(), 0).UTC(),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: v,
		})
	}

	bars = normalize(bars)
	if len(bars) == 0 {
		return model.BarSeries{}, unavailable("yahoo: every bar for %s was empty", symbol)
	}
	return model.BarSeries{Symbol: symbol, Interval: interval, Bars: bars}, nil
}

func cell(col []gjson.Result, i int) (float64, bool) {
	if i >= len(col) || col[i].Type != gjson.Number {
		return 0, false
	}
	return col[i].Float(), true
}
