package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"GoldSentinel/internal/metrics"
	"GoldSentinel/internal/model"
)

const chartJSON = `{"chart":{"result":[{
  "meta":{"symbol":"XAUUSD=X"},
  "timestamp":[1700003600,1700000000,1700007200,1700007200,1700010800],
  "indicators":{"quote":[{
    "open":  [2001.0, 2000.0, 2002.0, 2002.5, null],
    "high":  [2006.0, 2005.0, 2007.0, 2008.0, null],
    "low":   [1996.0, 1995.0, 1997.0, 1998.0, null],
    "close": [2003.0, 2001.0, 2004.0, 2005.0, null],
    "volume":[0, 0, 0, 0, null]
  }]}
}],"error":null}}`

func newYahoo(t *testing.T, status int, body string) *YahooFetcher {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/v8/finance/chart/") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	f := NewYahooFetcher("", time.Second)
	f.BaseURL = ts.URL
	return f
}

func TestYahooFetcher_Normalizes(t *testing.T) {
	f := newYahoo(t, http.StatusOK, chartJSON)
	series, err := f.FetchBars(context.Background(), "XAUUSD=X", "7d", "1h")
	if err != nil {
		t.Fatalf("FetchBars: %v", err)
	}
	if series.Len() != 3 {
		t.Fatalf("expected 3 bars after dropping nulls and duplicates, got %d", series.Len())
	}
	for i := 1; i < series.Len(); i++ {
		if !series.Bars[i].Time.After(series.Bars[i-1].Time) {
			t.Fatalf("bars not strictly ascending at %d", i)
		}
	}
	if series.Bars[0].Close != 2001 {
		t.Errorf("first close = %v, want 2001", series.Bars[0].Close)
	}
	// duplicate timestamp keeps the later row
	if series.Last().Close != 2005 {
		t.Errorf("last close = %v, want 2005", series.Last().Close)
	}
	if series.Symbol != "XAUUSD=X" || series.Interval != "1h" {
		t.Errorf("unexpected series identity %s/%s", series.Symbol, series.Interval)
	}
}

func TestYahooFetcher_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"non-200", http.StatusTooManyRequests, "slow down"},
		{"bad json", http.StatusOK, "{not json"},
		{"api error", http.StatusOK, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`},
		{"empty result", http.StatusOK, `{"chart":{"result":[{"timestamp":[],"indicators":{"quote":[{}]}}],"error":null}}`},
		{"all null", http.StatusOK, `{"chart":{"result":[{"timestamp":[1],"indicators":{"quote":[{"open":[null],"high":[null],"low":[null],"close":[null]}]}}]}}`},
	}
	for _, tt := range tests {
		f := newYahoo(t, tt.status, tt.body)
		_, err := f.FetchBars(context.Background(), "XAUUSD=X", "7d", "1h")
		if !errors.Is(err, ErrDataUnavailable) {
			t.Errorf("%s: expected ErrDataUnavailable, got %v", tt.name, err)
		}
	}
}

func TestYahooFetcher_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer ts.Close()

	f := NewYahooFetcher("", 50*time.Millisecond)
	f.BaseURL = ts.URL
	_, err := f.FetchBars(context.Background(), "XAUUSD=X", "7d", "1h")
	if !errors.Is(err, ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable on timeout, got %v", err)
	}
}

func TestYahooFetcher_SymbolMap(t *testing.T) {
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(chartJSON))
	}))
	defer ts.Close()

	f := NewYahooFetcher("", time.Second)
	f.BaseURL = ts.URL
	if _, err := f.FetchBars(context.Background(), "GOLD", "7d", "1h"); err != nil {
		t.Fatalf("FetchBars: %v", err)
	}
	if gotPath != "/v8/finance/chart/GC=F" {
		t.Errorf("path = %q, want mapped ticker", gotPath)
	}
}

func TestRESTFetcher(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		q := r.URL.Query()
		if q.Get("symbol") != "XAUUSD" || q.Get("period") != "7d" || q.Get("interval") != "1h" {
			t.Errorf("unexpected query %v", q)
		}
		_, _ = w.Write([]byte(`[
			{"timestamp":1700003600,"open":2,"high":3,"low":1,"close":2.5,"volume":10},
			{"timestamp":1700000000,"open":1,"high":2,"low":0.5,"close":1.5,"volume":10}
		]`))
	}))
	defer ts.Close()

	f := NewRESTFetcher(ts.URL, "secret", "", time.Second)
	series, err := f.FetchBars(context.Background(), "XAUUSD", "7d", "1h")
	if err != nil {
		t.Fatalf("FetchBars: %v", err)
	}
	if series.Len() != 2 || series.Bars[0].Close != 1.5 {
		t.Errorf("expected 2 sorted bars, got %+v", series.Bars)
	}

	f.APIKey = "wrong"
	if _, err := f.FetchBars(context.Background(), "XAUUSD", "7d", "1h"); !errors.Is(err, ErrDataUnavailable) {
		t.Errorf("expected ErrDataUnavailable on 401, got %v", err)
	}
}

func TestNormalize(t *testing.T) {
	t0 := time.Unix(1700000000, 0)
	bars := normalize([]model.Bar{
		{Time: t0.Add(2 * time.Hour), Open: 3, High: 3, Low: 3, Close: 3},
		{Time: t0, Open: 1, High: 1, Low: 1, Close: 1},
		{Time: t0.Add(time.Hour), Open: 0, High: 0, Low: 0, Close: 0},
		{Time: t0, Open: 2, High: 2, Low: 2, Close: 2},
	})
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if bars[0].Close != 2 || bars[1].Close != 3 {
		t.Errorf("unexpected order or duplicate handling: %+v", bars)
	}
}

func TestCollector_Load(t *testing.T) {
	m := metrics.New()
	c := NewCollector(&MockFetcher{Price: 2000, Count: 50}, "XAUUSD=X", "7d", "1h", time.Second, m)
	series, err := c.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if series.Len() != 50 {
		t.Errorf("expected 50 bars, got %d", series.Len())
	}

	c.Fetcher = &MockFetcher{Err: unavailable("offline")}
	if _, err := c.Load(context.Background()); !errors.Is(err, ErrDataUnavailable) {
		t.Errorf("expected ErrDataUnavailable, got %v", err)
	}

	c.Fetcher = &MockFetcher{Series: &model.BarSeries{Symbol: "XAUUSD=X"}}
	if _, err := c.Load(context.Background()); !errors.Is(err, ErrDataUnavailable) {
		t.Errorf("empty series should be ErrDataUnavailable, got %v", err)
	}
}
