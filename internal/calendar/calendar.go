// Package calendar reads the ForexFactory weekly economic calendar export.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"

	"GoldSentinel/internal/httpclient"
	"GoldSentinel/internal/model"
)

// ErrDataUnavailable is returned, wrapped, when the calendar cannot be loaded.
var ErrDataUnavailable = errors.New("calendar unavailable")

const (
	dateLayout = "01-02-2006"
	timeLayout = "3:04pm"
)

// Client downloads and parses the calendar.
type Client struct {
	URL    string
	Client *http.Client
	// Source is the zone the export's date and time columns are written in.
	Source *time.Location
}

// NewClient creates a calendar client. The export is published in GMT.
func NewClient(url, proxyURL string, timeout time.Duration) *Client {
	return &Client{
		URL:    url,
		Client: httpclient.New(proxyURL, timeout),
		Source: time.UTC,
	}
}

// Fetch returns every event of the current week, ordered by time.
func (c *Client) Fetch(ctx context.Context) ([]model.CalendarEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	req.Header.Set("User-Agent", httpclient.BrowserUserAgent)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrDataUnavailable, resp.StatusCode)
	}
	return Parse(resp.Body, c.Source)
}

// Parse reads <weeklyevents><event>...</event></weeklyevents>. Rows whose
// date cannot be parsed are dropped; rows without a clock time (All Day,
// Tentative) are kept with AllDay set and the time at midnight.
func Parse(r io.Reader, src *time.Location) ([]model.CalendarEvent, error) {
	if src == nil {
		src = time.UTC
	}
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: parse: %v", ErrDataUnavailable, err)
	}

	var events []model.CalendarEvent
	for _, n := range xmlquery.Find(doc, "//event") {
		day, err := time.ParseInLocation(dateLayout, field(n, "date"), src)
		if err != nil {
			continue
		}
		ev := model.CalendarEvent{
			Title:    field(n, "title"),
			Country:  field(n, "country"),
			Impact:   field(n, "impact"),
			Forecast: field(n, "forecast"),
			Previous: field(n, "previous"),
			Time:     day,
		}
		clock, err := time.Parse(timeLayout, strings.ToLower(field(n, "time")))
		if err != nil {
			ev.AllDay = true
		} else {
			ev.Time = day.Add(time.Duration(clock.Hour())*time.Hour + time.Duration(clock.Minute())*time.Minute)
		}
		events = append(events, ev)
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Time.Before(events[j].Time) })
	return events, nil
}

func field(n *xmlquery.Node, name string) string {
	if el := n.SelectElement(name); el != nil {
		return strings.TrimSpace(el.InnerText())
	}
	return ""
}

// ForDay keeps events for country falling on day's calendar date in loc.
// Timed events are compared after conversion to loc; all-day events by
// their published date.
func ForDay(events []model.CalendarEvent, country string, day time.Time, loc *time.Location) []model.CalendarEvent {
	y, m, d := day.In(loc).Date()
	var out []model.CalendarEvent
	for _, ev := range events {
		if !strings.EqualFold(ev.Country, country) {
			continue
		}
		t := ev.Time
		if !ev.AllDay {
			t = t.In(loc)
		}
		if ey, em, ed := t.Date(); ey == y && em == m && ed == d {
			out = append(out, ev)
		}
	}
	return out
}
