package model

import "time"

// FeedItem is one entry of a news or video feed.
type FeedItem struct {
	GUID        string
	Title       string
	Link        string
	Description string
	Source      string
	VideoID     string // set for YouTube entries
	Published   time.Time
}

// Key returns a stable identity for delivery de-duplication.
func (f FeedItem) Key() string {
	switch {
	case f.VideoID != "":
		return "yt:" + f.VideoID
	case f.GUID != "":
		return f.GUID
	default:
		return f.Link
	}
}

// CalendarEvent is one economic calendar row.
type CalendarEvent struct {
	Title    string
	Country  string
	Impact   string
	Time     time.Time
	AllDay   bool
	Forecast string
	Previous string
}
