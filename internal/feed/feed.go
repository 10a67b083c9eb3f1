// Package feed reads RSS and Atom feeds (news sites, YouTube channel feeds)
// into model.FeedItem values.
package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"GoldSentinel/internal/httpclient"
	"GoldSentinel/internal/model"
)

// ErrDataUnavailable is returned, wrapped, when a feed cannot be fetched or parsed.
var ErrDataUnavailable = errors.New("feed unavailable")

// Reader fetches and parses feeds.
type Reader struct {
	Client    *http.Client
	UserAgent string
}

// NewReader creates a reader that presents itself as a browser, which some
// feed hosts (YouTube among them) require.
func NewReader(proxyURL string, timeout time.Duration) *Reader {
	return &Reader{
		Client:    httpclient.New(proxyURL, timeout),
		UserAgent: httpclient.BrowserUserAgent,
	}
}

// Fetch returns the feed's items in document order, newest first for the
// feeds this project reads.
func (r *Reader) Fetch(ctx context.Context, feedURL string) ([]model.FeedItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDataUnavailable, feedURL, err)
	}
	req.Header.Set("User-Agent", r.UserAgent)

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDataUnavailable, feedURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: status %d", ErrDataUnavailable, feedURL, resp.StatusCode)
	}

	parsed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: parse: %v", ErrDataUnavailable, feedURL, err)
	}

	source := parsed.Title
	if source == "" {
		if u, err := url.Parse(feedURL); err == nil {
			source = u.Host
		}
	}
	items := make([]model.FeedItem, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		items = append(items, convert(it, source))
	}
	return items, nil
}

func convert(it *gofeed.Item, source string) model.FeedItem {
	item := model.FeedItem{
		GUID:        strings.TrimSpace(it.GUID),
		Title:       strings.TrimSpace(it.Title),
		Link:        strings.TrimSpace(it.Link),
		Description: it.Description,
		Source:      source,
		VideoID:     videoID(it),
	}
	switch {
	case it.PublishedParsed != nil:
		item.Published = it.PublishedParsed.UTC()
	case it.UpdatedParsed != nil:
		item.Published = it.UpdatedParsed.UTC()
	}
	if item.Description == "" && it.Content != "" {
		item.Description = it.Content
	}
	return item
}

// videoID reads <yt:videoId>, falling back to the "yt:video:" GUID prefix.
func videoID(it *gofeed.Item) string {
	if yt, ok := it.Extensions["yt"]; ok {
		if ids := yt["videoId"]; len(ids) > 0 && ids[0].Value != "" {
			return ids[0].Value
		}
	}
	if id, ok := strings.CutPrefix(it.GUID, "yt:video:"); ok {
		return id
	}
	return ""
}

// Recent examines at most max leading items and keeps those published
// strictly after now-lookback. Items without a usable date are skipped.
func Recent(items []model.FeedItem, now time.Time, lookback time.Duration, max int) []model.FeedItem {
	if max > 0 && len(items) > max {
		items = items[:max]
	}
	cutoff := now.Add(-lookback)
	var out []model.FeedItem
	for _, it := range items {
		if it.Published.IsZero() || !it.Published.After(cutoff) {
			continue
		}
		out = append(out, it)
	}
	return out
}

// YouTubeFeedURL returns the Atom feed of a channel's uploads.
func YouTubeFeedURL(channelID string) string {
	return "https://www.youtube.com/feeds/videos.xml?channel_id=" + url.QueryEscape(channelID)
}
