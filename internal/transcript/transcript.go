// Package transcript retrieves YouTube caption text for a video.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/tidwall/gjson"

	"GoldSentinel/internal/httpclient"
)

var (
	// ErrDataUnavailable is returned, wrapped, when YouTube cannot be reached.
	ErrDataUnavailable = errors.New("transcript source unavailable")
	// ErrNoTranscript means the video has no caption track at all.
	ErrNoTranscript = errors.New("no transcript available")
)

// Fetcher downloads captions through the public watch page.
type Fetcher struct {
	BaseURL   string
	Languages []string // preferred language codes, in order
	Proxy     string
	Timeout   time.Duration
}

// NewFetcher creates a transcript fetcher.
func NewFetcher(languages []string, proxyURL string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		BaseURL:   "https://www.youtube.com",
		Languages: languages,
		Proxy:     proxyURL,
		Timeout:   timeout,
	}
}

type track struct {
	URL  string
	Lang string
	Auto bool
}

func (f *Fetcher) collector() (*colly.Collector, error) {
	c := colly.NewCollector(colly.Async(false))
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = httpclient.DefaultTimeout
	}
	c.SetRequestTimeout(timeout)
	if f.Proxy != "" {
		if err := c.SetProxy(f.Proxy); err != nil {
			return nil, fmt.Errorf("set proxy: %w", err)
		}
	}
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", httpclient.BrowserUserAgent)
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
	})
	return c, nil
}

// Fetch returns the caption text of videoID joined into one string. The
// preferred languages are tried in order, human captions before automatic
// ones; otherwise the first listed track is used.
func (f *Fetcher) Fetch(ctx context.Context, videoID string) (string, error) {
	tracks, err := f.tracks(ctx, videoID)
	if err != nil {
		return "", err
	}
	if len(tracks) == 0 {
		return "", ErrNoTranscript
	}
	chosen := pickTrack(tracks, f.Languages)

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	c, err := f.collector()
	if err != nil {
		return "", err
	}
	var parts []string
	c.OnXML("//text", func(e *colly.XMLElement) {
		if t := strings.TrimSpace(html.UnescapeString(e.Text)); t != "" {
			parts = append(parts, strings.Join(strings.Fields(t), " "))
		}
	})
	if err := c.Visit(chosen.URL); err != nil {
		return "", fmt.Errorf("%w: captions %s: %w", ErrDataUnavailable, videoID, err)
	}
	if len(parts) == 0 {
		return "", ErrNoTranscript
	}
	return strings.Join(parts, " "), nil
}

func (f *Fetcher) tracks(ctx context.Context, videoID string) ([]track, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	c, err := f.collector()
	if err != nil {
		return nil, err
	}
	var page []byte
	c.OnResponse(func(r *colly.Response) {
		page = r.Body
	})
	watchURL := strings.TrimRight(f.BaseURL, "/") + "/watch?v=" + videoID
	if err := c.Visit(watchURL); err != nil {
		return nil, fmt.Errorf("%w: watch page %s: %w", ErrDataUnavailable, videoID, err)
	}
	return captionTracks(string(page)), nil
}

// captionTracks pulls playerCaptionsTracklistRenderer.captionTracks out of
// the player response embedded in the watch page.
func captionTracks(page string) []track {
	const key = `"captionTracks":`
	idx := strings.Index(page, key)
	if idx < 0 {
		return nil
	}
	raw := jsonArray(page[idx+len(key):])
	if raw == "" {
		return nil
	}
	var out []track
	for _, t := range gjson.Parse(raw).Array() {
		u := t.Get("baseUrl").String()
		if u == "" {
			continue
		}
		out = append(out, track{
			URL:  u,
			Lang: t.Get("languageCode").String(),
			Auto: t.Get("kind").String() == "asr",
		})
	}
	return out
}

// jsonArray returns the JSON array at the start of s, tracking string
// literals so brackets inside them are ignored.
func jsonArray(s string) string {
	s = strings.TrimLeft(s, " \t\r\n")
	if !strings.HasPrefix(s, "[") {
		return ""
	}
	depth := 0
	inString := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch ch {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return ""
}

func pickTrack(tracks []track, langs []string) track {
	for _, auto := range []bool{false, true} {
		for _, lang := range langs {
			for _, t := range tracks {
				if t.Auto == auto && strings.EqualFold(t.Lang, lang) {
					return t
				}
			}
		}
	}
	return tracks[0]
}

// Truncate shortens s to at most max runes.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
