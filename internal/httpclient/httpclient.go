// Package httpclient builds the outbound HTTP clients shared by every
// fetcher: optional proxy, bounded timeout.
package httpclient

import (
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout applies when timeout is not positive.
const DefaultTimeout = 30 * time.Second

// BrowserUserAgent is sent to sites that reject non-browser clients.
const BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// New returns a client routed through proxyURL when it parses.
func New(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}
