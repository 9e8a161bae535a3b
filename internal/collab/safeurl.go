package collab

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Outbound best-effort checks (HEAD probes, link crawling) must never be
// steerable at internal infrastructure. Same list as the scraping sidecar.
var blockedHosts = map[string]struct{}{
	"localhost": {},
	"127.0.0.1": {},
	"0.0.0.0":   {},
	"::1":       {},
}

var blockedPrefixes = []string{
	"169.254.", "10.", "192.168.",
	"172.16.", "172.17.", "172.18.", "172.19.", "172.20.", "172.21.",
	"172.22.", "172.23.", "172.24.", "172.25.", "172.26.", "172.27.",
	"172.28.", "172.29.", "172.30.", "172.31.",
}

// CheckURL returns an error when the URL targets a blocked host.
func CheckURL(raw string) error {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return fmt.Errorf("invalid url: no host")
	}
	if _, ok := blockedHosts[host]; ok {
		return fmt.Errorf("blocked host: %s", host)
	}
	for _, prefix := range blockedPrefixes {
		if strings.HasPrefix(host, prefix) {
			return fmt.Errorf("blocked host: %s", host)
		}
	}
	return nil
}

// HeadResult is the outcome of one HEAD probe.
type HeadResult struct {
	Status        int
	ContentLength int64
}

// HeadChecker issues best-effort HEAD probes. Used for oversized-image
// detection and link-health crawling; each call carries its own timeout via
// the caller's context.
type HeadChecker interface {
	Head(ctx context.Context, url string) (*HeadResult, error)
}

// HTTPHeadChecker is the default HeadChecker on net/http with the
// blocked-host guard applied before any request leaves the process.
type HTTPHeadChecker struct {
	Client *http.Client
}

// NewHTTPHeadChecker creates a checker with a plain client; per-call
// deadlines come from the context.
func NewHTTPHeadChecker() *HTTPHeadChecker {
	return &HTTPHeadChecker{Client: &http.Client{}}
}

// Head performs the probe.
func (c *HTTPHeadChecker) Head(ctx context.Context, rawURL string) (*HeadResult, error) {
	if err := CheckURL(rawURL); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return &HeadResult{Status: resp.StatusCode, ContentLength: resp.ContentLength}, nil
}
