package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"

	"branch-address-scraper/internal/observability"
)

const maxRobotsBytes = 512 * 1024

type RobotsCache struct {
	cache  map[string]*robotsEntry
	ttl    time.Duration
	mu     sync.RWMutex
	logger *observability.Logger
}

type robotsEntry struct {
	rules     *robotstxt.RobotsData
	expiresAt time.Time
}

func NewRobotsCache(ttl time.Duration, logger *observability.Logger) *RobotsCache {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &RobotsCache{
		cache:  make(map[string]*robotsEntry),
		ttl:    ttl,
		logger: logger,
	}
}

// IsAllowed reports whether userAgent may fetch target. A robots.txt that
// cannot be reached, or answers 4xx, allows everything; a 5xx answer
// disallows the whole host until the entry expires.
func (rc *RobotsCache) IsAllowed(ctx context.Context, target *url.URL, userAgent string, client *http.Client) (bool, error) {
	key := target.Scheme + "://" + target.Host

	rc.mu.RLock()
	cached, ok := rc.cache[key]
	rc.mu.RUnlock()

	if ok && time.Now().Before(cached.expiresAt) {
		return cached.rules.TestAgent(requestPath(target), userAgent), nil
	}

	rules := rc.fetchRules(ctx, key+"/robots.txt", userAgent, client)

	rc.mu.Lock()
	rc.cache[key] = &robotsEntry{
		rules:     rules,
		expiresAt: time.Now().Add(rc.ttl),
	}
	rc.mu.Unlock()

	return rules.TestAgent(requestPath(target), userAgent), nil
}

func (rc *RobotsCache) fetchRules(ctx context.Context, robotsURL, userAgent string, client *http.Client) *robotstxt.RobotsData {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return allowAll()
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		rc.logger.Debug("robots.txt unavailable, assuming allowed", "url", robotsURL, "error", err.Error())
		return allowAll()
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			rc.logger.Warn("Failed to close robots.txt body", "error", err.Error())
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return allowAll()
	}

	rules, err := parseRobots(resp.StatusCode, body)
	if err != nil {
		rc.logger.Warn("Invalid robots.txt, assuming allowed", "url", robotsURL, "error", err.Error())
		return allowAll()
	}
	return rules
}

// parseRobots turns a robots.txt response into rules. Status handling
// follows the library: 2xx is parsed, 4xx allows all, 5xx disallows all.
func parseRobots(status int, body []byte) (*robotstxt.RobotsData, error) {
	return robotstxt.FromStatusAndBytes(status, body)
}

func allowAll() *robotstxt.RobotsData {
	rules, _ := robotstxt.FromStatusAndBytes(http.StatusNotFound, nil)
	return rules
}

func requestPath(u *url.URL) string {
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p
}
