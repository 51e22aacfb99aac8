package fetcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"branch-address-scraper/internal/config"
	"branch-address-scraper/internal/observability"
)

// BrowserFetcher renders pages in headless Chrome before handing back the
// serialized DOM, for sites that build their branch list with JavaScript.
// Chrome is launched on the first Fetch and reused until Close.
type BrowserFetcher struct {
	cfg    *config.Config
	logger *observability.Logger

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
}

func NewBrowserFetcher(cfg *config.Config, logger *observability.Logger) *BrowserFetcher {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &BrowserFetcher{cfg: cfg, logger: logger}
}

func (b *BrowserFetcher) connect() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser != nil {
		return b.browser, nil
	}

	l := launcher.New().Headless(true)
	if b.cfg.Rod.ChromePath != "" {
		l = l.Bin(b.cfg.Rod.ChromePath)
	}
	l = l.Set("disable-blink-features", "AutomationControlled")

	wsURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("browser: launch: %w", err)
	}

	browser := rod.New().ControlURL(wsURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("browser: connect: %w", err)
	}

	b.logger.Info("Headless browser started", "stealth", b.cfg.Rod.Stealth)
	b.browser = browser
	b.lnch = l
	return browser, nil
}

// Fetch implements PageFetcher. The status code is always 200: navigation
// errors are returned as errors instead.
func (b *BrowserFetcher) Fetch(ctx context.Context, urlStr string) (*FetchResponse, error) {
	browser, err := b.connect()
	if err != nil {
		return nil, err
	}

	var page *rod.Page
	if b.cfg.Rod.Stealth {
		page, err = stealth.Page(browser)
	} else {
		page, err = browser.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create page: %w", err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			b.logger.Warn("Failed to close browser page", "error", err.Error())
		}
	}()

	navCtx, cancel := context.WithTimeout(ctx, b.cfg.GetRodPageTimeout())
	defer cancel()

	if err := page.Context(navCtx).Navigate(urlStr); err != nil {
		return nil, fmt.Errorf("browser: navigate %s: %w", urlStr, err)
	}

	loadCtx, cancelLoad := context.WithTimeout(navCtx, b.cfg.GetRodWaitLoadTimeout())
	defer cancelLoad()
	if err := page.Context(loadCtx).WaitLoad(); err != nil {
		b.logger.Warn("Page load wait timed out", "url", urlStr, "error", err.Error())
	}

	res, err := page.Context(navCtx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return nil, fmt.Errorf("browser: get DOM: %w", err)
	}

	finalURL := urlStr
	if info, err := page.Info(); err == nil && info.URL != "" {
		finalURL = info.URL
	}

	body := []byte(res.Value.Str())
	b.logger.Debug("Page rendered", "url", finalURL, "bytes", len(body))

	return &FetchResponse{
		StatusCode: 200,
		Body:       body,
		URL:        finalURL,
	}, nil
}

// Close shuts Chrome down. Safe to call when it never started.
func (b *BrowserFetcher) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser == nil {
		return nil
	}
	err := b.browser.Close()
	if b.lnch != nil {
		b.lnch.Kill()
	}
	b.browser = nil
	b.lnch = nil
	return err
}
