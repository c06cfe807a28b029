package rentfaster

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

// BrowserFetcher renders pages in headless Chrome before parsing them. It is
// used when the listing page builds its content with JavaScript.
type BrowserFetcher struct {
	browserCtx  context.Context
	cancelAlloc context.CancelFunc
	cancel      context.CancelFunc
	timeout     time.Duration
}

// NewBrowserFetcher starts one browser that every Fetch opens a tab in.
func NewBrowserFetcher(ctx context.Context, chromeBin string, timeout time.Duration) (*BrowserFetcher, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgent),
	)
	if bin := findChromeBinary(chromeBin); bin != "" {
		opts = append(opts, chromedp.ExecPath(bin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		cancelAlloc()
		return nil, fmt.Errorf("browser: start: %w", err)
	}

	return &BrowserFetcher{
		browserCtx:  browserCtx,
		cancelAlloc: cancelAlloc,
		cancel:      cancel,
		timeout:     timeout,
	}, nil
}

func (b *BrowserFetcher) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	tabCtx, cancelTab := chromedp.NewContext(b.browserCtx)
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.timeout)
	defer cancelTimeout()

	// the tab follows the caller's cancellation too
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var html string
	if err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return nil, fmt.Errorf("browser: render %s: %w", url, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("browser: parse html: %w", err)
	}
	return doc, nil
}

// Close shuts the browser down.
func (b *BrowserFetcher) Close() {
	b.cancel()
	b.cancelAlloc()
}

// findChromeBinary locates Chrome/Chromium, preferring the configured path.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
