// Package fetch retrieves rendered race-card pages. The site assembles its
// grids client-side, so retrieval goes through a headless browser; callers
// bound every fetch with a context deadline and treat a miss as "skip this
// fixture until the next cycle".
package fetch

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120 Safari/537.36"

// chromeMu serializes browser usage so only one Chrome instance runs at a
// time; concurrent meeting cycles queue here rather than fork browsers.
var chromeMu sync.Mutex

// PageRenderer returns the rendered markup of one URL.
type PageRenderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// BrowserOptions tune the headless browser.
type BrowserOptions struct {
	Headless bool
	Lang     string
	Timeout  time.Duration
}

// Browser renders pages with headless Chrome.
type Browser struct {
	opts   BrowserOptions
	logger zerolog.Logger
}

// NewBrowser constructs a Browser renderer.
func NewBrowser(opts BrowserOptions, logger zerolog.Logger) *Browser {
	if opts.Lang == "" {
		opts.Lang = "zh-HK"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	return &Browser{opts: opts, logger: logger.With().Str("component", "browser").Logger()}
}

// Render navigates to url and returns the page source once the document is
// ready. The caller's ctx bounds the whole operation; on timeout the fixture
// is skipped for this cycle.
func (b *Browser) Render(ctx context.Context, url string) (string, error) {
	chromeMu.Lock()
	defer chromeMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, b.opts.Timeout)
	defer cancel()

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("lang", b.opts.Lang),
		chromedp.UserAgent(defaultUserAgent),
		chromedp.WindowSize(1280, 2200),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var pageHTML string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &pageHTML, chromedp.ByQuery),
	)
	if err != nil {
		b.logger.Warn().Err(err).Str("url", url).Msg("page render failed")
		return "", err
	}
	return pageHTML, nil
}

var _ PageRenderer = (*Browser)(nil)
