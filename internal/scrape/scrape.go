// Package scrape extracts candidate video source URLs from a web
// page using a headless browser, since most target sites only attach
// their <video> elements after script execution. It feeds the
// ingestion client; it performs no downloading itself.
package scrape

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/videohaven/ingest/pkg/logger"
)

var log = logger.Get("Scrape")

// collectSourcesScript gathers the src of every <video> element and
// every <source> child (plus standalone video-typed <source> tags),
// resolved to absolute URLs against the document base.
const collectSourcesScript = `(() => {
	const urls = [];
	const push = (src) => { if (src) { try { urls.push(new URL(src, document.baseURI).href); } catch (e) {} } };
	for (const video of document.querySelectorAll('video')) {
		push(video.getAttribute('src'));
		for (const source of video.querySelectorAll('source')) push(source.getAttribute('src'));
	}
	for (const source of document.querySelectorAll('source')) {
		if ((source.getAttribute('type') || '').startsWith('video')) push(source.getAttribute('src'));
	}
	return urls;
})()`

type (
	Config struct {
		Headless bool `yaml:"headless" env:"SCRAPE_HEADLESS" env-default:"true"`

		// SettleDelay is how long to wait after the document has
		// loaded for scripts to attach their video elements.
		SettleDelay time.Duration `yaml:"settle_delay" env:"SCRAPE_SETTLE_DELAY" env-default:"3s"`

		Timeout time.Duration `yaml:"timeout" env:"SCRAPE_TIMEOUT" env-default:"60s"`
	}

	// PageInfo is what the ingestion flow needs from a page: a
	// title to prefill and the candidate media URLs found on it.
	PageInfo struct {
		Title   string
		Sources []string
	}

	Scraper struct {
		config Config
	}

	ScrapeError struct {
		URL    string
		reason string
	}
)

func (err *ScrapeError) Error() string {
	return fmt.Sprintf("failed to scrape %s: %s", err.URL, err.reason)
}

func NewScraper(config Config) *Scraper {
	return &Scraper{config: config}
}

// ExtractSources renders the page at pageURL and returns its title
// together with a deduplicated, order-preserving list of video
// source URLs found in the rendered DOM.
func (scraper *Scraper) ExtractSources(ctx context.Context, pageURL string) (*PageInfo, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", scraper.config.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("window-size", "1920,1080"),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	if scraper.config.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		browserCtx, cancelTimeout = context.WithTimeout(browserCtx, scraper.config.Timeout)
		defer cancelTimeout()
	}

	log.Emit(logger.INFO, "Loading page %s\n", pageURL)

	var title string
	var sources []string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.Sleep(scraper.config.SettleDelay),
		chromedp.Title(&title),
		chromedp.Evaluate(collectSourcesScript, &sources),
	)
	if err != nil {
		return nil, &ScrapeError{URL: pageURL, reason: err.Error()}
	}

	info := &PageInfo{Title: strings.TrimSpace(title), Sources: dedupe(sources)}
	log.Emit(logger.INFO, "Found %d video source(s) on %s\n", len(info.Sources), pageURL)

	return info, nil
}

func dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}

		seen[u] = struct{}{}
		out = append(out, u)
	}

	return out
}
