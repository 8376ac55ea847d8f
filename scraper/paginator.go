package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-marketplace/config"
	"github.com/aluiziolira/go-scrape-marketplace/fetcher"
	"github.com/aluiziolira/go-scrape-marketplace/parser"
)

// Listing is the outcome of paginating the marketplace index.
type Listing struct {
	Links       []string
	FailedPages []string
}

// Paginator walks listing pages and collects app detail links.
type Paginator struct {
	page    fetcher.Page
	cfg     *config.Config
	metrics *Metrics
	logger  *slog.Logger
	sleep   func(context.Context, time.Duration) error
}

// NewPaginator builds a paginator driving page.
func NewPaginator(page fetcher.Page, cfg *config.Config, metrics *Metrics, logger *slog.Logger) *Paginator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Paginator{
		page:    page,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
		sleep:   sleepContext,
	}
}

// CollectLinks visits listing pages 1..pageCount-1 (1..pageCount with
// IncludeLastPage) and returns their app links in page order. Duplicates
// across pages are kept. A page that fails to load, never shows links, or
// never stabilizes is logged and skipped.
func (p *Paginator) CollectLinks(ctx context.Context, baseURL string, pageCount int) (*Listing, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	last := pageCount - 1
	if p.cfg.IncludeLastPage {
		last = pageCount
	}

	listing := &Listing{Links: []string{}, FailedPages: []string{}}
	for i := 1; i <= last; i++ {
		if err := ctx.Err(); err != nil {
			return listing, err
		}

		pageURL := fmt.Sprintf("%s/apps?page=%d", strings.TrimRight(baseURL, "/"), i)
		hrefs, err := p.collectPage(ctx, pageURL)
		if err != nil {
			listing.FailedPages = append(listing.FailedPages, pageURL)
			p.metrics.IncError(ErrorTypeLabel(err))
			p.logger.Error("listing page failed",
				slog.Int("page", i),
				slog.String("url", pageURL),
				slog.String("error_type", ErrorTypeLabel(err)),
				slog.String("cause", fetcher.CauseLabel(err)),
				slog.Any("error", err),
			)
			continue
		}

		links := make([]string, 0, len(hrefs))
		for _, href := range hrefs {
			links = append(links, absoluteLink(base, href))
		}
		p.metrics.AddLinks(len(links))
		p.logger.Info("listing page collected", slog.Int("page", i), slog.Int("links", len(links)))
		p.logger.Debug("listing page links", slog.Int("page", i), slog.Any("links", links))
		listing.Links = append(listing.Links, links...)
	}
	return listing, nil
}

func (p *Paginator) collectPage(ctx context.Context, pageURL string) ([]string, error) {
	start := time.Now()
	err := p.page.Load(ctx, pageURL, p.cfg.NavigationTimeout)
	p.metrics.ObserveNavigation(kindListing, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	if err := p.page.AwaitSelector(ctx, selListingReady, p.cfg.ListingSelectorTimeout); err != nil {
		return nil, err
	}
	return p.stableHrefs(ctx, pageURL)
}

// stableHrefs re-reads the listing until no link is a placeholder, polling
// every StabilizeInterval for at most StabilizeMaxAttempts reads.
func (p *Paginator) stableHrefs(ctx context.Context, pageURL string) ([]string, error) {
	for attempt := 1; ; attempt++ {
		content, err := p.page.Content(ctx)
		if err != nil {
			return nil, err
		}
		p.metrics.IncPoll()

		hrefs, err := listingHrefs(content)
		if err != nil {
			return nil, err
		}
		if !hasPlaceholder(hrefs) {
			return hrefs, nil
		}
		if attempt >= p.cfg.StabilizeMaxAttempts {
			return nil, PageStabilizationError{URL: pageURL, Attempts: attempt}
		}
		p.logger.Debug("listing has placeholder links, polling again",
			slog.String("url", pageURL),
			slog.Int("attempt", attempt),
		)
		if err := p.sleep(ctx, p.cfg.StabilizeInterval); err != nil {
			return nil, err
		}
	}
}

func listingHrefs(content string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}
	hrefs := []string{}
	doc.Find(selListingLink).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		hrefs = append(hrefs, href)
	})
	return hrefs, nil
}

func hasPlaceholder(hrefs []string) bool {
	for _, href := range hrefs {
		if parser.IsPlaceholderLink(href) {
			return true
		}
	}
	return false
}

func absoluteLink(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return strings.TrimRight(base.String(), "/") + href
	}
	return base.ResolveReference(ref).String()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
