package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"
)

const contentTimeout = 30 * time.Second

// BrowserOptions configures the Chrome instance behind a Browser page.
type BrowserOptions struct {
	Headless  bool
	ExecPath  string
	UserAgent string
	Logger    *slog.Logger
}

// Browser is a Page backed by a single Chrome tab driven over the DevTools protocol.
type Browser struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	logger      *slog.Logger
}

// NewBrowser launches Chrome and opens the tab every navigation reuses.
func NewBrowser(ctx context.Context, opts BrowserOptions) (*Browser, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.WindowSize(1366, 900),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...), slog.String("component", "chromedp"))
		}),
	)

	// An empty Run starts the browser so launch failures surface here.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	return &Browser{
		ctx:         tabCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
		logger:      logger,
	}, nil
}

// Load navigates the tab and waits for the load event.
func (b *Browser) Load(ctx context.Context, url string, timeout time.Duration) error {
	runCtx, cancel := b.scoped(ctx, timeout)
	defer cancel()

	if err := chromedp.Run(runCtx, chromedp.Navigate(url)); err != nil {
		return NavigationError{URL: url, Err: classifyError(err, 0)}
	}
	return nil
}

// AwaitSelector waits until selector matches at least one element.
func (b *Browser) AwaitSelector(ctx context.Context, selector string, timeout time.Duration) error {
	runCtx, cancel := b.scoped(ctx, timeout)
	defer cancel()

	if err := chromedp.Run(runCtx, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		return SelectorTimeoutError{Selector: selector, Timeout: timeout, Err: err}
	}
	return nil
}

// Content returns the outer HTML of the current document.
func (b *Browser) Content(ctx context.Context) (string, error) {
	runCtx, cancel := b.scoped(ctx, contentTimeout)
	defer cancel()

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read page content: %w", err)
	}
	return html, nil
}

// Close shuts down the tab and the browser process.
func (b *Browser) Close() error {
	b.cancel()
	b.allocCancel()
	return nil
}

// scoped derives a context from the tab that also ends when ctx is cancelled.
func (b *Browser) scoped(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithTimeout(b.ctx, timeout)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}
