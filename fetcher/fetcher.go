// Package fetcher drives the single page used to load marketplace documents.
//
// A Page holds at most one loaded document. Callers load a URL, optionally
// wait for a selector, then read the rendered markup. Nothing in this package
// retries; retry policy belongs to the caller.
package fetcher

import (
	"context"
	"time"
)

// Page is one controlled page. Only one navigation may be in flight at a time.
type Page interface {
	// Load navigates to url. It fails with NavigationError when the page
	// does not finish loading within timeout.
	Load(ctx context.Context, url string, timeout time.Duration) error
	// AwaitSelector fails with SelectorTimeoutError when selector is still
	// absent after timeout.
	AwaitSelector(ctx context.Context, selector string, timeout time.Duration) error
	// Content returns the markup of the current document.
	Content(ctx context.Context) (string, error)
	// Close releases the page.
	Close() error
}
