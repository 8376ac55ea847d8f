package scraper

import (
	"context"
	"errors"
	"fmt"

	"github.com/aluiziolira/go-scrape-marketplace/fetcher"
)

// ExtractionError aborts the record for one app link.
type ExtractionError struct {
	URL  string
	Step string
	Err  error
}

func (e ExtractionError) Error() string {
	return fmt.Sprintf("extract %s (%s): %v", e.URL, e.Step, e.Err)
}

func (e ExtractionError) Unwrap() error {
	return e.Err
}

// PageStabilizationError indicates a listing page kept rendering placeholder
// links after the maximum number of polls.
type PageStabilizationError struct {
	URL      string
	Attempts int
}

func (e PageStabilizationError) Error() string {
	return fmt.Sprintf("listing %s still has placeholder links after %d polls", e.URL, e.Attempts)
}

// ErrorTypeLabel maps an error to the label used for metrics and logs.
func ErrorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	var stabilization PageStabilizationError
	if errors.As(err, &stabilization) {
		return "stabilization"
	}
	var navigation fetcher.NavigationError
	if errors.As(err, &navigation) {
		return "navigation"
	}
	var selector fetcher.SelectorTimeoutError
	if errors.As(err, &selector) {
		return "selector_timeout"
	}
	var extraction ExtractionError
	if errors.As(err, &extraction) {
		return "extraction"
	}
	return "other"
}
