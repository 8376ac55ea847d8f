package scraper

import (
	"context"
	"log/slog"
)

const (
	firstPass  = 1
	secondPass = 2
)

// passFunc runs extraction over links and returns those that failed.
type passFunc func(ctx context.Context, links []string, pass int) ([]string, error)

// RetryCoordinator re-attempts first-pass failures exactly once, after the
// first pass has finished. There is no backoff.
type RetryCoordinator struct {
	runPass passFunc
	metrics *Metrics
	logger  *slog.Logger
}

func newRetryCoordinator(run passFunc, metrics *Metrics, logger *slog.Logger) *RetryCoordinator {
	return &RetryCoordinator{runPass: run, metrics: metrics, logger: logger}
}

// Retry returns the links from failures that still fail on the second attempt.
func (rc *RetryCoordinator) Retry(ctx context.Context, failures []string) ([]string, error) {
	if len(failures) == 0 {
		return []string{}, nil
	}

	pending := make([]string, len(failures))
	copy(pending, failures)

	rc.metrics.AddRetries(len(pending))
	rc.logger.Info("retrying failed links", slog.Int("links", len(pending)))
	return rc.runPass(ctx, pending, secondPass)
}
