package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-scrape-marketplace/config"
	"github.com/aluiziolira/go-scrape-marketplace/fetcher"
	"github.com/aluiziolira/go-scrape-marketplace/models"
	"github.com/aluiziolira/go-scrape-marketplace/pipeline"
	"github.com/aluiziolira/go-scrape-marketplace/report"
)

// Options carries the collaborators a Scraper drives.
type Options struct {
	// Page is the single page used for listing and detail navigation.
	Page fetcher.Page
	// PolicyPage loads privacy policies. Nil reuses Page.
	PolicyPage fetcher.Page
	Snapshots  *pipeline.SnapshotStore
	// RunLog receives per-link failure lines. Optional.
	RunLog *pipeline.RunLog
	// LinksFile is where the discovered links are written. Optional.
	LinksFile string
	Metrics   *Metrics
	Logger    *slog.Logger
}

// Scraper runs one full collection: paginate, extract, retry, summarize.
type Scraper struct {
	cfg       *config.Config
	paginator *Paginator
	extractor *Extractor
	retry     *RetryCoordinator
	runLog    *pipeline.RunLog
	linksFile string
	Metrics   *Metrics
	logger    *slog.Logger

	sleep func(context.Context, time.Duration) error
	now   func() time.Time
}

// runState owns the accumulators of one run. It is created by Run and
// threaded through every stage.
type runState struct {
	start       time.Time
	links       []string
	failedPages []string
	firstPass   []string
	secondPass  []string
	errors      int
	out         *pipeline.Pipeline
}

// NewScraper wires a scraper from cfg and opts.
func NewScraper(cfg *config.Config, opts Options) (*Scraper, error) {
	if opts.Page == nil {
		return nil, errors.New("scraper: page is required")
	}
	if opts.Snapshots == nil {
		return nil, errors.New("scraper: snapshot store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}

	extractor, err := NewExtractor(opts.Page, opts.PolicyPage, opts.Snapshots, cfg, metrics, logger)
	if err != nil {
		return nil, err
	}

	s := &Scraper{
		cfg:       cfg,
		paginator: NewPaginator(opts.Page, cfg, metrics, logger),
		extractor: extractor,
		runLog:    opts.RunLog,
		linksFile: opts.LinksFile,
		Metrics:   metrics,
		logger:    logger,
		sleep:     sleepContext,
		now:       time.Now,
	}
	return s, nil
}

// Run executes the whole collection, sending records to out. The summary is
// returned even when the run is cut short by ctx; the error is then ctx.Err().
func (s *Scraper) Run(ctx context.Context, out *pipeline.Pipeline) (*models.RunSummary, error) {
	state := &runState{start: s.now(), out: out}

	runErr := s.run(ctx, state)

	summary := report.Summarize(report.Input{
		Start:              state.start,
		End:                s.now(),
		Links:              state.links,
		Records:            out.Count(),
		Errors:             state.errors,
		FailedListingPages: state.failedPages,
		FirstPassFailures:  state.firstPass,
		SecondPassFailures: state.secondPass,
	})
	return summary, runErr
}

func (s *Scraper) run(ctx context.Context, state *runState) error {
	listing, err := s.paginator.CollectLinks(ctx, s.cfg.BaseURL, s.cfg.PageCount)
	if listing != nil {
		state.links = listing.Links
		state.failedPages = listing.FailedPages
	}
	if err != nil {
		return err
	}
	s.logger.Info("links collected",
		slog.Int("links", len(state.links)),
		slog.Int("failed_pages", len(state.failedPages)),
	)

	if s.linksFile != "" {
		if err := pipeline.WriteLinks(s.linksFile, state.links); err != nil {
			s.logger.Error("write links", slog.String("path", s.linksFile), slog.Any("error", err))
		}
	}

	state.firstPass, err = s.runPass(ctx, state, state.links, firstPass)
	if err != nil {
		return err
	}

	if err := s.runLog.Appendf("Retrying for failed links..."); err != nil {
		s.logger.Error("append run log", slog.Any("error", err))
	}
	s.retry = newRetryCoordinator(func(ctx context.Context, links []string, pass int) ([]string, error) {
		return s.runPass(ctx, state, links, pass)
	}, s.Metrics, s.logger)

	state.secondPass, err = s.retry.Retry(ctx, state.firstPass)
	if err != nil {
		return err
	}
	return ctx.Err()
}

// runPass extracts each link in order. Failed links are returned; links left
// unprocessed because ctx ended are returned as failed too.
func (s *Scraper) runPass(ctx context.Context, state *runState, links []string, pass int) ([]string, error) {
	failures := []string{}
	for i, link := range links {
		if ctx.Err() != nil {
			failures = append(failures, links[i:]...)
			break
		}

		record, err := s.extractor.Extract(ctx, link)
		if err != nil {
			state.errors++
			failures = append(failures, link)
			label := ErrorTypeLabel(err)
			s.Metrics.IncError(label)
			s.logger.Error("app page failed",
				slog.String("url", link),
				slog.Int("pass", pass),
				slog.String("error_type", label),
				slog.String("cause", fetcher.CauseLabel(err)),
				slog.Any("error", err),
			)
			if err := s.runLog.Appendf("Failed to app page: %s", link); err != nil {
				s.logger.Error("append run log", slog.Any("error", err))
			}
		} else {
			if err := state.out.Process(record); err != nil {
				return failures, fmt.Errorf("store record for %s: %w", link, err)
			}
			s.Metrics.IncRecords()
			s.logger.Info("app extracted",
				slog.String("url", link),
				slog.String("app", record.AppName),
				slog.Int("pass", pass),
				slog.Int("records", state.out.Count()),
				slog.Int("errors", state.errors),
			)
		}

		if s.cfg.LinkDelay > 0 {
			s.logger.Debug("waiting before next link", slog.Duration("delay", s.cfg.LinkDelay))
		}
		_ = s.sleep(ctx, s.cfg.LinkDelay)
	}
	return failures, nil
}
