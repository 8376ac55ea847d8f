package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/aluiziolira/go-scrape-marketplace/archive"
	"github.com/aluiziolira/go-scrape-marketplace/config"
	"github.com/aluiziolira/go-scrape-marketplace/fetcher"
	"github.com/aluiziolira/go-scrape-marketplace/models"
	"github.com/aluiziolira/go-scrape-marketplace/notify"
	"github.com/aluiziolira/go-scrape-marketplace/pipeline"
	"github.com/aluiziolira/go-scrape-marketplace/report"
	"github.com/aluiziolira/go-scrape-marketplace/scraper"
)

const pushJob = "marketplace_scraper"

func main() {
	cfg := config.DefaultConfig()

	env, err := config.LoadEnv(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "load environment: %v\n", err)
		os.Exit(1)
	}
	if err := env.Apply(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "invalid environment: %v\n", err)
		os.Exit(1)
	}

	bindFlags(cfg)
	flag.Parse()
	cfg.OutputFormat = strings.ToLower(cfg.OutputFormat)
	cfg.PolicyFetcher = strings.ToLower(cfg.PolicyFetcher)

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	layout := pipeline.NewLayout(cfg.DataPath, time.Now())
	if err := layout.Ensure(); err != nil {
		slog.Error("creating run directories", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("starting scrape",
		slog.String("base_url", cfg.BaseURL),
		slog.Int("page_count", cfg.PageCount),
		slog.Bool("include_last_page", cfg.IncludeLastPage),
		slog.String("run_dir", layout.RunDir()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, finishing the current link")
	}()

	browser, err := fetcher.NewBrowser(context.Background(), fetcher.BrowserOptions{
		Headless:  cfg.Headless,
		ExecPath:  cfg.ChromePath,
		UserAgent: cfg.UserAgent,
		Logger:    logger,
	})
	if err != nil {
		slog.Error("launching browser", slog.Any("error", err))
		os.Exit(1)
	}
	defer browser.Close()

	var policyPage fetcher.Page
	if cfg.PolicyFetcher == config.PolicyFetcherHTTP {
		policyPage = fetcher.NewStatic(cfg.UserAgent)
	}

	runLog := pipeline.NewRunLog(layout.LogFile())
	s, err := scraper.NewScraper(cfg, scraper.Options{
		Page:       browser,
		PolicyPage: policyPage,
		Snapshots:  pipeline.NewSnapshotStore(layout),
		RunLog:     runLog,
		LinksFile:  layout.LinksFile(),
		Logger:     logger,
	})
	if err != nil {
		slog.Error("initialising scraper", slog.Any("error", err))
		os.Exit(1)
	}

	writer, outputs, err := createWriter(cfg.OutputFormat, layout)
	if err != nil {
		slog.Error("creating writer", slog.Any("error", err))
		os.Exit(1)
	}

	metricsServer := startMetricsServer(cfg.MetricsAddr, s.Metrics)

	p := pipeline.NewPipeline(writer, 0)
	summary, runErr := s.Run(ctx, p)
	browser.Close()
	if runErr != nil {
		slog.Error("scrape interrupted", slog.Any("error", runErr))
	}

	// Whatever was collected is always written out.
	if err := p.Close(); err != nil {
		slog.Error("pipeline shutdown failed", slog.Any("error", err))
	}
	if err := writer.Close(); err != nil {
		slog.Error("close writer", slog.Any("error", err))
	}
	if err := writer.Validate(); err != nil {
		slog.Error("output validation failed", slog.Any("error", err))
	}

	logText := report.Format(summary)
	if err := runLog.Append(logText); err != nil {
		slog.Error("append run log", slog.Any("error", err))
	}

	if cfg.Archive {
		archiveSnapshots(layout)
	}

	if cfg.NotificationsEnabled() {
		sendReport(ctx, cfg, layout.Date, logText, logger)
	}

	if cfg.PushGatewayURL != "" {
		if err := push.New(cfg.PushGatewayURL, pushJob).Gatherer(s.Metrics.Registry).Push(); err != nil {
			slog.Error("push metrics", slog.String("url", cfg.PushGatewayURL), slog.Any("error", err))
		}
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(summary, outputs, runLog.Path(), p.GetMetrics())
	if runErr != nil {
		os.Exit(1)
	}
}

// bindFlags registers flags whose defaults are the environment-resolved config.
func bindFlags(cfg *config.Config) {
	flag.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "Marketplace base URL")
	flag.IntVar(&cfg.PageCount, "pages", cfg.PageCount, "Listing page count; pages 1..pages-1 are scraped")
	flag.BoolVar(&cfg.IncludeLastPage, "include-last-page", cfg.IncludeLastPage, "Also scrape the last listing page")
	flag.StringVar(&cfg.DataPath, "data", cfg.DataPath, "Root directory for run output")
	flag.DurationVar(&cfg.NavigationTimeout, "nav-timeout", cfg.NavigationTimeout, "Page load timeout")
	flag.DurationVar(&cfg.ListingSelectorTimeout, "listing-timeout", cfg.ListingSelectorTimeout, "Wait for listing links")
	flag.DurationVar(&cfg.DetailSelectorTimeout, "detail-timeout", cfg.DetailSelectorTimeout, "Wait for app detail content")
	flag.DurationVar(&cfg.StabilizeInterval, "stabilize-interval", cfg.StabilizeInterval, "Interval between listing link polls")
	flag.IntVar(&cfg.StabilizeMaxAttempts, "stabilize-max", cfg.StabilizeMaxAttempts, "Maximum listing link polls per page")
	flag.DurationVar(&cfg.LinkDelay, "delay", cfg.LinkDelay, "Pause after each app link")
	flag.StringVar(&cfg.PolicyFetcher, "policy-fetcher", cfg.PolicyFetcher, "Privacy policy fetcher: browser or http")
	flag.IntVar(&cfg.PolicyCacheSize, "policy-cache", cfg.PolicyCacheSize, "Privacy policy cache entries (0 disables)")
	flag.BoolVar(&cfg.Headless, "headless", cfg.Headless, "Run Chrome headless")
	flag.StringVar(&cfg.ChromePath, "chrome", cfg.ChromePath, "Chrome executable path")
	flag.StringVar(&cfg.UserAgent, "user-agent", cfg.UserAgent, "User-Agent header")
	flag.StringVar(&cfg.OutputFormat, "format", cfg.OutputFormat, "Output format: json, csv, or dual")
	flag.BoolVar(&cfg.Archive, "archive", cfg.Archive, "Zip snapshot directories after the run")
	flag.StringVar(&cfg.SMTPHost, "smtp-host", cfg.SMTPHost, "SMTP host for the run report")
	flag.IntVar(&cfg.SMTPPort, "smtp-port", cfg.SMTPPort, "SMTP port for the run report")
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	flag.StringVar(&cfg.PushGatewayURL, "pushgateway", cfg.PushGatewayURL, "Pushgateway URL for end-of-run metrics")
	flag.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Enable verbose logging")
}

func createWriter(format string, layout pipeline.Layout) (pipeline.OutputWriter, []string, error) {
	switch format {
	case "json":
		filename := layout.DatasetFile("json")
		w, err := pipeline.NewJSONWriter(filename)
		return w, []string{filename}, err
	case "csv":
		filename := layout.DatasetFile("csv")
		w, err := pipeline.NewCSVWriter(filename)
		return w, []string{filename}, err
	case "dual":
		csvFilename, jsonFilename := layout.DatasetFile("csv"), layout.DatasetFile("json")
		w, err := pipeline.NewDualWriter(csvFilename, jsonFilename)
		return w, []string{jsonFilename, csvFilename}, err
	default:
		return nil, nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func startMetricsServer(addr string, metrics *scraper.Metrics) *http.Server {
	if addr == "" || metrics == nil {
		return nil
	}
	server := &http.Server{
		Addr:    addr,
		Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	slog.Info("metrics server enabled", slog.String("addr", addr))
	return server
}

func archiveSnapshots(layout pipeline.Layout) {
	for _, dir := range []string{layout.SiteSnapshotsDir(), layout.PolicySnapshotsDir()} {
		dest := filepath.Join(layout.RunDir(), filepath.Base(dir)+".zip")
		n, err := archive.ZipDir(dir, dest)
		if err != nil {
			slog.Error("archive snapshots", slog.String("dir", dir), slog.Any("error", err))
			continue
		}
		slog.Info("snapshots archived", slog.String("archive", dest), slog.Int("files", n))
	}
}

func sendReport(ctx context.Context, cfg *config.Config, date, body string, logger *slog.Logger) {
	mailer, err := notify.NewMailer(notify.Settings{
		Host:      cfg.SMTPHost,
		Port:      cfg.SMTPPort,
		Sender:    cfg.SenderEmail,
		Password:  cfg.SenderPassword,
		Recipient: cfg.RecipientEmail,
	}, logger)
	if err != nil {
		slog.Error("configure mailer", slog.Any("error", err))
		return
	}
	// The report still goes out after an interrupt.
	if err := mailer.SendReport(context.WithoutCancel(ctx), date, body); err != nil {
		slog.Error("mail run report", slog.Any("error", err))
	}
}

func printSummary(summary *models.RunSummary, outputs []string, logFile string, metrics map[string]interface{}) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Scrape complete")

	fmt.Printf("  Apps found:     %d\n", summary.TotalLinks)
	fmt.Printf("  Apps scraped:   %d\n", summary.RecordCount)
	fmt.Printf("  Errors:         %d\n", summary.ErrorCount)
	fmt.Printf("  Failed pages:   %d\n", len(summary.FailedListingPages))
	fmt.Printf("  Retried:        %d\n", len(summary.FirstPassFailures))
	fmt.Printf("  Failed retry:   %d\n", summary.FailedSecondPass())
	if valErrors, ok := metrics["validation_errors"].(map[string]int); ok && len(valErrors) > 0 {
		fmt.Printf("  Validation:     %v\n", valErrors)
	}
	fmt.Printf("  Duration:       %v\n", summary.Duration.Round(time.Millisecond))
	for _, out := range outputs {
		fmt.Printf("  Output file:    %s\n", out)
	}
	fmt.Printf("  Run log:        %s\n", logFile)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
