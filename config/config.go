package config

import (
	"fmt"
	"net/url"
	"time"
)

// Policy fetcher backends.
const (
	PolicyFetcherBrowser = "browser"
	PolicyFetcherHTTP    = "http"
)

// Config holds scraper configuration.
type Config struct {
	BaseURL         string
	PageCount       int
	IncludeLastPage bool
	DataPath        string

	NavigationTimeout      time.Duration
	ListingSelectorTimeout time.Duration
	DetailSelectorTimeout  time.Duration
	StabilizeInterval      time.Duration
	StabilizeMaxAttempts   int
	LinkDelay              time.Duration

	PolicyFetcher   string // browser or http
	PolicyCacheSize int

	Headless   bool
	ChromePath string
	UserAgent  string

	OutputFormat string // json, csv, or dual
	Archive      bool

	SenderEmail    string
	SenderPassword string
	RecipientEmail string
	SMTPHost       string
	SMTPPort       int

	MetricsAddr    string
	PushGatewayURL string
	Verbose        bool
}

// DefaultConfig returns the defaults used by the daily marketplace run.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:                "https://marketplace.zoom.us",
		PageCount:              2,
		DataPath:               "data",
		NavigationTimeout:      60 * time.Second,
		ListingSelectorTimeout: 10 * time.Second,
		DetailSelectorTimeout:  60 * time.Second,
		StabilizeInterval:      time.Second,
		StabilizeMaxAttempts:   60,
		LinkDelay:              10 * time.Second,
		PolicyFetcher:          PolicyFetcherBrowser,
		PolicyCacheSize:        128,
		Headless:               true,
		UserAgent:              "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		OutputFormat:           "json",
		Archive:                true,
		SMTPHost:               "smtp.gmail.com",
		SMTPPort:               587,
	}
}

// NotificationsEnabled reports whether enough SMTP settings are present to send the run log.
func (c *Config) NotificationsEnabled() bool {
	return c.SenderEmail != "" && c.RecipientEmail != "" && c.SMTPHost != ""
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.PageCount < 0 {
		return fmt.Errorf("page count cannot be negative")
	}
	if c.DataPath == "" {
		return fmt.Errorf("data path cannot be empty")
	}
	if c.NavigationTimeout <= 0 {
		return fmt.Errorf("navigation timeout must be positive")
	}
	if c.ListingSelectorTimeout <= 0 || c.DetailSelectorTimeout <= 0 {
		return fmt.Errorf("selector timeout must be positive")
	}
	if c.StabilizeInterval < 0 {
		return fmt.Errorf("stabilize interval cannot be negative")
	}
	if c.StabilizeMaxAttempts <= 0 {
		return fmt.Errorf("stabilize max attempts must be positive")
	}
	if c.LinkDelay < 0 {
		return fmt.Errorf("link delay cannot be negative")
	}
	if c.PolicyFetcher != PolicyFetcherBrowser && c.PolicyFetcher != PolicyFetcherHTTP {
		return fmt.Errorf("policy fetcher must be browser or http")
	}
	if c.PolicyCacheSize < 0 {
		return fmt.Errorf("policy cache size cannot be negative")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.NotificationsEnabled() && (c.SMTPPort <= 0 || c.SMTPPort > 65535) {
		return fmt.Errorf("smtp port out of range: %d", c.SMTPPort)
	}

	return nil
}
