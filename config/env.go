package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Environment keys. The unprefixed names are kept for existing deployments.
const (
	EnvDataPath        = "DATA_PATH"
	EnvPageCount       = "PAGE_LOAD"
	EnvSenderEmail     = "SENDER_EMAIL"
	EnvSenderPassword  = "PASSWORD"
	EnvRecipientEmail  = "RECIPIENT_EMAIL"
	EnvBaseURL         = "SCRAPER_BASE_URL"
	EnvIncludeLastPage = "SCRAPER_INCLUDE_LAST_PAGE"
	EnvNavTimeout      = "SCRAPER_NAV_TIMEOUT"
	EnvLinkDelay       = "SCRAPER_LINK_DELAY"
	EnvStabilizeMax    = "SCRAPER_STABILIZE_MAX_ATTEMPTS"
	EnvPolicyFetcher   = "SCRAPER_POLICY_FETCHER"
	EnvChromePath      = "SCRAPER_CHROME_PATH"
	EnvOutputFormat    = "SCRAPER_FORMAT"
	EnvArchive         = "SCRAPER_ARCHIVE"
	EnvSMTPHost        = "SCRAPER_SMTP_HOST"
	EnvSMTPPort        = "SCRAPER_SMTP_PORT"
	EnvMetricsAddr     = "SCRAPER_METRICS_ADDR"
	EnvPushGateway     = "SCRAPER_PUSHGATEWAY_URL"
)

// Env reads configuration values from the process environment and an optional dotenv file.
type Env struct {
	v *viper.Viper
}

// LoadEnv builds an Env. A missing dotenv file is not an error.
func LoadEnv(dotenvPath string) (*Env, error) {
	v := viper.New()
	v.AutomaticEnv()

	if dotenvPath != "" {
		v.SetConfigFile(dotenvPath)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read %s: %w", dotenvPath, err)
			}
		}
	}
	return &Env{v: v}, nil
}

// String returns the value for key and whether it was set.
func (e *Env) String(key string) (string, bool) {
	if !e.v.IsSet(key) {
		return "", false
	}
	value := strings.TrimSpace(e.v.GetString(key))
	if value == "" {
		return "", false
	}
	return value, true
}

// Int parses the value for key as an integer.
func (e *Env) Int(key string) (int, bool, error) {
	raw, ok := e.String(key)
	if !ok {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// Bool parses the value for key as a boolean.
func (e *Env) Bool(key string) (bool, bool, error) {
	raw, ok := e.String(key)
	if !ok {
		return false, false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// Duration parses the value for key with time.ParseDuration.
func (e *Env) Duration(key string) (time.Duration, bool, error) {
	raw, ok := e.String(key)
	if !ok {
		return 0, false, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// Apply overlays every environment value that is set onto cfg.
func (e *Env) Apply(cfg *Config) error {
	strs := map[string]*string{
		EnvDataPath:       &cfg.DataPath,
		EnvSenderEmail:    &cfg.SenderEmail,
		EnvSenderPassword: &cfg.SenderPassword,
		EnvRecipientEmail: &cfg.RecipientEmail,
		EnvBaseURL:        &cfg.BaseURL,
		EnvPolicyFetcher:  &cfg.PolicyFetcher,
		EnvChromePath:     &cfg.ChromePath,
		EnvOutputFormat:   &cfg.OutputFormat,
		EnvSMTPHost:       &cfg.SMTPHost,
		EnvMetricsAddr:    &cfg.MetricsAddr,
		EnvPushGateway:    &cfg.PushGatewayURL,
	}
	for key, dst := range strs {
		if value, ok := e.String(key); ok {
			*dst = value
		}
	}

	ints := map[string]*int{
		EnvPageCount:    &cfg.PageCount,
		EnvStabilizeMax: &cfg.StabilizeMaxAttempts,
		EnvSMTPPort:     &cfg.SMTPPort,
	}
	for key, dst := range ints {
		value, ok, err := e.Int(key)
		if err != nil {
			return err
		}
		if ok {
			*dst = value
		}
	}

	bools := map[string]*bool{
		EnvIncludeLastPage: &cfg.IncludeLastPage,
		EnvArchive:         &cfg.Archive,
	}
	for key, dst := range bools {
		value, ok, err := e.Bool(key)
		if err != nil {
			return err
		}
		if ok {
			*dst = value
		}
	}

	durations := map[string]*time.Duration{
		EnvNavTimeout: &cfg.NavigationTimeout,
		EnvLinkDelay:  &cfg.LinkDelay,
	}
	for key, dst := range durations {
		value, ok, err := e.Duration(key)
		if err != nil {
			return err
		}
		if ok {
			*dst = value
		}
	}
	return nil
}
