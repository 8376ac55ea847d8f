package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "negative page count",
			mutate: func(cfg *Config) {
				cfg.PageCount = -1
			},
			wantErr: "page count",
		},
		{
			name: "empty base url",
			mutate: func(cfg *Config) {
				cfg.BaseURL = ""
			},
			wantErr: "base URL",
		},
		{
			name: "invalid url format",
			mutate: func(cfg *Config) {
				cfg.BaseURL = "http://"
			},
			wantErr: "base URL",
		},
		{
			name: "negative navigation timeout",
			mutate: func(cfg *Config) {
				cfg.NavigationTimeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "zero stabilize attempts",
			mutate: func(cfg *Config) {
				cfg.StabilizeMaxAttempts = 0
			},
			wantErr: "stabilize max attempts",
		},
		{
			name: "unknown policy fetcher",
			mutate: func(cfg *Config) {
				cfg.PolicyFetcher = "curl"
			},
			wantErr: "policy fetcher",
		},
		{
			name: "unknown output format",
			mutate: func(cfg *Config) {
				cfg.OutputFormat = "xml"
			},
			wantErr: "output format",
		},
		{
			name: "bad smtp port",
			mutate: func(cfg *Config) {
				cfg.SenderEmail = "bot@example.test"
				cfg.RecipientEmail = "ops@example.test"
				cfg.SMTPPort = 70000
			},
			wantErr: "smtp port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestEnvApply(t *testing.T) {
	t.Setenv(EnvDataPath, "/srv/marketplace/")
	t.Setenv(EnvPageCount, "12")
	t.Setenv(EnvLinkDelay, "3s")
	t.Setenv(EnvArchive, "false")

	env, err := LoadEnv("")
	if err != nil {
		t.Fatalf("load env: %v", err)
	}

	cfg := DefaultConfig()
	if err := env.Apply(cfg); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if cfg.DataPath != "/srv/marketplace/" {
		t.Fatalf("DataPath = %q", cfg.DataPath)
	}
	if cfg.PageCount != 12 {
		t.Fatalf("PageCount = %d, want 12", cfg.PageCount)
	}
	if cfg.LinkDelay != 3*time.Second {
		t.Fatalf("LinkDelay = %v, want 3s", cfg.LinkDelay)
	}
	if cfg.Archive {
		t.Fatalf("Archive should be disabled")
	}
}

func TestEnvApplyInvalidInt(t *testing.T) {
	t.Setenv(EnvPageCount, "many")

	env, err := LoadEnv("")
	if err != nil {
		t.Fatalf("load env: %v", err)
	}
	if err := env.Apply(DefaultConfig()); err == nil || !strings.Contains(err.Error(), EnvPageCount) {
		t.Fatalf("expected %s parse error, got %v", EnvPageCount, err)
	}
}

func TestLoadEnvDotenvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("RECIPIENT_EMAIL=ops@example.test\n"), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}

	env, err := LoadEnv(path)
	if err != nil {
		t.Fatalf("load env: %v", err)
	}
	value, ok := env.String(EnvRecipientEmail)
	if !ok || value != "ops@example.test" {
		t.Fatalf("RECIPIENT_EMAIL = %q (set=%v)", value, ok)
	}
}

func TestLoadEnvMissingDotenv(t *testing.T) {
	if _, err := LoadEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing dotenv should be ignored, got %v", err)
	}
}
