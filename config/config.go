// Package config loads mais-person settings from a YAML file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-yaml/yaml"

	"github.com/sul-dlss/mais-person-client/mais"
	"github.com/sul-dlss/mais-person-client/metrics"
	"github.com/sul-dlss/mais-person-client/ratelimit"
)

const DefaultWatchSchedule = "@every 1h"

type Config struct {
	MAIS   MAIS   `yaml:"mais"`
	Log    Log    `yaml:"log"`
	Sheets Sheets `yaml:"sheets"`
	Watch  Watch  `yaml:"watch"`
}

type MAIS struct {
	BaseURL       string        `yaml:"base_url"`
	APIKey        string        `yaml:"api_key"`
	APIKeyFile    string        `yaml:"api_key_file"`
	APICert       string        `yaml:"api_cert"`
	APICertFile   string        `yaml:"api_cert_file"`
	APICACert     string        `yaml:"api_ca_cert"`
	APICACertFile string        `yaml:"api_ca_cert_file"`
	UserAgent     string        `yaml:"user_agent"`
	Timeout       time.Duration `yaml:"timeout"`
	// RetryCount of 0 falls back to mais.DefaultRetryCount. Use -1 to
	// disable retries.
	RetryCount  int `yaml:"retry_count"`
	Concurrency int `yaml:"concurrency"`

	OAuth     *OAuth            `yaml:"oauth"`
	RateLimit *ratelimit.Config `yaml:"rate_limit"`
}

type OAuth struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	TokenURL     string   `yaml:"token_url"`
	Scopes       []string `yaml:"scopes"`
}

type Log struct {
	Level string `yaml:"level"`
}

// Sheets configures the roster export.
type Sheets struct {
	Enabled       bool   `yaml:"enabled"`
	SpreadsheetID string `yaml:"spreadsheet_id"`
	SheetName     string `yaml:"sheet_name"`
	KeyFile       string `yaml:"key_file"`
	FolderID      string `yaml:"folder_id"`
}

type Watch struct {
	Schedule string   `yaml:"schedule"`
	SunetIDs []string `yaml:"sunetids"`
}

// Default returns the settings used when neither file nor environment
// supplies a value.
func Default() *Config {
	return &Config{
		MAIS: MAIS{
			UserAgent:   mais.DefaultUserAgent,
			Timeout:     mais.DefaultTimeout,
			RetryCount:  mais.DefaultRetryCount,
			Concurrency: 4,
		},
		Log: Log{Level: "info"},
		Sheets: Sheets{
			SheetName: "Roster",
			KeyFile:   "google_sheets.json",
		},
		Watch: Watch{Schedule: DefaultWatchSchedule},
	}
}

// Load reads path (skipped when empty), applies environment overrides and
// resolves key and certificate files.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config %s: %w", path, err)
		}
		defer file.Close()

		if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.resolveFiles(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	getEnv := func(key string, target *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*target = strings.TrimSpace(v)
		}
	}

	getEnv("MAIS_BASE_URL", &c.MAIS.BaseURL)
	getEnv("MAIS_API_KEY", &c.MAIS.APIKey)
	getEnv("MAIS_API_KEY_FILE", &c.MAIS.APIKeyFile)
	getEnv("MAIS_API_CERT", &c.MAIS.APICert)
	getEnv("MAIS_API_CERT_FILE", &c.MAIS.APICertFile)
	getEnv("MAIS_API_CA_CERT_FILE", &c.MAIS.APICACertFile)
	getEnv("MAIS_USER_AGENT", &c.MAIS.UserAgent)
	getEnv("LOG_LEVEL", &c.Log.Level)
	getEnv("GOOGLE_SHEETS_SPREADSHEET_ID", &c.Sheets.SpreadsheetID)
	getEnv("GOOGLE_SHEETS_SHEET_NAME", &c.Sheets.SheetName)
	getEnv("GOOGLE_SERVICE_ACCOUNT_KEY_FILE", &c.Sheets.KeyFile)
	getEnv("GOOGLE_DRIVE_FOLDER_ID", &c.Sheets.FolderID)
	getEnv("MAIS_WATCH_SCHEDULE", &c.Watch.Schedule)

	if v, ok := lookup("MAIS_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("MAIS_TIMEOUT: %w", err)
		}
		c.MAIS.Timeout = d
	}
	if v, ok := lookup("MAIS_CONCURRENCY"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MAIS_CONCURRENCY: %w", err)
		}
		c.MAIS.Concurrency = n
	}
	if v, ok := lookup("GOOGLE_SHEETS_ENABLED"); ok {
		v = strings.ToLower(strings.TrimSpace(v))
		c.Sheets.Enabled = v == "true" || v == "1"
	}

	var oauth OAuth
	if c.MAIS.OAuth != nil {
		oauth = *c.MAIS.OAuth
	}
	getEnv("MAIS_OAUTH_CLIENT_ID", &oauth.ClientID)
	getEnv("MAIS_OAUTH_CLIENT_SECRET", &oauth.ClientSecret)
	getEnv("MAIS_OAUTH_TOKEN_URL", &oauth.TokenURL)
	if v, ok := lookup("MAIS_OAUTH_SCOPES"); ok && v != "" {
		oauth.Scopes = strings.Fields(strings.ReplaceAll(v, ",", " "))
	}
	if oauth.ClientID != "" || oauth.TokenURL != "" {
		c.MAIS.OAuth = &oauth
	}

	return nil
}

// resolveFiles fills credentials from their files when no inline value is
// set.
func (c *Config) resolveFiles() error {
	read := func(path string, target *string) error {
		if *target != "" || path == "" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		*target = string(data)
		return nil
	}

	if err := read(c.MAIS.APIKeyFile, &c.MAIS.APIKey); err != nil {
		return err
	}
	if err := read(c.MAIS.APICertFile, &c.MAIS.APICert); err != nil {
		return err
	}
	return read(c.MAIS.APICACertFile, &c.MAIS.APICACert)
}

// Validate reports every missing required value at once.
func (c *Config) Validate() error {
	var errs []error
	if c.MAIS.BaseURL == "" {
		errs = append(errs, errors.New("mais.base_url is required"))
	}
	if c.MAIS.OAuth == nil {
		if c.MAIS.APIKey == "" {
			errs = append(errs, errors.New("mais.api_key or mais.api_key_file is required"))
		}
		if c.MAIS.APICert == "" {
			errs = append(errs, errors.New("mais.api_cert or mais.api_cert_file is required"))
		}
	} else {
		if c.MAIS.OAuth.ClientID == "" {
			errs = append(errs, errors.New("mais.oauth.client_id is required"))
		}
		if c.MAIS.OAuth.TokenURL == "" {
			errs = append(errs, errors.New("mais.oauth.token_url is required"))
		}
	}
	if c.MAIS.Concurrency < 1 {
		errs = append(errs, errors.New("mais.concurrency must be at least 1"))
	}
	if c.Sheets.Enabled && c.Sheets.SpreadsheetID == "" && c.Sheets.FolderID == "" {
		errs = append(errs, errors.New("sheets.spreadsheet_id or sheets.folder_id is required when sheets are enabled"))
	}
	return errors.Join(errs...)
}

// MAISConfig converts the file settings into a client configuration.
func (c *Config) MAISConfig(logger *slog.Logger, m *metrics.Metrics) mais.Config {
	cfg := mais.Config{
		BaseURL:    c.MAIS.BaseURL,
		APIKey:     c.MAIS.APIKey,
		APICert:    c.MAIS.APICert,
		APICACert:  c.MAIS.APICACert,
		UserAgent:  c.MAIS.UserAgent,
		Timeout:    c.MAIS.Timeout,
		RetryCount: c.MAIS.RetryCount,
		RateLimit:  c.MAIS.RateLimit,
		Metrics:    m,
		Logger:     logger,
	}
	if c.MAIS.OAuth != nil {
		cfg.OAuth = &mais.OAuthConfig{
			ClientID:     c.MAIS.OAuth.ClientID,
			ClientSecret: c.MAIS.OAuth.ClientSecret,
			TokenURL:     c.MAIS.OAuth.TokenURL,
			Scopes:       c.MAIS.OAuth.Scopes,
		}
	}
	return cfg
}
