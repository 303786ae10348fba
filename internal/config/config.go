// Package config assembles journalsync settings from defaults, the
// environment, an optional JSON file and command-line flags, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrijs2005/journalsync/internal/export"
	"github.com/dmitrijs2005/journalsync/internal/journal"
)

// Config holds runtime settings for one journalsync invocation.
//
// Credentials usually come from DAYONE_EMAIL and DAYONE_PASSWORD. S3 archiving
// is enabled only when S3Bucket is set and metrics are pushed only when
// PushgatewayURL is set.
type Config struct {
	Email    string `validate:"omitempty,email"`
	Password string

	LoginURL string `validate:"required,url"`
	AppURL   string `validate:"required,url"`

	PublicJournal    string `validate:"required"`
	PublishedJournal string `validate:"required,nefield=PublicJournal"`

	StatePath      string `validate:"required"`
	DownloadDir    string `validate:"required"`
	DiagnosticsDir string
	HistoryDB      string

	ChromePath string
	Headless   bool
	NoSandbox  bool
	UserAgent  string

	StepTimeout      time.Duration `validate:"gt=0"`
	SettleDelay      time.Duration `validate:"gte=0"`
	SyncPollInterval time.Duration `validate:"gt=0"`
	SyncMaxAttempts  int           `validate:"min=1"`
	ArtifactTick     time.Duration `validate:"gt=0"`
	ArtifactMaxTicks int           `validate:"min=1"`
	SweepWindow      time.Duration `validate:"gt=0"`
	KeepArtifacts    bool

	S3Bucket    string
	S3Region    string `validate:"required_with=S3Bucket"`
	S3Endpoint  string `validate:"omitempty,url"`
	S3AccessKey string
	S3SecretKey string `validate:"required_with=S3AccessKey"`
	S3Prefix    string
	S3PathStyle bool

	PushgatewayURL string `validate:"omitempty,url"`
	PushJob        string `validate:"required_with=PushgatewayURL"`

	LogLevel  string `validate:"oneof=debug info warn warning error"`
	LogFormat string `validate:"oneof=text json"`
}

// LoadDefaults populates Config with values suitable for a local run.
func (c *Config) LoadDefaults() {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	base := filepath.Join(home, ".journalsync")

	c.LoginURL = export.DefaultLoginURL
	c.AppURL = export.DefaultAppURL
	c.PublicJournal = journal.Public
	c.PublishedJournal = journal.Published
	c.StatePath = filepath.Join(base, "state.json")
	c.DownloadDir = filepath.Join(os.TempDir(), "dayone-downloads")
	c.DiagnosticsDir = filepath.Join(base, "diagnostics")
	c.HistoryDB = filepath.Join(base, "history.db")
	c.Headless = true
	c.StepTimeout = 10 * time.Second
	c.SettleDelay = time.Second
	c.SyncPollInterval = 2 * time.Second
	c.SyncMaxAttempts = 60
	c.ArtifactTick = time.Second
	c.ArtifactMaxTicks = 30
	c.SweepWindow = time.Minute
	c.S3Region = "us-east-1"
	c.PushJob = "journalsync"
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadConfig builds a Config by applying defaults, then overlaying the
// environment, an optional JSON file named by -c/-config and finally the
// flags in args. args excludes the program name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
