package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/journalsync/internal/flagx"
	"github.com/dmitrijs2005/journalsync/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations accept "2s" style
// strings or integer nanoseconds. Booleans are pointers so an explicit false
// can override a default of true. Zero values leave Config untouched.
type JsonConfig struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	LoginURL         string `json:"login_url"`
	AppURL           string `json:"app_url"`
	PublicJournal    string `json:"public_journal"`
	PublishedJournal string `json:"published_journal"`

	StatePath      string `json:"state_file"`
	DownloadDir    string `json:"download_dir"`
	DiagnosticsDir string `json:"diagnostics_dir"`
	HistoryDB      string `json:"history_db"`

	ChromePath string `json:"chrome_path"`
	Headless   *bool  `json:"headless"`
	NoSandbox  *bool  `json:"no_sandbox"`
	UserAgent  string `json:"user_agent"`

	StepTimeout      timex.Duration `json:"step_timeout"`
	SettleDelay      timex.Duration `json:"settle_delay"`
	SyncPollInterval timex.Duration `json:"sync_poll_interval"`
	SyncMaxAttempts  int            `json:"sync_max_attempts"`
	ArtifactTick     timex.Duration `json:"artifact_tick"`
	ArtifactMaxTicks int            `json:"artifact_max_ticks"`
	SweepWindow      timex.Duration `json:"sweep_window"`
	KeepArtifacts    *bool          `json:"keep_artifacts"`

	S3Bucket    string `json:"s3_bucket"`
	S3Region    string `json:"s3_region"`
	S3Endpoint  string `json:"s3_endpoint"`
	S3AccessKey string `json:"s3_access_key"`
	S3SecretKey string `json:"s3_secret_key"`
	S3Prefix    string `json:"s3_prefix"`
	S3PathStyle *bool  `json:"s3_path_style"`

	PushgatewayURL string `json:"pushgateway_url"`
	PushJob        string `json:"push_job"`

	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`
}

// parseJson overlays the file named by -c or -config in args. Without
// either flag nothing is loaded.
func parseJson(config *Config, args []string) error {
	jsonConfigFile := flagx.JsonConfigFlags(args)
	if jsonConfigFile == "" {
		return nil
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", jsonConfigFile, err)
	}

	c.apply(config)
	return nil
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.Email, c.Email)
	setString(&config.Password, c.Password)
	setString(&config.LoginURL, c.LoginURL)
	setString(&config.AppURL, c.AppURL)
	setString(&config.PublicJournal, c.PublicJournal)
	setString(&config.PublishedJournal, c.PublishedJournal)
	setString(&config.StatePath, c.StatePath)
	setString(&config.DownloadDir, c.DownloadDir)
	setString(&config.DiagnosticsDir, c.DiagnosticsDir)
	setString(&config.HistoryDB, c.HistoryDB)
	setString(&config.ChromePath, c.ChromePath)
	setBool(&config.Headless, c.Headless)
	setBool(&config.NoSandbox, c.NoSandbox)
	setString(&config.UserAgent, c.UserAgent)

	setDuration(&config.StepTimeout, c.StepTimeout)
	setDuration(&config.SettleDelay, c.SettleDelay)
	setDuration(&config.SyncPollInterval, c.SyncPollInterval)
	setInt(&config.SyncMaxAttempts, c.SyncMaxAttempts)
	setDuration(&config.ArtifactTick, c.ArtifactTick)
	setInt(&config.ArtifactMaxTicks, c.ArtifactMaxTicks)
	setDuration(&config.SweepWindow, c.SweepWindow)
	setBool(&config.KeepArtifacts, c.KeepArtifacts)

	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3Endpoint, c.S3Endpoint)
	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)
	setString(&config.S3Prefix, c.S3Prefix)
	setBool(&config.S3PathStyle, c.S3PathStyle)

	setString(&config.PushgatewayURL, c.PushgatewayURL)
	setString(&config.PushJob, c.PushJob)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
