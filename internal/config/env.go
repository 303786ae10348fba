package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "JOURNALSYNC_"

// parseEnv reads .env from the working directory when present, then
// overlays every variable that is set.
func parseEnv(cfg *Config) error {
	_ = godotenv.Load()

	envString(&cfg.Email, "DAYONE_EMAIL")
	envString(&cfg.Password, "DAYONE_PASSWORD")
	envString(&cfg.ChromePath, "CHROME_PATH")

	envString(&cfg.LoginURL, envPrefix+"LOGIN_URL")
	envString(&cfg.AppURL, envPrefix+"APP_URL")
	envString(&cfg.PublicJournal, envPrefix+"PUBLIC_JOURNAL")
	envString(&cfg.PublishedJournal, envPrefix+"PUBLISHED_JOURNAL")
	envString(&cfg.StatePath, envPrefix+"STATE_FILE")
	envString(&cfg.DownloadDir, envPrefix+"DOWNLOAD_DIR")
	envString(&cfg.DiagnosticsDir, envPrefix+"DIAGNOSTICS_DIR")
	envString(&cfg.HistoryDB, envPrefix+"HISTORY_DB")
	envString(&cfg.ChromePath, envPrefix+"CHROME_PATH")
	envString(&cfg.UserAgent, envPrefix+"USER_AGENT")
	envString(&cfg.S3Bucket, envPrefix+"S3_BUCKET")
	envString(&cfg.S3Region, envPrefix+"S3_REGION")
	envString(&cfg.S3Endpoint, envPrefix+"S3_ENDPOINT")
	envString(&cfg.S3AccessKey, envPrefix+"S3_ACCESS_KEY")
	envString(&cfg.S3SecretKey, envPrefix+"S3_SECRET_KEY")
	envString(&cfg.S3Prefix, envPrefix+"S3_PREFIX")
	envString(&cfg.PushgatewayURL, envPrefix+"PUSHGATEWAY_URL")
	envString(&cfg.PushJob, envPrefix+"PUSH_JOB")
	envString(&cfg.LogLevel, envPrefix+"LOG_LEVEL")
	envString(&cfg.LogFormat, envPrefix+"LOG_FORMAT")

	bools := []struct {
		key string
		dst *bool
	}{
		{"HEADLESS", &cfg.Headless},
		{"NO_SANDBOX", &cfg.NoSandbox},
		{"KEEP_ARTIFACTS", &cfg.KeepArtifacts},
		{"S3_PATH_STYLE", &cfg.S3PathStyle},
	}
	for _, b := range bools {
		if err := envBool(b.dst, envPrefix+b.key); err != nil {
			return err
		}
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"STEP_TIMEOUT", &cfg.StepTimeout},
		{"SETTLE_DELAY", &cfg.SettleDelay},
		{"SYNC_POLL_INTERVAL", &cfg.SyncPollInterval},
		{"ARTIFACT_TICK", &cfg.ArtifactTick},
		{"SWEEP_WINDOW", &cfg.SweepWindow},
	}
	for _, d := range durations {
		if err := envDuration(d.dst, envPrefix+d.key); err != nil {
			return err
		}
	}

	if err := envInt(&cfg.SyncMaxAttempts, envPrefix+"SYNC_MAX_ATTEMPTS"); err != nil {
		return err
	}
	return envInt(&cfg.ArtifactMaxTicks, envPrefix+"ARTIFACT_MAX_TICKS")
}

func envString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envBool(dst *bool, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = b
	return nil
}

func envInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func envDuration(dst *time.Duration, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}
