package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_parseJson(t *testing.T) {
	dir := t.TempDir()
	path := writeTempJSON(t, dir, "full.json", map[string]any{
		"email":              "me@example.com",
		"public_journal":     "Public",
		"published_journal":  "Blog",
		"state_file":         "/var/lib/journalsync/state.json",
		"download_dir":       "/tmp/dl",
		"chrome_path":        "/usr/bin/chromium",
		"no_sandbox":         true,
		"settle_delay":       "500ms",
		"sync_poll_interval": 3000000000,
		"sync_max_attempts":  5,
		"artifact_max_ticks": 12,
		"keep_artifacts":     true,
		"s3_bucket":          "exports",
		"s3_endpoint":        "http://127.0.0.1:9000",
		"s3_path_style":      true,
		"pushgateway_url":    "http://127.0.0.1:9091",
	})

	t.Run("loads from json", func(t *testing.T) {
		cfg := &Config{}
		cfg.LoadDefaults()
		require.NoError(t, parseJson(cfg, []string{"-config", path}))

		assert.Equal(t, "me@example.com", cfg.Email)
		assert.Equal(t, "Blog", cfg.PublishedJournal)
		assert.Equal(t, "/var/lib/journalsync/state.json", cfg.StatePath)
		assert.Equal(t, "/tmp/dl", cfg.DownloadDir)
		assert.Equal(t, "/usr/bin/chromium", cfg.ChromePath)
		assert.True(t, cfg.NoSandbox)
		assert.True(t, cfg.Headless, "absent bool keeps default")
		assert.Equal(t, 500*time.Millisecond, cfg.SettleDelay)
		assert.Equal(t, 3*time.Second, cfg.SyncPollInterval)
		assert.Equal(t, 5, cfg.SyncMaxAttempts)
		assert.Equal(t, 12, cfg.ArtifactMaxTicks)
		assert.True(t, cfg.KeepArtifacts)
		assert.Equal(t, "exports", cfg.S3Bucket)
		assert.True(t, cfg.S3PathStyle)
		assert.Equal(t, "http://127.0.0.1:9091", cfg.PushgatewayURL)
	})

	t.Run("short flag", func(t *testing.T) {
		cfg := &Config{}
		require.NoError(t, parseJson(cfg, []string{"status", "-c", path}))
		assert.Equal(t, "Blog", cfg.PublishedJournal)
	})

	t.Run("no config flag leaves config untouched", func(t *testing.T) {
		cfg := &Config{PublicJournal: "Keep"}
		require.NoError(t, parseJson(cfg, []string{"run"}))
		assert.Equal(t, "Keep", cfg.PublicJournal)
	})

	t.Run("invalid json", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		err := parseJson(&Config{}, []string{"-config", bad})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad.json")
	})

	t.Run("invalid duration", func(t *testing.T) {
		p := writeTempJSON(t, dir, "dur.json", map[string]any{"step_timeout": "forever"})
		require.Error(t, parseJson(&Config{}, []string{"-config", p}))
	})
}
