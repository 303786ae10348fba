package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

// clearEnv blanks every variable parseEnv reads so host settings do not leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"DAYONE_EMAIL", "DAYONE_PASSWORD", "CHROME_PATH"} {
		t.Setenv(k, "")
	}
	for _, k := range []string{
		"LOGIN_URL", "APP_URL", "PUBLIC_JOURNAL", "PUBLISHED_JOURNAL", "STATE_FILE",
		"DOWNLOAD_DIR", "DIAGNOSTICS_DIR", "HISTORY_DB", "CHROME_PATH", "USER_AGENT",
		"S3_BUCKET", "S3_REGION", "S3_ENDPOINT", "S3_ACCESS_KEY", "S3_SECRET_KEY", "S3_PREFIX",
		"PUSHGATEWAY_URL", "PUSH_JOB", "LOG_LEVEL", "LOG_FORMAT",
		"HEADLESS", "NO_SANDBOX", "KEEP_ARTIFACTS", "S3_PATH_STYLE",
		"STEP_TIMEOUT", "SETTLE_DELAY", "SYNC_POLL_INTERVAL", "ARTIFACT_TICK", "SWEEP_WINDOW",
		"SYNC_MAX_ATTEMPTS", "ARTIFACT_MAX_TICKS",
	} {
		t.Setenv(envPrefix+k, "")
	}
}

func TestLoadDefaults_AreValid(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "Blog Public", cfg.PublicJournal)
	assert.Equal(t, "Blog Published", cfg.PublishedJournal)
	assert.True(t, cfg.Headless)
	assert.Equal(t, 60, cfg.SyncMaxAttempts)
	assert.Equal(t, 30, cfg.ArtifactMaxTicks)
}

func TestLoadConfig_Precedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("DAYONE_EMAIL", "env@example.com")
	t.Setenv("DAYONE_PASSWORD", "from-env")
	t.Setenv(envPrefix+"PUBLIC_JOURNAL", "Drafts")
	t.Setenv(envPrefix+"STEP_TIMEOUT", "20s")

	path := writeTempJSON(t, "", "", map[string]any{
		"public_journal": "Notebook",
		"step_timeout":   "30s",
		"headless":       false,
		"log_format":     "json",
	})

	cfg, err := LoadConfig([]string{"run", "-c", path, "-step-timeout", "45s"})
	require.NoError(t, err)

	assert.Equal(t, "env@example.com", cfg.Email)
	assert.Equal(t, "from-env", cfg.Password)
	assert.Equal(t, "Notebook", cfg.PublicJournal, "json overrides env")
	assert.Equal(t, 45*time.Second, cfg.StepTimeout, "flags override json")
	assert.False(t, cfg.Headless)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "Blog Published", cfg.PublishedJournal, "unset values keep defaults")
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{name: "bad email", args: []string{"-email", "nobody"}},
		{name: "same journals", args: []string{"-public", "Journal", "-published", "Journal"}},
		{name: "bad log format", args: []string{"-log-format", "xml"}},
		{name: "bad pushgateway", args: []string{"-pushgateway", "not a url"}},
		{name: "zero step timeout", args: []string{"-step-timeout", "0s"}},
		{name: "bad env duration", env: map[string]string{envPrefix + "SETTLE_DELAY": "soon"}},
		{name: "bad env bool", env: map[string]string{envPrefix + "HEADLESS": "maybe"}},
		{name: "unparsable flag", args: []string{"-sync-attempts", "many"}},
		{name: "missing config file", args: []string{"-config", filepath.Join(os.TempDir(), "does-not-exist.json")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig(tt.args)
			require.Error(t, err)
		})
	}
}

func TestValidate_S3SecretRequiredWithAccessKey(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()
	cfg.S3Bucket = "exports"
	cfg.S3AccessKey = "minio"

	require.Error(t, cfg.Validate())

	cfg.S3SecretKey = "minio123"
	require.NoError(t, cfg.Validate())
}
