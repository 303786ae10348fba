package export

import (
	"os"
	"path/filepath"
	"time"
)

const (
	DefaultLoginURL = "https://dayone.me/login"
	DefaultAppURL   = "https://dayone.me/"

	// Blobs smaller than this are only accepted with an archive-like type.
	DefaultBlobMinSize = 100_000
)

// Options configures the acquisition protocol. Zero fields take the values
// of DefaultOptions, except SettleDelay where zero means no pause.
type Options struct {
	LoginURL string
	AppURL   string
	Email    string
	Password string

	DownloadDir    string
	DiagnosticsDir string

	StepTimeout  time.Duration
	PollInterval time.Duration
	SettleDelay  time.Duration

	SyncPollInterval time.Duration
	SyncMaxAttempts  int

	ArtifactTick     time.Duration
	ArtifactMaxTicks int
	BlobMinSize      int64

	SweepDirs   []string
	SweepWindow time.Duration
}

// DefaultOptions returns the timings and URLs used when Options leaves a
// field unset.
func DefaultOptions() Options {
	return Options{
		LoginURL:         DefaultLoginURL,
		AppURL:           DefaultAppURL,
		DownloadDir:      filepath.Join(os.TempDir(), "dayone-downloads"),
		StepTimeout:      10 * time.Second,
		PollInterval:     250 * time.Millisecond,
		SettleDelay:      time.Second,
		SyncPollInterval: 2 * time.Second,
		SyncMaxAttempts:  60,
		ArtifactTick:     time.Second,
		ArtifactMaxTicks: 30,
		BlobMinSize:      DefaultBlobMinSize,
		SweepWindow:      time.Minute,
	}
}

// DefaultSweepDirs lists where browsers commonly leave downloads.
func DefaultSweepDirs(downloadDir string) []string {
	dirs := []string{downloadDir, os.TempDir(), filepath.Join(os.TempDir(), "dayone-downloads"), "/var/tmp"}
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, "Downloads"))
	}
	return dedupe(dirs)
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.LoginURL == "" {
		o.LoginURL = d.LoginURL
	}
	if o.AppURL == "" {
		o.AppURL = d.AppURL
	}
	if o.DownloadDir == "" {
		o.DownloadDir = d.DownloadDir
	}
	if o.StepTimeout <= 0 {
		o.StepTimeout = d.StepTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = d.PollInterval
	}
	if o.SettleDelay < 0 {
		o.SettleDelay = 0
	}
	if o.SyncPollInterval <= 0 {
		o.SyncPollInterval = d.SyncPollInterval
	}
	if o.SyncMaxAttempts <= 0 {
		o.SyncMaxAttempts = d.SyncMaxAttempts
	}
	if o.ArtifactTick <= 0 {
		o.ArtifactTick = d.ArtifactTick
	}
	if o.ArtifactMaxTicks <= 0 {
		o.ArtifactMaxTicks = d.ArtifactMaxTicks
	}
	if o.BlobMinSize <= 0 {
		o.BlobMinSize = d.BlobMinSize
	}
	if o.SweepWindow <= 0 {
		o.SweepWindow = d.SweepWindow
	}
	if o.SweepDirs == nil {
		o.SweepDirs = DefaultSweepDirs(o.DownloadDir)
	}
	return o
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
