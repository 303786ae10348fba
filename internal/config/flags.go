package config

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/journalsync/internal/flagx"
)

// ValueFlags lists every flag that consumes the following token, including
// -c and -config. Commands use it to find their positional arguments.
var ValueFlags = []string{
	"-c", "-config",
	"-email", "-login-url", "-app-url", "-public", "-published",
	"-state", "-download-dir", "-diagnostics-dir", "-history-db",
	"-chrome", "-user-agent",
	"-step-timeout", "-settle-delay", "-sync-poll-interval", "-sync-attempts",
	"-artifact-tick", "-artifact-ticks", "-sweep-window",
	"-s3-bucket", "-s3-region", "-s3-endpoint", "-s3-prefix",
	"-pushgateway", "-push-job", "-log-level", "-log-format",
}

// BoolFlags never consume the following token; "-headless=false" turns one off.
var BoolFlags = []string{"-headless", "-no-sandbox", "-keep-artifacts", "-s3-path-style"}

// parseFlags overlays the flags found in args. Unknown flags and positional
// arguments are skipped so commands can share the command line.
//
// Durations use time.ParseDuration syntax, for example -step-timeout 15s.
// There is no password flag; use DAYONE_PASSWORD or the interactive prompt.
func parseFlags(config *Config, args []string) error {
	allowed := append(append([]string{}, ValueFlags[2:]...), BoolFlags...)
	args = flagx.FilterArgs(expandBools(args, BoolFlags), allowed)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.Email, "email", config.Email, "Day One account email")
	fs.StringVar(&config.LoginURL, "login-url", config.LoginURL, "login page URL")
	fs.StringVar(&config.AppURL, "app-url", config.AppURL, "web app URL")
	fs.StringVar(&config.PublicJournal, "public", config.PublicJournal, "name of the public journal")
	fs.StringVar(&config.PublishedJournal, "published", config.PublishedJournal, "name of the published journal")
	fs.StringVar(&config.StatePath, "state", config.StatePath, "state file path")
	fs.StringVar(&config.DownloadDir, "download-dir", config.DownloadDir, "browser download directory")
	fs.StringVar(&config.DiagnosticsDir, "diagnostics-dir", config.DiagnosticsDir, "screenshot directory, empty disables capture")
	fs.StringVar(&config.HistoryDB, "history-db", config.HistoryDB, "run history database, empty disables history")
	fs.StringVar(&config.ChromePath, "chrome", config.ChromePath, "Chrome executable")
	fs.StringVar(&config.UserAgent, "user-agent", config.UserAgent, "browser user agent")

	fs.DurationVar(&config.StepTimeout, "step-timeout", config.StepTimeout, "timeout of each page step")
	fs.DurationVar(&config.SettleDelay, "settle-delay", config.SettleDelay, "pause after page transitions")
	fs.DurationVar(&config.SyncPollInterval, "sync-poll-interval", config.SyncPollInterval, "journal sync poll interval")
	fs.IntVar(&config.SyncMaxAttempts, "sync-attempts", config.SyncMaxAttempts, "journal sync poll attempts")
	fs.DurationVar(&config.ArtifactTick, "artifact-tick", config.ArtifactTick, "artifact poll interval")
	fs.IntVar(&config.ArtifactMaxTicks, "artifact-ticks", config.ArtifactMaxTicks, "artifact poll attempts")
	fs.DurationVar(&config.SweepWindow, "sweep-window", config.SweepWindow, "age limit of swept download files")

	fs.StringVar(&config.S3Bucket, "s3-bucket", config.S3Bucket, "archive bucket, empty disables archiving")
	fs.StringVar(&config.S3Region, "s3-region", config.S3Region, "archive region")
	fs.StringVar(&config.S3Endpoint, "s3-endpoint", config.S3Endpoint, "S3-compatible endpoint")
	fs.StringVar(&config.S3Prefix, "s3-prefix", config.S3Prefix, "object key prefix")

	fs.StringVar(&config.PushgatewayURL, "pushgateway", config.PushgatewayURL, "Pushgateway URL, empty disables push")
	fs.StringVar(&config.PushJob, "push-job", config.PushJob, "Pushgateway job name")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "debug, info, warn or error")
	fs.StringVar(&config.LogFormat, "log-format", config.LogFormat, "text or json")

	fs.BoolVar(&config.Headless, "headless", config.Headless, "run the browser headless")
	fs.BoolVar(&config.NoSandbox, "no-sandbox", config.NoSandbox, "disable the Chrome sandbox")
	fs.BoolVar(&config.KeepArtifacts, "keep-artifacts", config.KeepArtifacts, "keep downloaded exports after a run")
	fs.BoolVar(&config.S3PathStyle, "s3-path-style", config.S3PathStyle, "use path-style S3 addressing")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}

// expandBools rewrites bare boolean flags as "-name=true" so the filter does
// not take the next token as their value.
func expandBools(args, bools []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		for _, b := range bools {
			if a == b {
				a = b + "=true"
				break
			}
		}
		out = append(out, a)
	}
	return out
}

// Usage lists the recognised flags.
func Usage() string {
	var b strings.Builder
	b.WriteString("flags:\n")
	for _, f := range ValueFlags {
		b.WriteString("  " + f + " value\n")
	}
	for _, f := range BoolFlags {
		b.WriteString("  " + f + "[=false]\n")
	}
	return b.String()
}
