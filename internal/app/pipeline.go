package app

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/journalsync/internal/artifactstore"
	"github.com/dmitrijs2005/journalsync/internal/browser"
	"github.com/dmitrijs2005/journalsync/internal/export"
	"github.com/dmitrijs2005/journalsync/internal/workflow"
)

// session hands browser sessions to the orchestrator and remembers them so
// their downloads can be cleaned up after the run.
type session struct {
	opener    *export.Opener
	acquirers []*export.Acquirer
}

func (s *session) open(ctx context.Context) (workflow.Exporter, error) {
	acq, err := s.opener.Open(ctx)
	if err != nil {
		return nil, err
	}
	s.acquirers = append(s.acquirers, acq)
	return acq, nil
}

func (s *session) Cleanup() error {
	var errs []error
	for _, acq := range s.acquirers {
		if err := acq.Cleanup(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type pipeline struct {
	*workflow.Orchestrator
	*session
}

func (a *App) exportOptions() export.Options {
	c := a.config
	return export.Options{
		LoginURL:         c.LoginURL,
		AppURL:           c.AppURL,
		Email:            c.Email,
		Password:         c.Password,
		DownloadDir:      c.DownloadDir,
		DiagnosticsDir:   c.DiagnosticsDir,
		StepTimeout:      c.StepTimeout,
		SettleDelay:      c.SettleDelay,
		SyncPollInterval: c.SyncPollInterval,
		SyncMaxAttempts:  c.SyncMaxAttempts,
		ArtifactTick:     c.ArtifactTick,
		ArtifactMaxTicks: c.ArtifactMaxTicks,
		SweepWindow:      c.SweepWindow,
	}
}

func (a *App) browserOptions() browser.Options {
	c := a.config
	return browser.Options{
		ExecPath:    c.ChromePath,
		Headless:    c.Headless,
		NoSandbox:   c.NoSandbox,
		UserAgent:   c.UserAgent,
		DownloadDir: c.DownloadDir,
	}
}

func (a *App) archiveConfig() artifactstore.Config {
	c := a.config
	return artifactstore.Config{
		Bucket:    c.S3Bucket,
		Region:    c.S3Region,
		Endpoint:  c.S3Endpoint,
		AccessKey: c.S3AccessKey,
		SecretKey: c.S3SecretKey,
		Prefix:    c.S3Prefix,
		PathStyle: c.S3PathStyle,
	}
}

// buildRunner assembles the orchestrator from the current config. It runs
// after the password prompt so the credentials are final.
func (a *App) buildRunner(ctx context.Context) (runner, error) {
	launch := browser.Launcher(a.browserOptions(), a.logger)
	s := &session{opener: export.NewOpener(launch, a.exportOptions(), a.logger)}

	opts := []workflow.Option{workflow.WithMetrics(a.metrics)}
	if a.history != nil {
		opts = append(opts, workflow.WithHistory(a.history))
	}
	if a.config.S3Bucket != "" {
		archiver, err := artifactstore.NewS3Archiver(ctx, a.archiveConfig(), a.logger)
		if err != nil {
			return nil, err
		}
		opts = append(opts, workflow.WithArchiver(archiver))
	}

	journals := workflow.Journals{Public: a.config.PublicJournal, Published: a.config.PublishedJournal}
	orch := workflow.New(journals, s.open, export.ParseExport, a.store, a.ledger, a.logger, opts...)
	return &pipeline{Orchestrator: orch, session: s}, nil
}
