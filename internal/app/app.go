// Package app wires configuration, storage and the browser exporter into
// the journalsync commands.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/journalsync/internal/config"
	"github.com/dmitrijs2005/journalsync/internal/filex"
	"github.com/dmitrijs2005/journalsync/internal/history"
	"github.com/dmitrijs2005/journalsync/internal/logging"
	"github.com/dmitrijs2005/journalsync/internal/metrics"
	"github.com/dmitrijs2005/journalsync/internal/migration"
	"github.com/dmitrijs2005/journalsync/internal/state"
	"github.com/dmitrijs2005/journalsync/internal/workflow"
)

// runner is one configured workflow pass.
type runner interface {
	RunWorkflow(ctx context.Context) (*workflow.Summary, error)
	Cleanup() error
}

type App struct {
	config  *config.Config
	logger  logging.Logger
	out     io.Writer
	prompt  io.Writer
	store   *state.Store
	ledger  *migration.Ledger
	history history.Repository
	db      *sql.DB
	metrics *metrics.Metrics

	newRunner func(ctx context.Context) (runner, error)
}

// NewApp opens the state file and, when configured, the run history
// database. Command output goes to out. The caller must Close the App.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger, out io.Writer) (*App, error) {
	journals := []string{c.PublicJournal, c.PublishedJournal}
	store := state.NewStore(c.StatePath, journals, logger)

	a := &App{
		config:  c,
		logger:  logger,
		out:     out,
		prompt:  os.Stderr,
		store:   store,
		ledger:  migration.NewLedger(store, logger),
		metrics: metrics.New(),
	}
	a.newRunner = a.buildRunner

	if c.HistoryDB != "" {
		if _, err := filex.EnsureDir(filepath.Dir(c.HistoryDB)); err != nil {
			return nil, fmt.Errorf("history dir: %w", err)
		}
		db, err := history.Open(ctx, c.HistoryDB)
		if err != nil {
			return nil, err
		}
		a.db = db
		a.history = history.NewSQLiteRepository(db)
	}

	return a, nil
}

// Close releases the history database.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
