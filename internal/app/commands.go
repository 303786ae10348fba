package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"golang.org/x/term"

	"github.com/dmitrijs2005/journalsync/internal/common"
	"github.com/dmitrijs2005/journalsync/internal/config"
	"github.com/dmitrijs2005/journalsync/internal/flagx"
)

// Test seams for the terminal.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

var errUsage = errors.New("usage")

const usage = `usage: journalsync [flags] [command]

commands:
  run               export both journals and update state (default)
  status            show the journal summary
  report            show the migration report
  pending           list pending migrations
  completed [n]     list the n most recently completed migrations
  complete <id>     mark a pending migration as completed
  history [n]       list the n most recent runs
  help              show this message
`

// Run executes the command named by the first positional argument in args.
func (a *App) Run(ctx context.Context, args []string) error {
	pos := flagx.Positional(args, config.ValueFlags)
	cmd := "run"
	if len(pos) > 0 {
		cmd, pos = pos[0], pos[1:]
	}

	switch cmd {
	case "run":
		return a.run(ctx)
	case "status":
		return a.print(a.store.Summary(ctx))
	case "report":
		return a.print(a.ledger.Report(ctx))
	case "pending":
		return a.print(a.ledger.ListPending(ctx))
	case "completed":
		limit, err := limitArg(pos)
		if err != nil {
			return err
		}
		return a.print(a.ledger.ListCompleted(ctx, limit))
	case "complete":
		if len(pos) != 1 {
			return fmt.Errorf("%w: complete <id>", errUsage)
		}
		return a.complete(ctx, pos[0])
	case "history":
		limit, err := limitArg(pos)
		if err != nil {
			return err
		}
		return a.listHistory(ctx, limit)
	case "help":
		_, err := fmt.Fprint(a.out, usage+config.Usage())
		return err
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func (a *App) run(ctx context.Context) error {
	if err := a.ensurePassword(ctx); err != nil {
		return err
	}

	r, err := a.newRunner(ctx)
	if err != nil {
		return fmt.Errorf("prepare workflow: %w", err)
	}

	sum, runErr := r.RunWorkflow(ctx)
	if sum != nil {
		if err := a.print(sum); err != nil {
			return err
		}
	}

	if !a.config.KeepArtifacts {
		if err := r.Cleanup(); err != nil {
			a.logger.Warn(ctx, "download cleanup failed", "error", err)
		}
	}

	if a.config.PushgatewayURL != "" {
		if err := a.metrics.Push(ctx, a.config.PushgatewayURL, a.config.PushJob); err != nil {
			a.logger.Warn(ctx, "metrics not pushed", "error", err)
		}
	}

	if runErr != nil {
		return fmt.Errorf("workflow: %w", runErr)
	}
	return nil
}

// ensurePassword prompts for the password when only the email is set and
// stdin is a terminal.
func (a *App) ensurePassword(ctx context.Context) error {
	if a.config.Password != "" || a.config.Email == "" {
		return nil
	}
	fd := int(os.Stdin.Fd())
	if !isTerminal(fd) {
		return nil
	}

	if _, err := fmt.Fprint(a.prompt, "Day One password: "); err != nil {
		return err
	}
	pw, err := readPassword(fd)
	fmt.Fprintln(a.prompt)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	a.config.Password = string(pw)
	clear(pw)
	a.logger.Debug(ctx, "password read from terminal")
	return nil
}

func (a *App) complete(ctx context.Context, id string) error {
	for _, rec := range a.ledger.ListPending(ctx) {
		if rec.ID != id {
			continue
		}
		if err := a.ledger.CompleteMigration(ctx, id, rec.Entries); err != nil {
			return err
		}
		_, err := fmt.Fprintf(a.out, "migration %s completed (%d entries)\n", id, len(rec.Entries))
		return err
	}
	return fmt.Errorf("pending migration %s: %w", id, common.ErrNotFound)
}

func (a *App) listHistory(ctx context.Context, limit int) error {
	if a.history == nil {
		return errors.New("run history is disabled")
	}
	runs, err := a.history.List(ctx, limit)
	if err != nil {
		return err
	}
	return a.print(runs)
}

func (a *App) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func limitArg(pos []string) (int, error) {
	if len(pos) == 0 {
		return 0, nil
	}
	n, err := strconv.Atoi(pos[0])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: limit must be a non-negative number, got %q", errUsage, pos[0])
	}
	return n, nil
}
