// Package export drives the journaling web application through a browser
// page to produce a journal export file, and parses such files.
//
// Acquisition is a fixed sequence of steps: authenticate, select the
// journal, open the export dialog, request the export (waiting for a sync
// when the service asks for one), pick the media option and collect the
// resulting artifact. Every wait polls at a fixed interval with a bounded
// number of attempts and honours ctx.
package export

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dmitrijs2005/journalsync/internal/common"
	"github.com/dmitrijs2005/journalsync/internal/filex"
	"github.com/dmitrijs2005/journalsync/internal/logging"
)

type step string

const (
	stepAuthenticate     step = "authenticate"
	stepSelectJournal    step = "select-journal"
	stepOpenExportDialog step = "open-export-dialog"
	stepRequestExport    step = "request-export"
	stepConfirmMedia     step = "confirm-media"
	stepAcquireArtifact  step = "acquire-artifact"
)

const (
	exportJSONLabel   = "Export journal JSON file"
	includeMedia      = "Include media"
	excludeMedia      = "Export without media"
	syncingIndicator  = "Syncing"
	syncDoneIndicator = "Sync complete"
)

var (
	emailInput    = CSS(`input[type="email"]`)
	submitControl = CSS(`button[type="submit"], input[type="submit"]`)
	sidebarToggle = CSS(`button[aria-label="Toggle Journals Sidebar"]`)
	exportControl = Text(exportJSONLabel)
	syncControl   = Text("Sync", syncingIndicator).Within(`button, div[role="button"]`)

	entryCountPattern = regexp.MustCompile(`(\d+)\s+Entries`)
	unsyncedMarkers   = []string{"not yet been synced", "must be synced before"}

	// exportMenu is the menu chain leading to the export dialog. Each step
	// lists its locators in order of preference.
	exportMenu = []struct {
		name     string
		locators []Locator
	}{
		{"Edit Journal", []Locator{CSS(`button[aria-label="Edit Journal"]`), Text("Edit Journal")}},
		{"Journal Settings", []Locator{Text("Journal Settings")}},
		{"Export Journal", []Locator{Text("Export Journal")}},
	}
)

// Acquirer runs the export protocol over one browser page. It is not safe
// for concurrent use; the page is shared by all exports of a session.
type Acquirer struct {
	page   Page
	opts   Options
	logger logging.Logger
	now    func() time.Time

	authenticated bool

	// started is when the current export began; the sweep ignores files
	// older than that. delivered holds every artifact path already returned.
	started   time.Time
	delivered map[string]struct{}
}

// NewAcquirer returns an Acquirer driving page. Zero fields of opts take
// their DefaultOptions values.
func NewAcquirer(page Page, opts Options, logger logging.Logger) *Acquirer {
	return &Acquirer{
		page:      page,
		opts:      opts.withDefaults(),
		logger:    logger.With("component", "export"),
		now:       time.Now,
		delivered: make(map[string]struct{}),
	}
}

// ExportJournal runs the protocol for journalName and returns the path of
// the artifact saved in the download directory. On failure the page is
// captured into the diagnostics directory and a typed error is returned.
func (a *Acquirer) ExportJournal(ctx context.Context, journalName string) (string, error) {
	log := a.logger.With("journal", journalName)
	log.Info(ctx, "starting export")
	a.started = a.now()

	if _, err := filex.EnsureDir(a.opts.DownloadDir); err != nil {
		return "", fmt.Errorf("prepare download dir: %w", err)
	}

	var artifact string
	steps := []struct {
		name step
		run  func(ctx context.Context) error
	}{
		{stepAuthenticate, a.authenticate},
		{stepSelectJournal, func(ctx context.Context) error { return a.selectJournal(ctx, journalName) }},
		{stepOpenExportDialog, a.openExportDialog},
		{stepRequestExport, func(ctx context.Context) error { return a.requestExport(ctx, true) }},
		{stepConfirmMedia, a.confirmMedia},
		{stepAcquireArtifact, func(ctx context.Context) (err error) {
			artifact, err = a.acquireArtifact(ctx)
			return err
		}},
	}

	for _, s := range steps {
		log.Debug(ctx, "step", "step", s.name)
		if err := s.run(ctx); err != nil {
			log.Error(ctx, "export step failed", "step", s.name, "error", err)
			a.captureDiagnostics(ctx, journalName, s.name)
			return "", err
		}
	}

	a.delivered[filepath.Clean(artifact)] = struct{}{}
	log.Info(ctx, "export acquired", "path", artifact)
	return artifact, nil
}

// Close releases the page.
func (a *Acquirer) Close() error {
	return a.page.Close()
}

// Cleanup removes everything in the download directory.
func (a *Acquirer) Cleanup() error {
	return filex.RemoveContents(a.opts.DownloadDir)
}

func (a *Acquirer) authenticate(ctx context.Context) error {
	if a.authenticated {
		// A later export in the same session: back to the journal list.
		if err := a.page.Navigate(ctx, a.opts.AppURL); err != nil {
			return &NavigationError{Step: "return to journals", Err: err}
		}
		return a.settle(ctx)
	}

	if a.opts.Email == "" || a.opts.Password == "" {
		return &AuthenticationError{Reason: "missing credentials", Err: common.ErrNoCredentials}
	}

	if err := a.page.Navigate(ctx, a.opts.LoginURL); err != nil {
		return &AuthenticationError{Reason: "cannot open login page", Err: err}
	}

	found, err := a.poll(ctx, a.opts.StepTimeout, a.opts.PollInterval, func(ctx context.Context) (bool, error) {
		return a.page.Exists(ctx, emailInput)
	})
	if err != nil {
		return &AuthenticationError{Reason: "login form", Err: err}
	}
	if !found {
		return &AuthenticationError{Reason: "login form not found"}
	}

	if err := a.page.Fill(ctx, emailInput.Query, a.opts.Email); err != nil {
		return &AuthenticationError{Reason: "enter email", Err: err}
	}
	if err := a.page.Fill(ctx, `input[type="password"]`, a.opts.Password); err != nil {
		return &AuthenticationError{Reason: "enter password", Err: err}
	}

	clicked, err := a.page.Click(ctx, submitControl)
	if err != nil {
		return &AuthenticationError{Reason: "submit login form", Err: err}
	}
	if !clicked {
		return &AuthenticationError{Reason: "submit control not found"}
	}

	// Wait for the post-login navigation; staying on the login page after
	// the wait means the service rejected the credentials.
	var url string
	_, err = a.poll(ctx, a.opts.StepTimeout, a.opts.PollInterval, func(ctx context.Context) (bool, error) {
		u, err := a.page.URL(ctx)
		if err != nil {
			return false, err
		}
		url = u
		return !onLoginPage(u), nil
	})
	if err != nil {
		return &AuthenticationError{Reason: "waiting for login", Err: err}
	}
	if onLoginPage(url) {
		return &AuthenticationError{Reason: "still on login page", URL: url}
	}

	a.authenticated = true
	a.logger.Info(ctx, "logged in", "url", url)
	return a.settle(ctx)
}

func onLoginPage(url string) bool {
	return strings.Contains(strings.ToLower(url), "login")
}

func journalLocators(name string) []Locator {
	return []Locator{
		XPath(fmt.Sprintf(`//span[@title=%s and contains(@class, 'components-truncate')]`, xpathLiteral(name))),
		CSS(fmt.Sprintf(`[title=%s]`, cssString(name))),
		CSS(fmt.Sprintf(`[aria-label=%s]`, cssString(name))),
		Text(name).Within("a"),
	}
}

func (a *Acquirer) selectJournal(ctx context.Context, name string) error {
	if ok, err := a.page.Click(ctx, sidebarToggle); err != nil || !ok {
		a.logger.Warn(ctx, "journal sidebar toggle not available", "found", ok, "error", err)
	} else if err := a.settle(ctx); err != nil {
		return err
	}

	locators := journalLocators(name)
	loc, err := a.clickFirst(ctx, locators)
	if err != nil {
		return &NavigationError{Step: "select journal " + name, Err: err}
	}
	if loc == nil {
		tried := make([]string, 0, len(locators))
		for _, l := range locators {
			tried = append(tried, l.String())
		}
		return &JournalNotFoundError{Journal: name, Tried: tried}
	}
	a.logger.Info(ctx, "journal selected", "journal", name, "strategy", loc.String())

	if err := a.settle(ctx); err != nil {
		return err
	}

	if text, err := a.page.BodyText(ctx); err == nil {
		if m := entryCountPattern.FindStringSubmatch(text); m != nil {
			a.logger.Info(ctx, "journal entry count", "journal", name, "entries", m[1])
		}
	}
	return nil
}

func (a *Acquirer) openExportDialog(ctx context.Context) error {
	for _, item := range exportMenu {
		loc, err := a.clickFirst(ctx, item.locators)
		if err != nil {
			return &NavigationError{Step: item.name, Err: err}
		}
		if loc == nil {
			return &NavigationError{Step: item.name}
		}
		if err := a.settle(ctx); err != nil {
			return err
		}
	}
	return nil
}

// requestExport clicks the JSON export control. When the service reports
// unsynced changes and allowSync is set, it triggers a sync, waits for it
// and requests the export once more without re-entering the wait.
func (a *Acquirer) requestExport(ctx context.Context, allowSync bool) error {
	loc, err := a.clickFirst(ctx, []Locator{exportControl})
	if err != nil {
		return &NavigationError{Step: exportJSONLabel, Err: err}
	}
	if loc == nil {
		return &NavigationError{Step: exportJSONLabel}
	}
	if err := a.settle(ctx); err != nil {
		return err
	}

	text, err := a.page.BodyText(ctx)
	if err != nil {
		a.logger.Warn(ctx, "cannot read page text after export request", "error", err)
		return nil
	}
	if !needsSync(text) {
		return nil
	}
	if !allowSync {
		a.logger.Warn(ctx, "service still reports unsynced changes, continuing")
		return nil
	}

	a.logger.Info(ctx, "journal has unsynced changes, syncing")
	if ok, err := a.page.Click(ctx, syncControl); err != nil || !ok {
		a.logger.Warn(ctx, "sync control not available", "found", ok, "error", err)
	}

	if err := a.waitForSync(ctx); err != nil {
		return err
	}
	return a.requestExport(ctx, false)
}

func needsSync(text string) bool {
	for _, m := range unsyncedMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// syncSettled reports whether the page text shows no sync in progress while
// an export control is on screen.
func syncSettled(text string) bool {
	idle := !strings.Contains(text, syncingIndicator) || strings.Contains(text, syncDoneIndicator)
	exportVisible := strings.Contains(text, exportJSONLabel) || strings.Contains(text, includeMedia)
	return idle && exportVisible
}

func (a *Acquirer) waitForSync(ctx context.Context) error {
	start := a.now()
	for attempt := 1; attempt <= a.opts.SyncMaxAttempts; attempt++ {
		if err := sleep(ctx, a.opts.SyncPollInterval); err != nil {
			return err
		}

		text, err := a.page.BodyText(ctx)
		if err != nil {
			a.logger.Debug(ctx, "sync poll: page text unavailable", "attempt", attempt, "error", err)
			continue
		}
		found, enabled, err := a.page.Enabled(ctx, exportControl)
		if err != nil {
			a.logger.Debug(ctx, "sync poll: export control state unavailable", "attempt", attempt, "error", err)
		}

		if syncSettled(text) || (found && enabled) {
			a.logger.Info(ctx, "sync finished", "attempts", attempt)
			return nil
		}
		a.logger.Debug(ctx, "sync in progress", "attempt", attempt)
	}
	return &SyncTimeoutError{Attempts: a.opts.SyncMaxAttempts, Elapsed: a.now().Sub(start)}
}

func (a *Acquirer) confirmMedia(ctx context.Context) error {
	choices := []Locator{Text(includeMedia), Text(excludeMedia)}
	loc, err := a.clickFirst(ctx, choices)
	if err != nil {
		return &NavigationError{Step: "media choice", Err: err}
	}
	if loc == nil {
		return &ExportDialogError{Controls: []string{includeMedia, excludeMedia}}
	}
	a.logger.Info(ctx, "media option chosen", "option", strings.Join(loc.Text, ""))
	return nil
}

// clickFirst tries locators in order on every poll and clicks the first
// that matches. It returns nil when nothing matched within the step timeout.
func (a *Acquirer) clickFirst(ctx context.Context, locators []Locator) (*Locator, error) {
	var hit *Locator
	_, err := a.poll(ctx, a.opts.StepTimeout, a.opts.PollInterval, func(ctx context.Context) (bool, error) {
		for i := range locators {
			ok, err := a.page.Click(ctx, locators[i])
			if err != nil {
				return false, err
			}
			if ok {
				hit = &locators[i]
				return true, nil
			}
		}
		return false, nil
	})
	return hit, err
}

// poll calls fn until it reports done, fails, or timeout/interval attempts
// have been made. It reports whether fn finished.
func (a *Acquirer) poll(ctx context.Context, timeout, interval time.Duration, fn func(ctx context.Context) (bool, error)) (bool, error) {
	attempts := int(timeout / interval)
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		done, err := fn(ctx)
		if err != nil || done {
			return done, err
		}
		if i < attempts-1 {
			if err := sleep(ctx, interval); err != nil {
				return false, err
			}
		}
	}
	return false, nil
}

func (a *Acquirer) settle(ctx context.Context) error {
	return sleep(ctx, a.opts.SettleDelay)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
