package export

import (
	"fmt"
	"strings"
	"time"
)

// AuthenticationError means the login form could not be used or the
// service kept the browser on the login page after submitting it.
type AuthenticationError struct {
	Reason string
	URL    string
	Err    error
}

func (e *AuthenticationError) Error() string {
	msg := "authentication failed: " + e.Reason
	if e.URL != "" {
		msg += " (at " + e.URL + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// JournalNotFoundError lists the locators tried for a journal that could not
// be selected.
type JournalNotFoundError struct {
	Journal string
	Tried   []string
}

func (e *JournalNotFoundError) Error() string {
	return fmt.Sprintf("journal %q not found (tried %s)", e.Journal, strings.Join(e.Tried, "; "))
}

// NavigationError names the menu step that could not be reached.
type NavigationError struct {
	Step string
	Err  error
}

func (e *NavigationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("navigation step %q failed: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("navigation step %q: control not found", e.Step)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// SyncTimeoutError reports that the journal never finished syncing within
// the allowed attempts.
type SyncTimeoutError struct {
	Attempts int
	Elapsed  time.Duration
}

func (e *SyncTimeoutError) Error() string {
	return fmt.Sprintf("journal sync did not finish after %d attempts (%s)", e.Attempts, e.Elapsed.Round(time.Millisecond))
}

// ExportDialogError means none of the media choices was offered.
type ExportDialogError struct {
	Controls []string
}

func (e *ExportDialogError) Error() string {
	return fmt.Sprintf("export dialog offered none of %q", e.Controls)
}

// ArtifactNotFoundError means no probe delivered an export and the sweep of
// download locations found nothing.
type ArtifactNotFoundError struct {
	Ticks int
	Swept []string
}

func (e *ArtifactNotFoundError) Error() string {
	return fmt.Sprintf("no export artifact after %d ticks; swept %s", e.Ticks, strings.Join(e.Swept, ", "))
}
