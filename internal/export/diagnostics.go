package export

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/journalsync/internal/filex"
)

const diagnosticsTimeout = 5 * time.Second

// captureDiagnostics saves a screenshot of the page after a failed step. It
// only logs its own failures.
func (a *Acquirer) captureDiagnostics(ctx context.Context, journalName string, s step) {
	if a.opts.DiagnosticsDir == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), diagnosticsTimeout)
	defer cancel()

	data, err := a.page.Screenshot(ctx)
	if err != nil {
		a.logger.Warn(ctx, "diagnostic screenshot failed", "step", s, "error", err)
		return
	}

	name := fmt.Sprintf("%s-%s-%d.png", slug(journalName), s, a.now().UnixMilli())
	path := filepath.Join(a.opts.DiagnosticsDir, name)
	if err := filex.WriteFileAtomic(path, data, 0o640); err != nil {
		a.logger.Warn(ctx, "diagnostic screenshot not saved", "step", s, "error", err)
		return
	}
	a.logger.Info(ctx, "diagnostic screenshot saved", "step", s, "path", path)
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = unsafeChars.ReplaceAllString(s, "-")
	return strings.Trim(strings.ReplaceAll(s, " ", "-"), "-")
}
