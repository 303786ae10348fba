package export

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/journalsync/internal/logging"
)

// LaunchFunc starts a browser and returns its page.
type LaunchFunc func(ctx context.Context) (Page, error)

// Opener creates one Acquirer per browser session.
type Opener struct {
	launch LaunchFunc
	opts   Options
	logger logging.Logger
}

// NewOpener returns an Opener that launches browsers with launch and
// configures each Acquirer with opts.
func NewOpener(launch LaunchFunc, opts Options, logger logging.Logger) *Opener {
	return &Opener{launch: launch, opts: opts, logger: logger}
}

// Open launches a browser. The caller must Close the returned Acquirer.
func (o *Opener) Open(ctx context.Context) (*Acquirer, error) {
	page, err := o.launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	return NewAcquirer(page, o.opts, o.logger), nil
}
