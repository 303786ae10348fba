// Package browser implements export.Page on a Chrome tab driven over the
// DevTools protocol.
package browser

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/dmitrijs2005/journalsync/internal/export"
	"github.com/dmitrijs2005/journalsync/internal/filex"
	"github.com/dmitrijs2005/journalsync/internal/logging"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultWidth     = 1366
	DefaultHeight    = 768
)

type Options struct {
	ExecPath    string
	Headless    bool
	NoSandbox   bool
	UserAgent   string
	Width       int
	Height      int
	DownloadDir string
}

func (o Options) allocatorOptions() []chromedp.ExecAllocatorOption {
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.Width <= 0 || o.Height <= 0 {
		o.Width, o.Height = DefaultWidth, DefaultHeight
	}

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", o.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(o.UserAgent),
		chromedp.WindowSize(o.Width, o.Height),
	)
	if o.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if o.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(o.ExecPath))
	}
	return opts
}

// Chrome is one browser process with a single tab.
type Chrome struct {
	tab         context.Context
	cancel      context.CancelFunc
	downloadDir string
	logger      logging.Logger

	mu        sync.Mutex
	started   map[string]string
	completed []export.Download
}

// Launch starts Chrome, routes downloads into opts.DownloadDir under their
// GUIDs and installs the page hooks. The browser lives until Close.
func Launch(ctx context.Context, opts Options, logger logging.Logger) (*Chrome, error) {
	dir, err := filex.EnsureDir(opts.DownloadDir)
	if err != nil {
		return nil, fmt.Errorf("prepare download dir: %w", err)
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts.allocatorOptions()...)
	tab, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...any) {
			logger.Debug(context.Background(), "cdp: "+fmt.Sprintf(format, args...))
		}),
	)

	c := &Chrome{
		tab: tab,
		cancel: func() {
			cancelTab()
			cancelAlloc()
		},
		downloadDir: dir,
		logger:      logger.With("component", "browser"),
		started:     make(map[string]string),
	}
	chromedp.ListenTarget(tab, c.handleEvent)

	// The first Run allocates the browser and binds its lifetime to the
	// context it is given, so it must run on tab itself.
	stop := context.AfterFunc(ctx, c.cancel)
	err = chromedp.Run(tab,
		browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllowAndName).
			WithDownloadPath(dir).
			WithEventsEnabled(true),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(hookScript).Do(ctx)
			return err
		}),
	)
	stop()
	if err != nil {
		c.cancel()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	c.logger.Info(ctx, "browser started", "headless", opts.Headless, "downloads", dir)
	return c, nil
}

// Launcher adapts Launch to export.LaunchFunc.
func Launcher(opts Options, logger logging.Logger) export.LaunchFunc {
	return func(ctx context.Context) (export.Page, error) {
		return Launch(ctx, opts, logger)
	}
}

func (c *Chrome) handleEvent(ev any) {
	switch e := ev.(type) {
	case *browser.EventDownloadWillBegin:
		c.mu.Lock()
		c.started[e.GUID] = e.SuggestedFilename
		c.mu.Unlock()
	case *browser.EventDownloadProgress:
		if e.State != browser.DownloadProgressStateCompleted {
			return
		}
		c.mu.Lock()
		name := c.started[e.GUID]
		delete(c.started, e.GUID)
		c.completed = append(c.completed, export.Download{
			Path:              filepath.Join(c.downloadDir, e.GUID),
			SuggestedFilename: name,
		})
		c.mu.Unlock()
	}
}

// run executes actions on the tab, cancelled when either ctx or the
// browser goes away.
func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(c.tab)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (c *Chrome) eval(ctx context.Context, expr string, res any, opts ...chromedp.EvaluateOption) error {
	return c.run(ctx, chromedp.Evaluate(expr, res, opts...))
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	return c.run(ctx, chromedp.Navigate(url))
}

func (c *Chrome) URL(ctx context.Context) (string, error) {
	var u string
	err := c.run(ctx, chromedp.Location(&u))
	return u, err
}

func (c *Chrome) BodyText(ctx context.Context) (string, error) {
	var s string
	err := c.eval(ctx, bodyTextExpr, &s)
	return s, err
}

func (c *Chrome) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := c.run(ctx, chromedp.CaptureScreenshot(&buf))
	return buf, err
}

func (c *Chrome) Exists(ctx context.Context, loc export.Locator) (bool, error) {
	var ok bool
	err := c.eval(ctx, onElement(loc, existsBody), &ok)
	return ok, err
}

func (c *Chrome) Click(ctx context.Context, loc export.Locator) (bool, error) {
	var ok bool
	if err := c.eval(ctx, onElement(loc, clickBody), &ok); err != nil {
		return false, fmt.Errorf("click %s: %w", loc, err)
	}
	return ok, nil
}

func (c *Chrome) Enabled(ctx context.Context, loc export.Locator) (bool, bool, error) {
	var res struct {
		Found   bool `json:"found"`
		Enabled bool `json:"enabled"`
	}
	err := c.eval(ctx, onElement(loc, enabledBody), &res)
	return res.Found, res.Enabled, err
}

// Fill types value into the input matched by css, replacing its content.
func (c *Chrome) Fill(ctx context.Context, css, value string) error {
	return c.run(ctx,
		chromedp.Clear(css, chromedp.ByQuery),
		chromedp.SendKeys(css, value, chromedp.ByQuery),
	)
}

func (c *Chrome) Downloads(context.Context) ([]export.Download, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.completed
	c.completed = nil
	return out, nil
}

func (c *Chrome) Blobs(ctx context.Context) ([]export.Blob, error) {
	var raw []struct {
		URL  string  `json:"url"`
		Size float64 `json:"size"`
		Type string  `json:"type"`
	}
	if err := c.eval(ctx, drainBlobsExpr, &raw); err != nil {
		return nil, err
	}
	out := make([]export.Blob, 0, len(raw))
	for _, b := range raw {
		out = append(out, export.Blob{URL: b.URL, Size: int64(b.Size), Type: b.Type})
	}
	return out, nil
}

func (c *Chrome) Links(ctx context.Context) ([]export.Link, error) {
	var raw []struct {
		Href     string `json:"href"`
		Filename string `json:"filename"`
	}
	if err := c.eval(ctx, drainLinksExpr, &raw); err != nil {
		return nil, err
	}
	out := make([]export.Link, 0, len(raw))
	for _, l := range raw {
		out = append(out, export.Link{Href: l.Href, Filename: l.Filename})
	}
	return out, nil
}

func (c *Chrome) FetchBlob(ctx context.Context, url string) ([]byte, error) {
	var encoded string
	err := c.eval(ctx, fetchBlobExpr(url), &encoded, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}
	return data, nil
}

// Close shuts the browser down. It is safe to call more than once.
func (c *Chrome) Close() error {
	err := chromedp.Cancel(c.tab)
	c.cancel()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
