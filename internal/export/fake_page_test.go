package export

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/journalsync/internal/logging"
)

// fakePage is a scripted Page. Elements are addressed by locator keys:
// "css:<selector>", "xpath:<expr>" or "text:<label>".
type fakePage struct {
	Page

	mu sync.Mutex

	url         string
	navigations []string
	present     map[string]bool
	disabled    map[string]bool
	onClick     map[string]func(p *fakePage)
	clicks      []string
	filled      map[string]string

	body    string
	bodySeq []string

	downloads [][]Download
	blobs     [][]Blob
	links     [][]Link
	blobData  map[string][]byte

	screenshotErr error
	closed        bool
}

func newFakePage() *fakePage {
	return &fakePage{
		present:  map[string]bool{},
		disabled: map[string]bool{},
		onClick:  map[string]func(p *fakePage){},
		filled:   map[string]string{},
		blobData: map[string][]byte{},
	}
}

func locatorKeys(loc Locator) []string {
	switch loc.By {
	case ByText:
		keys := make([]string, 0, len(loc.Text))
		for _, t := range loc.Text {
			keys = append(keys, "text:"+t)
		}
		return keys
	case ByXPath:
		return []string{"xpath:" + loc.Query}
	default:
		return []string{"css:" + loc.Query}
	}
}

func (p *fakePage) show(keys ...string) *fakePage {
	for _, k := range keys {
		p.present[k] = true
	}
	return p
}

func (p *fakePage) hide(keys ...string) *fakePage {
	for _, k := range keys {
		delete(p.present, k)
	}
	return p
}

func (p *fakePage) match(loc Locator) (string, bool) {
	for _, k := range locatorKeys(loc) {
		if p.present[k] {
			return k, true
		}
	}
	return "", false
}

func (p *fakePage) clickCount(key string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.clicks {
		if c == key {
			n++
		}
	}
	return n
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigations = append(p.navigations, url)
	p.url = url
	return nil
}

func (p *fakePage) URL(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, nil
}

func (p *fakePage) BodyText(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.bodySeq) > 0 {
		p.body = p.bodySeq[0]
		p.bodySeq = p.bodySeq[1:]
	}
	return p.body, nil
}

func (p *fakePage) Screenshot(context.Context) ([]byte, error) {
	if p.screenshotErr != nil {
		return nil, p.screenshotErr
	}
	return []byte("\x89PNG"), nil
}

func (p *fakePage) Exists(_ context.Context, loc Locator) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.match(loc)
	return ok, nil
}

func (p *fakePage) Click(_ context.Context, loc Locator) (bool, error) {
	p.mu.Lock()
	key, ok := p.match(loc)
	if !ok {
		p.mu.Unlock()
		return false, nil
	}
	p.clicks = append(p.clicks, key)
	hook := p.onClick[key]
	p.mu.Unlock()

	if hook != nil {
		hook(p)
	}
	return true, nil
}

func (p *fakePage) Enabled(_ context.Context, loc Locator) (bool, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key, ok := p.match(loc)
	if !ok {
		return false, false, nil
	}
	return true, !p.disabled[key], nil
}

func (p *fakePage) Fill(_ context.Context, css, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.filled[css] = value
	return nil
}

func (p *fakePage) Downloads(context.Context) ([]Download, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.downloads) == 0 {
		return nil, nil
	}
	d := p.downloads[0]
	p.downloads = p.downloads[1:]
	return d, nil
}

func (p *fakePage) Blobs(context.Context) ([]Blob, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.blobs) == 0 {
		return nil, nil
	}
	b := p.blobs[0]
	p.blobs = p.blobs[1:]
	return b, nil
}

func (p *fakePage) Links(context.Context) ([]Link, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.links) == 0 {
		return nil, nil
	}
	l := p.links[0]
	p.links = p.links[1:]
	return l, nil
}

func (p *fakePage) FetchBlob(_ context.Context, url string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	data, ok := p.blobData[url]
	if !ok {
		return nil, errors.New("blob revoked")
	}
	return data, nil
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// testOptions keeps every wait in the millisecond range.
func testOptions(downloadDir, diagDir string) Options {
	return Options{
		Email:            "user@example.com",
		Password:         "secret",
		DownloadDir:      downloadDir,
		DiagnosticsDir:   diagDir,
		StepTimeout:      20 * time.Millisecond,
		PollInterval:     time.Millisecond,
		SyncPollInterval: time.Millisecond,
		SyncMaxAttempts:  60,
		ArtifactTick:     time.Millisecond,
		ArtifactMaxTicks: 5,
		SweepDirs:        []string{},
		SweepWindow:      time.Minute,
	}
}

func newTestAcquirer(p *fakePage, opts Options) *Acquirer {
	return NewAcquirer(p, opts, logging.Nop())
}
