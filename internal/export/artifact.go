package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/journalsync/internal/filex"
)

type source string

const (
	sourceDownload source = "download"
	sourceBlob     source = "blob"
	sourceLink     source = "link"
)

// candidate is a possible export artifact reported by one of the probes.
type candidate struct {
	source source
	path   string
	url    string
	name   string
	size   int64
	mime   string
}

func (c candidate) key() string {
	if c.source == sourceDownload {
		return "file:" + c.path
	}
	return "url:" + c.url
}

// probe watches one delivery channel and reports new candidates.
type probe struct {
	name    source
	collect func(ctx context.Context) ([]candidate, error)
}

var errPending = errors.New("artifact requested, not yet delivered")

func (a *Acquirer) probes() []probe {
	return []probe{
		{sourceDownload, func(ctx context.Context) ([]candidate, error) {
			ds, err := a.page.Downloads(ctx)
			out := make([]candidate, 0, len(ds))
			for _, d := range ds {
				out = append(out, candidate{source: sourceDownload, path: d.Path, name: d.SuggestedFilename})
			}
			return out, err
		}},
		{sourceBlob, func(ctx context.Context) ([]candidate, error) {
			bs, err := a.page.Blobs(ctx)
			out := make([]candidate, 0, len(bs))
			for _, b := range bs {
				c := candidate{source: sourceBlob, url: b.URL, size: b.Size, mime: b.Type}
				if !a.acceptBlob(c) {
					continue
				}
				out = append(out, c)
			}
			return out, err
		}},
		{sourceLink, func(ctx context.Context) ([]candidate, error) {
			ls, err := a.page.Links(ctx)
			out := make([]candidate, 0, len(ls))
			for _, l := range ls {
				out = append(out, candidate{source: sourceLink, url: l.Href, name: l.Filename})
			}
			return out, err
		}},
	}
}

// acceptBlob filters out thumbnails and other small inline object URLs.
func (a *Acquirer) acceptBlob(c candidate) bool {
	mime := strings.ToLower(c.mime)
	for _, t := range []string{"zip", "json", "octet-stream"} {
		if strings.Contains(mime, t) {
			return true
		}
	}
	return c.size > a.opts.BlobMinSize
}

// acquireArtifact polls the probes once per tick, feeding a single queue,
// and returns the first candidate retrieved intact. When the ticks run out
// the known download locations are swept once.
func (a *Acquirer) acquireArtifact(ctx context.Context) (string, error) {
	probes := a.probes()
	tried := make(map[string]struct{})
	var queue []candidate

	for tick := 1; tick <= a.opts.ArtifactMaxTicks; tick++ {
		for _, p := range probes {
			cs, err := p.collect(ctx)
			if err != nil {
				a.logger.Debug(ctx, "probe failed", "probe", p.name, "error", err)
			}
			for _, c := range cs {
				if _, dup := tried[c.key()]; dup {
					continue
				}
				tried[c.key()] = struct{}{}
				a.logger.Info(ctx, "artifact candidate", "source", c.source, "url", c.url, "path", c.path, "size", c.size, "type", c.mime)
				queue = append(queue, c)
			}
		}

		for len(queue) > 0 {
			c := queue[0]
			queue = queue[1:]

			path, err := a.retrieve(ctx, c)
			switch {
			case err == nil:
				return path, nil
			case errors.Is(err, errPending):
				a.logger.Debug(ctx, "artifact requested via link", "url", c.url)
			case ctx.Err() != nil:
				return "", ctx.Err()
			default:
				a.logger.Warn(ctx, "artifact candidate rejected", "source", c.source, "error", err)
			}
		}

		if tick < a.opts.ArtifactMaxTicks {
			if err := sleep(ctx, a.opts.ArtifactTick); err != nil {
				return "", err
			}
		}
	}

	a.logger.Warn(ctx, "no artifact delivered, sweeping download locations", "dirs", a.opts.SweepDirs)
	if path, ok := a.sweep(ctx); ok {
		return path, nil
	}
	return "", &ArtifactNotFoundError{Ticks: a.opts.ArtifactMaxTicks, Swept: a.opts.SweepDirs}
}

func (a *Acquirer) retrieve(ctx context.Context, c candidate) (string, error) {
	switch c.source {
	case sourceDownload:
		name := c.name
		if name == "" {
			name = filepath.Base(c.path)
		}
		dst := filepath.Join(a.opts.DownloadDir, safeName(name))
		if dst == c.path {
			return dst, nil
		}
		if err := filex.MoveFile(c.path, dst); err != nil {
			return "", fmt.Errorf("move download: %w", err)
		}
		return dst, nil

	case sourceBlob:
		return a.saveBlob(ctx, c.url, "")

	case sourceLink:
		if strings.HasPrefix(c.url, "blob:") {
			return a.saveBlob(ctx, c.url, c.name)
		}
		ok, err := a.page.Click(ctx, CSS(fmt.Sprintf(`a[href=%s]`, cssString(c.url))))
		if err != nil {
			return "", fmt.Errorf("click download link: %w", err)
		}
		if !ok {
			return "", fmt.Errorf("download link %s disappeared", c.url)
		}
		return "", errPending
	}
	return "", fmt.Errorf("unknown candidate source %q", c.source)
}

func (a *Acquirer) saveBlob(ctx context.Context, url, name string) (string, error) {
	data, err := a.page.FetchBlob(ctx, url)
	if err != nil {
		return "", fmt.Errorf("fetch blob: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("blob %s is empty", url)
	}

	if name == "" {
		name = fmt.Sprintf("dayone-export-%d%s", a.now().UnixMilli(), extensionFor(data))
	}
	dst := filepath.Join(a.opts.DownloadDir, safeName(name))
	if err := filex.WriteFileAtomic(dst, data, 0o640); err != nil {
		return "", fmt.Errorf("save blob: %w", err)
	}
	return dst, nil
}

var sweepExclude = []string{".png", "debug", "screenshot"}

// sweep picks the newest recent .json or .zip file in the sweep directories
// and copies it into the download directory. Files older than the current
// export and artifacts this Acquirer already returned are skipped, so one
// journal's export is never handed out for another.
func (a *Acquirer) sweep(ctx context.Context) (string, bool) {
	since := a.now().Add(-a.opts.SweepWindow)
	if a.started.After(since) {
		since = a.started
	}

	var best *filex.RecentFile
	for _, dir := range a.opts.SweepDirs {
		for _, f := range filex.FindRecent(dir, since, []string{".json", ".zip"}, sweepExclude) {
			if a.wasDelivered(f.Path) || a.wasDelivered(filepath.Join(a.opts.DownloadDir, filepath.Base(f.Path))) {
				a.logger.Debug(ctx, "sweep skips earlier artifact", "path", f.Path)
				continue
			}
			if best == nil || f.ModTime.After(best.ModTime) {
				f := f
				best = &f
			}
		}
	}
	if best == nil {
		return "", false
	}

	dst := filepath.Join(a.opts.DownloadDir, filepath.Base(best.Path))
	if filepath.Clean(best.Path) != filepath.Clean(dst) {
		if err := filex.CopyFile(best.Path, dst); err != nil {
			a.logger.Warn(ctx, "cannot copy swept artifact", "path", best.Path, "error", err)
			return "", false
		}
	}
	a.logger.Info(ctx, "artifact found by sweep", "source", best.Path, "path", dst)
	return dst, true
}

func (a *Acquirer) wasDelivered(path string) bool {
	_, ok := a.delivered[filepath.Clean(path)]
	return ok
}

var zipMagic = []byte("PK\x03\x04")

func extensionFor(data []byte) string {
	if bytes.HasPrefix(data, zipMagic) {
		return ".zip"
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return ".json"
	}
	return ".zip"
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._ -]+`)

// safeName reduces a suggested file name to its base and drops characters
// that do not belong in a path.
func safeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.TrimSpace(unsafeChars.ReplaceAllString(name, "_"))
	if name == "" || name == "." || name == ".." {
		return "export"
	}
	return name
}
