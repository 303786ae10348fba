package export

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/journalsync/internal/common"
	"github.com/dmitrijs2005/journalsync/internal/journal"
)

// document is the export file layout. Metadata is kept opaque.
type document struct {
	Metadata json.RawMessage `json:"metadata,omitempty"`
	Entries  []journal.Entry `json:"entries"`
}

// ParseExport reads an export artifact: a ZIP archive holding a JSON
// document (the first member ending in ".json"), or the JSON document
// itself. The format is detected from the content, not the file name.
//
// When any entry names its journal, only entries whose journal name
// contains journalName (case-insensitively) are returned. Exports of a
// single journal carry no journal names and are returned whole.
func ParseExport(path, journalName string) ([]journal.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}

	if bytes.HasPrefix(data, zipMagic) {
		data, err = jsonFromArchive(data)
		if err != nil {
			return nil, err
		}
	}

	entries, err := decodeDocument(data)
	if err != nil {
		return nil, err
	}
	return filterJournal(entries, journalName), nil
}

func jsonFromArchive(data []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open export archive: %w", err)
	}

	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(strings.ToLower(f.Name), ".json") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		return b, nil
	}
	return nil, fmt.Errorf("%w: archive contains no JSON document", common.ErrUnsupportedExport)
}

func decodeDocument(data []byte) ([]journal.Entry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty document", common.ErrUnsupportedExport)
	}

	// A bare list of entries is accepted as well.
	if trimmed[0] == '[' {
		var entries []journal.Entry
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("decode export entries: %w", err)
		}
		return entries, nil
	}

	var doc document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("decode export document: %w", err)
	}
	if doc.Entries == nil {
		return []journal.Entry{}, nil
	}
	return doc.Entries, nil
}

func filterJournal(entries []journal.Entry, name string) []journal.Entry {
	if name == "" {
		return entries
	}
	labelled := false
	for _, e := range entries {
		if e.Journal != "" {
			labelled = true
			break
		}
	}
	if !labelled {
		return entries
	}

	want := strings.ToLower(name)
	out := make([]journal.Entry, 0, len(entries))
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Journal), want) {
			out = append(out, e)
		}
	}
	return out
}
