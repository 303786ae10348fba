package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/journalsync/internal/common"
)

const sampleDocument = `{
  "metadata": {"version": "1.0"},
  "entries": [
    {"uuid": "A1", "creationDate": "2024-03-01T10:00:00Z", "modifiedDate": "2024-03-02T10:00:00Z", "text": "# First post\nbody"},
    {"uuid": "B2", "creationDate": "2024-03-03T10:00:00Z", "text": "Second", "photos": [{"identifier": "p1", "md5": "abc"}]}
  ]
}`

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestParseExport_Archive(t *testing.T) {
	archive := zipBytes(t, map[string]string{
		"photos/p1.jpeg":   "jpeg",
		"Blog Public.json": sampleDocument,
	})
	// The extension says nothing; the content decides.
	path := writeFile(t, "download.bin", archive)

	entries, err := ParseExport(path, "Blog Public")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "A1", entries[0].UUID)
	assert.Equal(t, "First post", entries[0].DisplayTitle())
	assert.Len(t, entries[1].Attachments, 1)
	assert.True(t, entries[1].EffectiveModified().Equal(entries[1].CreationDate))
}

func TestParseExport_PlainJSON(t *testing.T) {
	path := writeFile(t, "export.zip", []byte(sampleDocument))

	entries, err := ParseExport(path, "")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestParseExport_BareArray(t *testing.T) {
	path := writeFile(t, "export.json", []byte(`[{"uuid":"X","creationDate":"2024-01-01T00:00:00Z","text":"x"}]`))

	entries, err := ParseExport(path, "Blog Public")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "X", entries[0].UUID)
}

func TestParseExport_NoEntries(t *testing.T) {
	path := writeFile(t, "export.json", []byte(`{"metadata":{}}`))

	entries, err := ParseExport(path, "Blog Public")
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestParseExport_FiltersLabelledEntries(t *testing.T) {
	doc := `{"entries":[
	  {"uuid":"1","creationDate":"2024-01-01T00:00:00Z","text":"a","journalName":"Blog Public"},
	  {"uuid":"2","creationDate":"2024-01-01T00:00:00Z","text":"b","journal":"Blog Drafts"},
	  {"uuid":"3","creationDate":"2024-01-01T00:00:00Z","text":"c","journal":"blog public"}
	]}`
	path := writeFile(t, "export.json", []byte(doc))

	entries, err := ParseExport(path, "Blog Public")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "1", entries[0].UUID)
	assert.Equal(t, "3", entries[1].UUID)
}

func TestParseExport_ArchiveWithoutJSON(t *testing.T) {
	path := writeFile(t, "export.zip", zipBytes(t, map[string]string{"readme.txt": "hi"}))

	_, err := ParseExport(path, "")
	require.ErrorIs(t, err, common.ErrUnsupportedExport)
}

func TestParseExport_Errors(t *testing.T) {
	_, err := ParseExport(filepath.Join(t.TempDir(), "missing.json"), "")
	require.Error(t, err)

	_, err = ParseExport(writeFile(t, "empty.json", []byte("  ")), "")
	require.ErrorIs(t, err, common.ErrUnsupportedExport)

	_, err = ParseExport(writeFile(t, "bad.json", []byte(`{"entries":`)), "")
	require.Error(t, err)
}
