package filex

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir_CreatesNestedDirectory(t *testing.T) {
	tmp := t.TempDir()
	want := filepath.Join(tmp, "a", "b")

	got, err := EnsureDir(want)
	require.NoError(t, err)
	require.Equal(t, want, got)

	fi, err := os.Stat(want)
	require.NoError(t, err)
	require.True(t, fi.IsDir())

	again, err := EnsureDir(want)
	require.NoError(t, err)
	require.Equal(t, got, again)
}

func TestEnsureDir_FailsIfFileWithSameNameExists(t *testing.T) {
	tmp := t.TempDir()
	p := filepath.Join(tmp, "downloads")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o660))

	_, err := EnsureDir(p)
	require.Error(t, err)
}

func TestWriteFileAtomic_ReplacesContentAndLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "state.json")

	require.NoError(t, WriteFileAtomic(p, []byte(`{"v":1}`), 0o600))
	require.NoError(t, WriteFileAtomic(p, []byte(`{"v":2}`), 0o600))

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(b))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "state.json", entries[0].Name())
}

func TestWriteFileAtomic_ErrorWhenParentIsFile(t *testing.T) {
	dir := t.TempDir()
	parent := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(parent, nil, 0o600))

	err := WriteFileAtomic(filepath.Join(parent, "state.json"), []byte("x"), 0o600)
	require.Error(t, err)
}

func TestCopyAndMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.zip")
	require.NoError(t, os.WriteFile(src, []byte("PK.."), 0o600))

	cp := filepath.Join(dir, "out", "copy.zip")
	require.NoError(t, CopyFile(src, cp))
	b, err := os.ReadFile(cp)
	require.NoError(t, err)
	assert.Equal(t, "PK..", string(b))

	mv := filepath.Join(dir, "moved.zip")
	require.NoError(t, MoveFile(src, mv))
	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(mv)
	assert.NoError(t, err)
}

func TestFindRecent_FiltersByAgeExtensionAndExclusions(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, age time.Duration) {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("{}"), 0o600))
		mt := time.Now().Add(-age)
		require.NoError(t, os.Chtimes(p, mt, mt))
	}

	write("export.zip", time.Second)
	write("export.json", 2*time.Second)
	write("old.zip", 10*time.Minute)
	write("debug-dump.json", time.Second)
	write("screenshot.png", time.Second)
	write("notes.txt", time.Second)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.zip"), 0o700))

	got := FindRecent(dir, time.Now().Add(-time.Minute), []string{".zip", ".json"}, []string{"debug", "screenshot", ".png"})

	names := make([]string, 0, len(got))
	for _, f := range got {
		names = append(names, filepath.Base(f.Path))
	}
	assert.ElementsMatch(t, []string{"export.zip", "export.json"}, names)
}

func TestFindRecent_MissingDir(t *testing.T) {
	assert.Empty(t, FindRecent(filepath.Join(t.TempDir(), "nope"), time.Time{}, []string{".zip"}, nil))
}

func TestRemoveContents(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), nil, 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "b", "c"), 0o700))

	require.NoError(t, RemoveContents(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, RemoveContents(filepath.Join(dir, "missing")))
}
