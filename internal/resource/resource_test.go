package resource

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestListDirectoryFiltersBySuffix(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "user.xml"), "<mapper/>")
	writeFile(t, filepath.Join(dir, "sub", "order.xml"), "<mapper/>")
	writeFile(t, filepath.Join(dir, "notes.txt"), "skip me")

	entries, err := List(dir, ".xml")
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"sub/order.xml", "user.xml"}, names)
}

func TestEntryOpenReadsContents(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "m.xml"), "<mapper namespace=\"x\"/>")

	entries, err := List(dir, ".xml")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	rc, err := entries[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "<mapper namespace=\"x\"/>", string(data))
}

func buildArchive(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	for name, content := range files {
		zf, err := w.Create(name)
		require.NoError(t, err)
		_, err = zf.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
}

func TestArchiveDetectionByMagicBytes(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "mappers.jar")
	buildArchive(t, archive, map[string]string{"a.xml": "<mapper/>"})

	ok, err := IsArchive(archive)
	require.NoError(t, err)
	assert.True(t, ok)

	plain := filepath.Join(dir, "plain.xml")
	writeFile(t, plain, "<mapper/>")
	ok, err = IsArchive(plain)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListArchiveEnumeratesEntries(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "mappers.zip")
	buildArchive(t, archive, map[string]string{
		"mappers/user.xml":  "<mapper namespace=\"u\"/>",
		"mappers/notes.txt": "skip",
	})

	entries, err := List(archive, ".xml")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "mappers/user.xml", entries[0].Name)

	rc, err := entries[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Contains(t, string(data), "namespace=\"u\"")
}

func TestListRejectsUnrecognizedFile(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "not-an-archive.bin")
	writeFile(t, plain, "just bytes")

	_, err := List(plain, ".xml")
	assert.Error(t, err)
}
