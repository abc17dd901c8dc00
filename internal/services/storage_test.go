package services

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) (StorageService, string, string) {
	t.Helper()
	root := t.TempDir()
	uploads := filepath.Join(root, "uploads")
	accepted := filepath.Join(root, "accepted")

	storage := NewStorageService(uploads, accepted)
	require.NoError(t, storage.EnsureUploadDir())
	return storage, uploads, accepted
}

func TestStorage_SaveFile(t *testing.T) {
	storage, uploads, _ := newTestStorage(t)
	fh := fileHeaders(t, "files", txtUpload("alice.txt", "Go and Kubernetes"))[0]

	stored, err := storage.SaveFile(fh, "resume")
	require.NoError(t, err)

	assert.Equal(t, "alice.txt", stored.OriginalName)
	assert.Equal(t, FormatTXT, stored.Format)
	assert.EqualValues(t, len("Go and Kubernetes"), stored.Size)
	assert.True(t, strings.HasPrefix(stored.StoredName, "resume_"))
	assert.Equal(t, uploads, filepath.Dir(stored.Path))

	data, err := os.ReadFile(stored.Path)
	require.NoError(t, err)
	assert.Equal(t, "Go and Kubernetes", string(data))
}

func TestStorage_SaveFileRejectsUnsupported(t *testing.T) {
	storage, uploads, _ := newTestStorage(t)
	fh := fileHeaders(t, "files", upload{name: "photo.png", contentType: "image/png", body: []byte{0x89}})[0]

	_, err := storage.SaveFile(fh, "resume")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	entries, err := os.ReadDir(uploads)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStorage_DeleteFileIgnoresMissing(t *testing.T) {
	storage, uploads, _ := newTestStorage(t)
	assert.NoError(t, storage.DeleteFile(filepath.Join(uploads, "nope.txt")))
}

func TestStorage_MoveToAccepted(t *testing.T) {
	storage, uploads, accepted := newTestStorage(t)
	src := filepath.Join(uploads, "resume_123.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0644))

	dest, err := storage.MoveToAccepted(src, "../alice.txt")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(accepted, "alice.txt"), dest)
	assert.NoFileExists(t, src)
	assert.FileExists(t, dest)
}

func TestStorage_GetFilePathStripsDirectories(t *testing.T) {
	storage, uploads, _ := newTestStorage(t)
	assert.Equal(t, filepath.Join(uploads, "x.txt"), storage.GetFilePath("../../x.txt"))
}
