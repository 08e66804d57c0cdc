package service

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUploadStagerAcceptsImages(t *testing.T) {
	dir := t.TempDir()
	stager := NewUploadStager(dir, 10, testLogger())

	staged, err := stager.Stage(context.Background(), newFileHeader(t, "file", "Logo.PNG", pngFixture))
	require.NoError(t, err)
	require.Equal(t, "image/png", staged.MIMEType)
	require.Equal(t, "Logo.PNG", staged.FileName)
	require.Equal(t, int64(len(pngFixture)), staged.Size)

	data, err := staged.ReadAll()
	require.NoError(t, err)
	require.Equal(t, pngFixture, data)

	require.NoError(t, staged.Cleanup())
	require.NoError(t, staged.Cleanup())
	_, err = os.Stat(staged.Path)
	require.True(t, os.IsNotExist(err))
}

func TestUploadStagerSniffsContentNotExtension(t *testing.T) {
	dir := t.TempDir()
	stager := NewUploadStager(dir, 10, testLogger())

	staged, err := stager.Stage(context.Background(), newFileHeader(t, "file", "animation.jpg", gifFixture))
	require.NoError(t, err)
	require.Equal(t, "image/gif", staged.MIMEType)
	require.NoError(t, staged.Cleanup())

	_, err = stager.Stage(context.Background(), newFileHeader(t, "file", "doc.png", []byte("%PDF-1.4\n%âãÏÓ\n")))
	require.ErrorIs(t, err, ErrUploadTypeNotAllowed)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestUploadStagerRejectsOversizedFiles(t *testing.T) {
	dir := t.TempDir()
	stager := NewUploadStager(dir, 1, testLogger())
	require.Equal(t, int64(1024*1024), stager.MaxBytes())

	oversized := append(append([]byte{}, pngFixture...), bytes.Repeat([]byte{1}, 1024*1024)...)
	_, err := stager.Stage(context.Background(), newFileHeader(t, "file", "huge.png", oversized))
	require.ErrorIs(t, err, ErrUploadTooLarge)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestUploadStagerRequiresFile(t *testing.T) {
	stager := NewUploadStager(t.TempDir(), 10, testLogger())
	_, err := stager.Stage(context.Background(), nil)
	require.ErrorIs(t, err, ErrFileRequired)
}
