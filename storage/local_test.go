package storage

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_UploadDownload(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	payload := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}
	err = store.Upload(ctx, "evaluations/abc/step-01.png", bytes.NewReader(payload))
	require.NoError(t, err)

	rc, err := store.Download(ctx, "evaluations/abc/step-01.png")
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestLocalStorage_DownloadMissing(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Download(ctx, "nope.png")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestLocalStorage_Exists(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	exists, err := store.Exists(ctx, "a/b.png")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Upload(ctx, "a/b.png", strings.NewReader("x")))

	exists, err = store.Exists(ctx, "a/b.png")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLocalStorage_Delete(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Upload(ctx, "a.png", strings.NewReader("x")))
	require.NoError(t, store.Delete(ctx, "a.png"))

	assert.ErrorIs(t, store.Delete(ctx, "a.png"), ErrFileNotFound)
}

func TestLocalStorage_PathTraversal(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	tests := []struct {
		name string
		path string
	}{
		{"parent escape", "../outside.png"},
		{"nested escape", "a/../../outside.png"},
		{"empty path", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Upload(ctx, tt.path, strings.NewReader("x"))
			assert.ErrorIs(t, err, ErrInvalidPath)
		})
	}
}

func TestNewBlobStorage(t *testing.T) {
	t.Run("local requires base dir", func(t *testing.T) {
		_, err := NewBlobStorage(Config{Type: "local"})
		assert.Error(t, err)
	})

	t.Run("local", func(t *testing.T) {
		store, err := NewBlobStorage(Config{Type: "local", BaseDir: t.TempDir()})
		require.NoError(t, err)
		assert.IsType(t, &LocalStorage{}, store)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := NewBlobStorage(Config{Type: "ftp"})
		assert.Error(t, err)
	})
}
