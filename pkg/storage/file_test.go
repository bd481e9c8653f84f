package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Open(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sleman.json"), []byte(`{"model_type":"sleman"}`), 0o644))

	store := NewFileStore(dir)
	rc, err := store.Open(context.Background(), "sleman.json")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"model_type":"sleman"}`, string(data))
}

func TestFileStore_OpenMissing(t *testing.T) {
	store := NewFileStore(t.TempDir())
	_, err := store.Open(context.Background(), "kapanewon.json")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_OpenStaysInsideRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "models")
	require.NoError(t, os.Mkdir(root, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(parent, "secret.json"), []byte(`{}`), 0o644))

	store := NewFileStore(root)
	_, err := store.Open(context.Background(), "../secret.json")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMinioStore_ObjectName(t *testing.T) {
	s := &MinioStore{prefix: "models/v3"}
	assert.Equal(t, "models/v3/sleman.json", s.ObjectName("sleman.json"))

	s = &MinioStore{}
	assert.Equal(t, "sleman.json", s.ObjectName("sleman.json"))
}
