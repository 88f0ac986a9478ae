package utils_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/go-ems-client/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "record.json")

	require.NoError(t, utils.WriteFileAtomic(path, []byte("one"), 0o600))
	require.NoError(t, utils.WriteFileAtomic(path, []byte("two"), 0o600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "two", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
}

func TestRemoveIfExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone")
	require.NoError(t, utils.RemoveIfExists(path))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	require.NoError(t, utils.RemoveIfExists(path))
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))
}
