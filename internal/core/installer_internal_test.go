package core

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"mxbmm/internal/domain"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, path string, entries ...string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for _, name := range entries {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(name))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}

func TestRenameNoReplace(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0644))

	t.Run("refuses to replace", func(t *testing.T) {
		require.NoError(t, os.WriteFile(dst, []byte("old"), 0644))
		defer os.Remove(dst)

		err := renameNoReplace(src, dst)
		if err == errRenameUnsupported {
			t.Skip("filesystem has no no-replace rename")
		}
		require.Error(t, err)
		assert.ErrorIs(t, err, fs.ErrExist)

		content, err := os.ReadFile(dst)
		require.NoError(t, err)
		assert.Equal(t, "old", string(content))
	})

	t.Run("moves into free slot", func(t *testing.T) {
		err := renameNoReplace(src, dst)
		if err == errRenameUnsupported {
			t.Skip("filesystem has no no-replace rename")
		}
		require.NoError(t, err)
		assert.FileExists(t, dst)
		assert.NoFileExists(t, src)
	})
}

func TestInstallInPlace_Archive(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(t.TempDir(), "sample.zip")
	writeZip(t, src, "a.txt", "sub/b.txt")

	dest := filepath.Join(root, "bikes", "mybike")
	require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0755))

	err := NewInstaller().installInPlace(context.Background(), domain.Plan{
		Source:      src,
		Destination: dest,
		Extract:     true,
		Version:     "1.0",
	})
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dest, "a.txt"))
	assert.FileExists(t, filepath.Join(dest, "sub", "b.txt"))
	assert.FileExists(t, filepath.Join(dest, domain.MetadataFile))
}

func TestInstallInPlace_RollsBackOnFailure(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(t.TempDir(), "evil.zip")
	writeZip(t, src, "a.txt", "../../evil")

	dest := filepath.Join(root, "bikes", "mybike")
	require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0755))

	err := NewInstaller().installInPlace(context.Background(), domain.Plan{
		Source:      src,
		Destination: dest,
		Extract:     true,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsafeEntryPath)
	assert.NoDirExists(t, dest)
}

func TestInstallInPlace_KeepsExistingDestination(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(t.TempDir(), "skin.pnt")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0644))

	dest := filepath.Join(root, "skin1")
	require.NoError(t, os.WriteFile(dest, []byte("old"), 0644))

	err := NewInstaller().installInPlace(context.Background(), domain.Plan{Source: src, Destination: dest})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDestinationExists)

	content, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "old", string(content))
}

func TestFlattenInPlace(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Wrapper", "Wrapper"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Wrapper", "a.txt"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Wrapper", "Wrapper", "b.txt"), []byte("b"), 0644))

	require.NoError(t, flattenInPlace(dir))

	assert.FileExists(t, filepath.Join(dir, "a.txt"))
	assert.FileExists(t, filepath.Join(dir, "Wrapper", "b.txt"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestFlattenInPlace_MultipleRootsUntouched(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "one"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "two.txt"), []byte("2"), 0644))

	require.NoError(t, flattenInPlace(dir))

	assert.DirExists(t, filepath.Join(dir, "one"))
	assert.FileExists(t, filepath.Join(dir, "two.txt"))
}
