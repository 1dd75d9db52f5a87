package core_test

import (
	"os"
	"path/filepath"
	"testing"

	"mxbmm/internal/core"
	"mxbmm/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUninstaller_Uninstall(t *testing.T) {
	root := t.TempDir()
	u := core.NewUninstaller(testRegistry())

	t.Run("directory", func(t *testing.T) {
		dir := filepath.Join(root, "bikes", "mybike")
		writeFile(t, filepath.Join(dir, "sub", "b.txt"), "b")

		removed, err := u.Uninstall(domain.InstalledMod{Category: "bikes", Name: "mybike", Path: dir, IsDir: true}, root)
		require.NoError(t, err)
		assert.True(t, removed)
		assert.NoDirExists(t, dir)
		assert.DirExists(t, filepath.Join(root, "bikes"))
	})

	t.Run("single file", func(t *testing.T) {
		path := writeFile(t, filepath.Join(root, "bikes", "skin1"), "paint")

		removed, err := u.Uninstall(domain.InstalledMod{Category: "bikes", Name: "skin1", Path: path}, root)
		require.NoError(t, err)
		assert.True(t, removed)
		assert.NoFileExists(t, path)
	})

	t.Run("already gone is success", func(t *testing.T) {
		removed, err := u.Uninstall(domain.InstalledMod{Category: "bikes", Name: "ghost"}, root)
		require.NoError(t, err)
		assert.False(t, removed)
	})
}

func TestUninstaller_Uninstall_Symlink(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	keep := writeFile(t, filepath.Join(outside, "keep.txt"), "keep")

	require.NoError(t, os.MkdirAll(filepath.Join(root, "tracks"), 0755))
	link := filepath.Join(root, "tracks", "linked")
	require.NoError(t, os.Symlink(outside, link))

	removed, err := core.NewUninstaller(testRegistry()).Uninstall(domain.InstalledMod{Category: "tracks", Name: "linked"}, root)
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = os.Lstat(link)
	assert.True(t, os.IsNotExist(err))
	assert.FileExists(t, keep)
}

func TestUninstaller_Uninstall_Rejects(t *testing.T) {
	root := t.TempDir()
	victim := writeFile(t, filepath.Join(root, "victim.txt"), "precious")
	paints := writeFile(t, filepath.Join(root, "bikes", "paints", "blue.pnt"), "blue")

	tests := []struct {
		name   string
		mod    domain.InstalledMod
		reason error
	}{
		{"parent segment", domain.InstalledMod{Category: "bikes", Name: ".."}, domain.ErrUnsafeName},
		{"separator", domain.InstalledMod{Category: "bikes", Name: "../victim.txt"}, domain.ErrUnsafeName},
		{"nested category", domain.InstalledMod{Category: "bikes", Name: "paints"}, domain.ErrUnsafeName},
		{"stale path", domain.InstalledMod{Category: "bikes", Name: "x", Path: victim}, domain.ErrUnsafeName},
		{"unknown category", domain.InstalledMod{Category: "nope", Name: "x"}, domain.ErrUnknownCategory},
		{"empty name", domain.InstalledMod{Category: "bikes"}, domain.ErrEmptyName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			removed, err := core.NewUninstaller(testRegistry()).Uninstall(tt.mod, root)
			require.Error(t, err)
			assert.False(t, removed)

			var uninstallErr *domain.UninstallError
			require.ErrorAs(t, err, &uninstallErr)
			assert.ErrorIs(t, err, tt.reason)

			assert.FileExists(t, victim)
			assert.FileExists(t, paints)
		})
	}
}
