package core_test

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"mxbmm/internal/domain"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

// createTestZip writes a zip archive named name into dir. Entries are
// written in sorted order so tests are deterministic.
func createTestZip(t *testing.T, dir, name string, files map[string]string) string {
	t.Helper()

	zipPath := filepath.Join(dir, name)
	f, err := os.Create(zipPath)
	require.NoError(t, err)
	defer f.Close()

	names := make([]string, 0, len(files))
	for n := range files {
		names = append(names, n)
	}
	sort.Strings(names)

	w := zip.NewWriter(f)
	for _, n := range names {
		fw, err := w.Create(n)
		require.NoError(t, err)
		_, err = fw.Write([]byte(files[n]))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	return zipPath
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// testRegistry mirrors the layout used throughout the tests: a flat "bikes"
// category with "bikes/paints" nested inside it.
func testRegistry() *domain.Registry {
	return domain.MustRegistry(
		domain.Category{ID: "bikes", Label: "Bikes", Subpath: "bikes"},
		domain.Category{ID: "bike-paints", Label: "Bike Paints", Subpath: "bikes/paints"},
		domain.Category{ID: "tracks", Label: "Tracks", Subpath: "tracks"},
	)
}

// listTree returns every path under dir, relative and slash-separated
func listTree(t *testing.T, dir string) []string {
	t.Helper()
	var out []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == dir {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	return out
}
