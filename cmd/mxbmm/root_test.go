package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"mxbmm/internal/domain"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cliEnv is an isolated config dir, data dir and mods root
type cliEnv struct {
	configDir string
	dataDir   string
	root      string
}

func newCLIEnv(t *testing.T) cliEnv {
	t.Helper()
	return cliEnv{
		configDir: t.TempDir(),
		dataDir:   t.TempDir(),
		root:      t.TempDir(),
	}
}

// resetFlags puts every flag variable back to its default; cobra keeps
// values from previous executions
func resetFlags() {
	configDir, dataDir, modsRoot = "", "", ""
	verbose, jsonOutput, noColor = false, false, false
	installCategory, installName, installVersion, installNotes = "", "", "", ""
	installFlatten = false
	uninstallYes = false
	historyLimit, historyCategory, historyName, historyPrune = 20, "", "", 0
}

// run executes the CLI with args against env and returns stdout
func (c cliEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--config", c.configDir, "--data", c.dataDir, "--mods-root", c.root}, args...))

	err := rootCmd.Execute()
	return out.String(), err
}

func createTestZip(t *testing.T, name string, files map[string]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
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

	return path
}

func TestRootCmd_Structure(t *testing.T) {
	assert.Equal(t, "mxbmm", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)

	for _, name := range []string{"install", "uninstall", "list", "categories", "watch", "history", "config", "tui"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	for _, flag := range []string{"config", "data", "mods-root", "verbose", "json", "no-color"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestInvalidModsRoot(t *testing.T) {
	env := newCLIEnv(t)
	env.root = filepath.Join(env.root, "missing")

	_, err := env.run(t, "", "list")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestInstallListUninstall(t *testing.T) {
	env := newCLIEnv(t)
	zipPath := createTestZip(t, "loretta.zip", map[string]string{
		"loretta.trk": "track data",
		"loretta.ini": "[track]",
	})

	out, err := env.run(t, "", "install", zipPath, "--version", "1.2", "--notes", "pro layout")
	require.NoError(t, err)
	assert.Contains(t, out, "Installed: loretta")
	assert.Contains(t, out, "Category: Tracks")

	dest := filepath.Join(env.root, "tracks", "loretta")
	assert.FileExists(t, filepath.Join(dest, "loretta.trk"))

	out, err = env.run(t, "", "list", "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, "loretta")
	assert.Contains(t, out, "folder")
	assert.Contains(t, out, "1.2")
	assert.Contains(t, out, "pro layout")

	out, err = env.run(t, "", "uninstall", "tracks", "loretta", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Uninstalled: loretta")
	assert.NoDirExists(t, dest)

	out, err = env.run(t, "", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No mods installed.")
}

func TestInstallCmd_Flags(t *testing.T) {
	env := newCLIEnv(t)
	paint := filepath.Join(t.TempDir(), "blue.pnt")
	require.NoError(t, os.WriteFile(paint, []byte("paint"), 0644))

	out, err := env.run(t, "", "--json", "install", paint, "--category", domain.CategoryHelmetPaints, "--name", "race.pnt")
	require.NoError(t, err)

	var result installJSON
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, domain.CategoryHelmetPaints, result.Category)
	assert.Equal(t, "race.pnt", result.Name)
	assert.False(t, result.IsDir)
	assert.FileExists(t, filepath.Join(env.root, "rider", "helmets", "paints", "race.pnt"))
}

func TestInstallCmd_Conflict(t *testing.T) {
	env := newCLIEnv(t)
	zipPath := createTestZip(t, "loretta.zip", map[string]string{"loretta.trk": "v1"})

	_, err := env.run(t, "", "install", zipPath)
	require.NoError(t, err)

	_, err = env.run(t, "", "install", zipPath)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDestinationExists)

	data, err := os.ReadFile(filepath.Join(env.root, "tracks", "loretta", "loretta.trk"))
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))
}

func TestInstallCmd_Unrecognized(t *testing.T) {
	env := newCLIEnv(t)
	readme := filepath.Join(t.TempDir(), "readme.txt")
	require.NoError(t, os.WriteFile(readme, []byte("hi"), 0644))

	_, err := env.run(t, "", "install", readme)
	assert.ErrorIs(t, err, domain.ErrUnrecognized)
}

func TestUninstallCmd_Prompt(t *testing.T) {
	env := newCLIEnv(t)
	dir := filepath.Join(env.root, "tracks", "Millville")
	require.NoError(t, os.MkdirAll(dir, 0755))

	out, err := env.run(t, "n\n", "uninstall", "tracks", "Millville")
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Contains(t, out, "Aborted.")
	assert.DirExists(t, dir)

	out, err = env.run(t, "y\n", "uninstall", "tracks", "Millville")
	require.NoError(t, err)
	assert.Contains(t, out, "Continue? [y/N]")
	assert.NoDirExists(t, dir)
}

func TestUninstallCmd_Errors(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "", "uninstall", "tracks", "ghost", "--yes")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.run(t, "", "uninstall", "nope", "ghost", "--yes")
	assert.ErrorIs(t, err, domain.ErrUnknownCategory)

	_, err = env.run(t, "", "uninstall", "tracks", "../bikes", "--yes")
	assert.ErrorIs(t, err, domain.ErrUnsafeName)
}

func TestListCmd_JSON(t *testing.T) {
	env := newCLIEnv(t)
	require.NoError(t, os.MkdirAll(filepath.Join(env.root, "tracks", "Loretta"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(env.root, "tracks", "Loretta", "t.trk"), []byte("12345"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(env.root, "bikes", "paints"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(env.root, "bikes", "paints", "blue.pnt"), []byte("pnt"), 0644))

	out, err := env.run(t, "", "--json", "list")
	require.NoError(t, err)

	var items []listModJSON
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "Loretta", items[0].Name)
	assert.True(t, items[0].IsDir)
	assert.Equal(t, int64(5), items[0].Size)
	assert.Equal(t, "blue.pnt", items[1].Name)
	assert.Equal(t, int64(3), items[1].Size)

	out, err = env.run(t, "", "--json", "list", "bike-paints")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 1)

	_, err = env.run(t, "", "list", "nope")
	assert.ErrorIs(t, err, domain.ErrUnknownCategory)
}

func TestCategoriesCmd(t *testing.T) {
	env := newCLIEnv(t)
	require.NoError(t, os.MkdirAll(filepath.Join(env.root, "tracks", "Loretta"), 0755))

	out, err := env.run(t, "", "--json", "categories")
	require.NoError(t, err)

	var items []categoryJSON
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, domain.DefaultRegistry().Len())
	assert.Equal(t, domain.CategoryTracks, items[0].ID)
	assert.Equal(t, 1, items[0].Installed)
	assert.Equal(t, filepath.Join(env.root, "tracks"), items[0].Path)

	out, err = env.run(t, "", "categories")
	require.NoError(t, err)
	assert.Contains(t, out, "rider/helmets/paints")
}

func TestHistoryCmd(t *testing.T) {
	env := newCLIEnv(t)
	zipPath := createTestZip(t, "loretta.zip", map[string]string{"loretta.trk": "v1"})

	_, err := env.run(t, "", "install", zipPath)
	require.NoError(t, err)
	_, err = env.run(t, "", "install", zipPath)
	require.Error(t, err)

	out, err := env.run(t, "", "--json", "history")
	require.NoError(t, err)

	var items []historyJSON
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 2)
	assert.False(t, items[0].Success, "newest first")
	assert.Contains(t, items[0].Error, "destination already exists")
	assert.True(t, items[1].Success)
	assert.Equal(t, "loretta", items[1].Name)

	out, err = env.run(t, "", "history", "--category", "bike-paints")
	require.NoError(t, err)
	assert.Contains(t, out, "No history yet.")

	time.Sleep(5 * time.Millisecond)
	out, err = env.run(t, "", "history", "--prune-older-than", "1ns")
	require.NoError(t, err)
	assert.Contains(t, out, "Pruned 2 entries")
}

func TestHistoryCmd_Disabled(t *testing.T) {
	env := newCLIEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(env.configDir, "config.yaml"), []byte("journal: false\n"), 0644))

	_, err := env.run(t, "", "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disabled")
}

func TestConfigCmd_SetRootAndShow(t *testing.T) {
	env := newCLIEnv(t)
	newRoot := t.TempDir()

	out, err := env.run(t, "", "config", "set-root", newRoot)
	require.NoError(t, err)
	assert.Contains(t, out, "Mods root set to")

	// Without --mods-root the saved root is used
	resetFlags()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"--config", env.configDir, "--json", "config", "show"})
	t.Setenv("MXBMM_MODS_ROOT", "")
	require.NoError(t, rootCmd.Execute())

	var result configShowJSON
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, newRoot, result.ModsRoot)
	assert.Equal(t, "config", result.RootSource)
	assert.Empty(t, result.RootError)
	assert.True(t, result.Settings.Journal)
}

func TestConfigCmd_SetRootInvalid(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "", "config", "set-root", filepath.Join(env.root, "missing"))
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = env.run(t, "", "config", "set-root", env.root+"/../"+filepath.Base(env.root))
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}
